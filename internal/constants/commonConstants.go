package constants

type (
	APIStatus   string
	CachePrefix string
	ActionType  string
)

const (
	APIStatusOk    APIStatus = "success"
	APIStatusError APIStatus = "error"

	CachePrefixSession   CachePrefix = "session:"
	CachePrefixWorkspace CachePrefix = "WS_"

	// CredentialKey is the fixed key the API credential is stored under.
	CredentialKey = "apiKey"

	// APIKeyHeader carries the credential on every backend call.
	APIKeyHeader = "X-Api-Key"

	SessionCookieName = "dispatch_session"
)

const (
	ActionAccept   ActionType = "accept"
	ActionDeny     ActionType = "deny"
	ActionCreate   ActionType = "create"
	ActionDelete   ActionType = "delete"
	ActionRoute    ActionType = "route"
	ActionLocation ActionType = "location"
)
