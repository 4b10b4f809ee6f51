package constants

// Provider error codes
const (
	ErrCodeNetworkError     = "NETWORK_ERROR"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeDecodeFailed     = "DECODE_FAILED"
	ErrCodeInvalidAPIKey    = "INVALID_API_KEY"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "RESOURCE_NOT_FOUND"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeServerError      = "SERVER_ERROR"
	ErrCodeInvalidDataInput = "INVALID_DATA_INPUT"
)

var ProviderErrorMessages = map[string]string{
	ErrCodeNetworkError:     "Unable to reach the dispatch backend",
	ErrCodeTimeout:          "The dispatch backend did not answer in time",
	ErrCodeDecodeFailed:     "The dispatch backend returned a malformed response",
	ErrCodeInvalidAPIKey:    "The API key is invalid or has been revoked",
	ErrCodeForbidden:        "The API key is not allowed to perform this action",
	ErrCodeNotFound:         "The requested resource does not exist",
	ErrCodeRateLimited:      "Rate limit exceeded. Please try again later",
	ErrCodeBadRequest:       "The dispatch backend rejected the request",
	ErrCodeServerError:      "The dispatch backend failed to process the request",
	ErrCodeInvalidDataInput: "The request is missing required data",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := ProviderErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}

// UI messages
const (
	MsgInvalidKey         = "invalid key"
	MsgBackendUnreachable = "backend unreachable"
	MsgNotAPickupPoint    = "not a real pickup point id"
	MsgMissingPickupID    = "pickup point id is required"
	MsgSessionExpired     = "session expired"
	MsgManagerOnly        = "manager access required"
)
