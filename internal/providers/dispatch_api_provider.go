package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pickup-dispatch/dispatch/internal/constants"
	"pickup-dispatch/dispatch/internal/metrics"
	"pickup-dispatch/dispatch/internal/models/entities"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Config is everything a DispatchAPIProvider needs. Rotating the credential
// means building a new provider from a new Config.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing calls when > 0.
	RequestsPerSecond float64
	Burst             int

	HTTPClient *http.Client
	Metrics    *metrics.MetricsRegistry
}

// DispatchAPIProvider talks to the dispatch backend.
// Every method returns (nil, *ProviderError) on failure; the nil value is the
// absent sentinel callers render fallbacks for.
type DispatchAPIProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client

	limiter *rate.Limiter
	metrics *metrics.MetricsRegistry
}

var _ DispatchAPI = (*DispatchAPIProvider)(nil)

// NewDispatchAPIProvider creates a provider bound to cfg's credential.
func NewDispatchAPIProvider(cfg Config) *DispatchAPIProvider {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	p := &DispatchAPIProvider{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:  cfg.APIKey,
		Client:  client,
		metrics: cfg.Metrics,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return p
}

// ============================================================================
// Pickup requests
// ============================================================================

// ListActiveRequests fetches every open pickup request.
func (p *DispatchAPIProvider) ListActiveRequests(ctx context.Context) ([]entities.PickupRequest, error) {
	var out []entities.PickupRequest
	if _, err := p.do(ctx, "list_requests", http.MethodGet, "/pickuprequests", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []entities.PickupRequest{}
	}
	return out, nil
}

func (p *DispatchAPIProvider) CreateRequest(ctx context.Context, req entities.PickupRequest) (bool, error) {
	if req.PickupPointID == "" {
		return false, invalidInput("pickup point ID cannot be empty")
	}
	return p.doBool(ctx, "create_request", http.MethodPost, "/pickuprequests", req)
}

func (p *DispatchAPIProvider) DeleteRequest(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, invalidInput("request ID cannot be empty")
	}
	return p.doBool(ctx, "delete_request", http.MethodDelete, "/pickuprequests/"+url.PathEscape(id), nil)
}

// ListResponses fetches the volunteer responses recorded for one request.
func (p *DispatchAPIProvider) ListResponses(ctx context.Context, requestID string) ([]entities.ResponseRecord, error) {
	if requestID == "" {
		return nil, invalidInput("request ID cannot be empty")
	}
	var out []entities.ResponseRecord
	endpoint := fmt.Sprintf("/pickuprequests/%s/responses", url.PathEscape(requestID))
	if _, err := p.do(ctx, "list_responses", http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []entities.ResponseRecord{}
	}
	return out, nil
}

func (p *DispatchAPIProvider) AcceptRequest(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, invalidInput("request ID cannot be empty")
	}
	endpoint := fmt.Sprintf("/pickuprequests/%s/accept", url.PathEscape(requestID))
	return p.doBool(ctx, "accept_request", http.MethodPost, endpoint, nil)
}

func (p *DispatchAPIProvider) DenyRequest(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, invalidInput("request ID cannot be empty")
	}
	endpoint := fmt.Sprintf("/pickuprequests/%s/deny", url.PathEscape(requestID))
	return p.doBool(ctx, "deny_request", http.MethodPost, endpoint, nil)
}

// ExecuteRouting asks the backend to plan routes for a request. The answer is opaque.
func (p *DispatchAPIProvider) ExecuteRouting(ctx context.Context, requestID string) (json.RawMessage, error) {
	if requestID == "" {
		return nil, invalidInput("request ID cannot be empty")
	}
	var out json.RawMessage
	endpoint := fmt.Sprintf("/pickuprequests/%s/execute-routing", url.PathEscape(requestID))
	if _, err := p.do(ctx, "execute_routing", http.MethodPost, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// Points and items
// ============================================================================

func (p *DispatchAPIProvider) GetPickupPoint(ctx context.Context, id string) (*entities.PickupPoint, error) {
	return getResource[entities.PickupPoint](ctx, p, "get_pickup", "/pickup", id)
}

func (p *DispatchAPIProvider) PatchPickupPoint(ctx context.Context, pt entities.PickupPoint) (*entities.PickupPoint, error) {
	return writeResource(ctx, p, "patch_pickup", http.MethodPatch, "/pickup", pt.ID, pt)
}

func (p *DispatchAPIProvider) CreatePickupPoint(ctx context.Context, pt entities.PickupPoint) (*entities.PickupPoint, error) {
	return writeResource(ctx, p, "create_pickup", http.MethodPost, "/pickup", "", pt)
}

func (p *DispatchAPIProvider) GetStoragePoint(ctx context.Context, id string) (*entities.StoragePoint, error) {
	return getResource[entities.StoragePoint](ctx, p, "get_storage", "/storage", id)
}

func (p *DispatchAPIProvider) PatchStoragePoint(ctx context.Context, sp entities.StoragePoint) (*entities.StoragePoint, error) {
	return writeResource(ctx, p, "patch_storage", http.MethodPatch, "/storage", sp.ID, sp)
}

func (p *DispatchAPIProvider) CreateStoragePoint(ctx context.Context, sp entities.StoragePoint) (*entities.StoragePoint, error) {
	return writeResource(ctx, p, "create_storage", http.MethodPost, "/storage", "", sp)
}

func (p *DispatchAPIProvider) GetItem(ctx context.Context, id string) (*entities.Item, error) {
	return getResource[entities.Item](ctx, p, "get_item", "/item", id)
}

func (p *DispatchAPIProvider) PatchItem(ctx context.Context, it entities.Item) (*entities.Item, error) {
	return writeResource(ctx, p, "patch_item", http.MethodPatch, "/item", it.ID, it)
}

func (p *DispatchAPIProvider) CreateItem(ctx context.Context, it entities.Item) (*entities.Item, error) {
	return writeResource(ctx, p, "create_item", http.MethodPost, "/item", "", it)
}

func (p *DispatchAPIProvider) GetDropOff(ctx context.Context, id string) (*entities.DropOff, error) {
	return getResource[entities.DropOff](ctx, p, "get_dropoff", "/dropoff", id)
}

func (p *DispatchAPIProvider) PatchDropOff(ctx context.Context, d entities.DropOff) (*entities.DropOff, error) {
	return writeResource(ctx, p, "patch_dropoff", http.MethodPatch, "/dropoff", d.ID, d)
}

func (p *DispatchAPIProvider) CreateDropOff(ctx context.Context, d entities.DropOff) (*entities.DropOff, error) {
	return writeResource(ctx, p, "create_dropoff", http.MethodPost, "/dropoff", "", d)
}

// GetItemQuantities returns itemID -> quantity held by a pickup point, storage point or user.
func (p *DispatchAPIProvider) GetItemQuantities(ctx context.Context, res ItemHolder, id string) (map[string]int, error) {
	if err := res.validate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, invalidInput("holder ID cannot be empty")
	}
	var rows []entities.ItemQuantity
	endpoint := fmt.Sprintf("/%s/%s/items", res, url.PathEscape(id))
	if _, err := p.do(ctx, "get_items_"+string(res), http.MethodGet, endpoint, nil, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Quantity
	}
	return out, nil
}

// SetItemQuantity succeeds on any 2xx; the body is ignored.
func (p *DispatchAPIProvider) SetItemQuantity(ctx context.Context, res ItemHolder, id, itemID string, quantity int) (bool, error) {
	if err := res.validate(); err != nil {
		return false, err
	}
	if id == "" || itemID == "" {
		return false, invalidInput("holder ID and item ID cannot be empty")
	}
	endpoint := fmt.Sprintf("/%s/%s/items/%s", res, url.PathEscape(id), url.PathEscape(itemID))
	if _, err := p.do(ctx, "set_items_"+string(res), http.MethodPatch, endpoint, entities.QuantityUpdate{Quantity: quantity}, nil); err != nil {
		return false, err
	}
	return true, nil
}

// ============================================================================
// Users
// ============================================================================

// Me resolves the credential to its user.
func (p *DispatchAPIProvider) Me(ctx context.Context) (*entities.User, error) {
	return doObject[entities.User](ctx, p, "get_me", http.MethodGet, "/user/me", nil)
}

func (p *DispatchAPIProvider) GetUser(ctx context.Context, id string) (*entities.User, error) {
	return getResource[entities.User](ctx, p, "get_user", "/user", id)
}

func (p *DispatchAPIProvider) PatchUser(ctx context.Context, u entities.User) (*entities.User, error) {
	return writeResource(ctx, p, "patch_user", http.MethodPatch, "/user", u.ID, u)
}

// ReportLocation succeeds on any 2xx; the body is ignored.
func (p *DispatchAPIProvider) ReportLocation(ctx context.Context, location string) (bool, error) {
	if strings.TrimSpace(location) == "" {
		return false, invalidInput("location cannot be empty")
	}
	if _, err := p.do(ctx, "report_location", http.MethodPost, "/user/me/location", entities.LocationReport{Location: location}, nil); err != nil {
		return false, err
	}
	return true, nil
}

// ============================================================================
// HTTP Helper Methods
// ============================================================================

func getResource[T any](ctx context.Context, p *DispatchAPIProvider, op, base, id string) (*T, error) {
	if id == "" {
		return nil, invalidInput("ID cannot be empty")
	}
	return doObject[T](ctx, p, op, http.MethodGet, base+"/"+url.PathEscape(id), nil)
}

func writeResource[T any](ctx context.Context, p *DispatchAPIProvider, op, method, base, id string, body T) (*T, error) {
	endpoint := base
	if method != http.MethodPost {
		if id == "" {
			return nil, invalidInput("ID cannot be empty")
		}
		endpoint = base + "/" + url.PathEscape(id)
	}
	return doObject[T](ctx, p, op, method, endpoint, body)
}

// doObject decodes a JSON object body. An empty or null 2xx body carries no
// object, so it is a decode failure rather than a zero value.
func doObject[T any](ctx context.Context, p *DispatchAPIProvider, op, method, endpoint string, payload interface{}) (*T, error) {
	var out *T
	status, err := p.do(ctx, op, method, endpoint, payload, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &ProviderError{
			Kind:    KindDecode,
			Code:    constants.ErrCodeDecodeFailed,
			Message: "Response carried no object",
			Status:  status,
		}
	}
	return out, nil
}

// doBool decodes a JSON boolean body. An empty 2xx body reads as false.
func (p *DispatchAPIProvider) doBool(ctx context.Context, op, method, endpoint string, payload interface{}) (bool, error) {
	var out bool
	if _, err := p.do(ctx, op, method, endpoint, payload, &out); err != nil {
		return false, err
	}
	return out, nil
}

// do performs one authenticated call. result may be nil to skip decoding.
func (p *DispatchAPIProvider) do(ctx context.Context, op, method, endpoint string, payload interface{}, result interface{}) (status int, err error) {
	start := time.Now()
	defer func() {
		p.metrics.ObserveUpstream(op, Outcome(err), time.Since(start))
	}()

	if p.limiter != nil {
		if werr := p.limiter.Wait(ctx); werr != nil {
			return 0, transportError(werr)
		}
	}

	var body io.Reader
	if payload != nil {
		payloadBytes, merr := json.Marshal(payload)
		if merr != nil {
			return 0, &ProviderError{
				Kind:    KindInvalidInput,
				Code:    constants.ErrCodeInvalidDataInput,
				Message: "Failed to marshal request body",
				Err:     merr,
			}
		}
		body = bytes.NewReader(payloadBytes)
	}

	req, rerr := http.NewRequestWithContext(ctx, method, p.BaseURL+endpoint, body)
	if rerr != nil {
		return 0, &ProviderError{
			Kind:    KindTransport,
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to create request",
			Err:     rerr,
		}
	}

	// Set headers
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.APIKey != "" {
		req.Header.Set(constants.APIKeyHeader, p.APIKey)
	}

	resp, derr := p.Client.Do(req)
	if derr != nil {
		return 0, transportError(derr)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if readErr != nil {
		return resp.StatusCode, transportError(readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, buildHTTPError(resp.StatusCode, endpoint, string(bodyBytes))
	}

	if result == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return resp.StatusCode, nil
	}

	if uerr := json.Unmarshal(bodyBytes, result); uerr != nil {
		return resp.StatusCode, &ProviderError{
			Kind:    KindDecode,
			Code:    constants.ErrCodeDecodeFailed,
			Message: "Failed to decode response",
			Status:  resp.StatusCode,
			Details: string(bodyBytes),
			Err:     uerr,
		}
	}

	return resp.StatusCode, nil
}

func transportError(err error) *ProviderError {
	code := constants.ErrCodeNetworkError
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		code = constants.ErrCodeTimeout
	}
	return &ProviderError{
		Kind:    KindTransport,
		Code:    code,
		Message: constants.GetErrorMessage(code),
		Err:     err,
	}
}

func invalidInput(msg string) *ProviderError {
	return &ProviderError{
		Kind:    KindInvalidInput,
		Code:    constants.ErrCodeInvalidDataInput,
		Message: msg,
	}
}

// buildHTTPError creates the rejection error for a non-2xx status
func buildHTTPError(statusCode int, endpoint string, body string) *ProviderError {
	pe := &ProviderError{
		Kind:    KindRejection,
		Status:  statusCode,
		Details: body,
	}
	switch {
	case statusCode == http.StatusUnauthorized:
		pe.Code = constants.ErrCodeInvalidAPIKey
		pe.Message = fmt.Sprintf("Authentication failed for endpoint %s", endpoint)
	case statusCode == http.StatusForbidden:
		pe.Code = constants.ErrCodeForbidden
		pe.Message = fmt.Sprintf("Access denied for endpoint %s", endpoint)
	case statusCode == http.StatusNotFound:
		pe.Code = constants.ErrCodeNotFound
		pe.Message = fmt.Sprintf("Resource not found: %s", endpoint)
	case statusCode == http.StatusTooManyRequests:
		pe.Code = constants.ErrCodeRateLimited
		pe.Message = constants.GetErrorMessage(constants.ErrCodeRateLimited)
	case statusCode >= 500:
		pe.Code = constants.ErrCodeServerError
		pe.Message = fmt.Sprintf("HTTP %d from %s", statusCode, endpoint)
	default:
		pe.Code = constants.ErrCodeBadRequest
		pe.Message = fmt.Sprintf("HTTP %d from %s", statusCode, endpoint)
	}
	return pe
}
