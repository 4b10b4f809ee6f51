package responses

import (
	"time"

	"pickup-dispatch/dispatch/internal/constants"
)

// APIResponse wraps every JSON body. RequestID matches the X-Request-ID header.
type APIResponse[T any] struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
	Data      *T        `json:"data,omitempty"`
}

// NewSuccess builds an ok envelope around data.
func NewSuccess[T any](requestID string, data *T) APIResponse[T] {
	return APIResponse[T]{Status: string(constants.APIStatusOk), RequestID: requestID, Timestamp: time.Now().UTC(), Data: data}
}

// NewError builds an error envelope with no data.
func NewError(requestID, message string) APIResponse[any] {
	return APIResponse[any]{Status: string(constants.APIStatusError), RequestID: requestID, Timestamp: time.Now().UTC(), Error: message}
}
