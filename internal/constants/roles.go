package constants

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UserType mirrors the backend's numeric user type.
type UserType int

const (
	UserTypeVolunteer UserType = 0
	UserTypeManager   UserType = 1
)

// String is used in logs and templates
func (u UserType) String() string {
	switch u {
	case UserTypeVolunteer:
		return "volunteer"
	case UserTypeManager:
		return "manager"
	default:
		return fmt.Sprintf("unknown(%d)", int(u))
	}
}

// ResponseType is a volunteer's decision on a pickup request.
type ResponseType string

const (
	ResponseAccept ResponseType = "accept"
	ResponseDeny   ResponseType = "deny"
)

func (r *ResponseType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("ResponseType: %w", err)
	}
	switch ResponseType(strings.ToLower(s)) {
	case ResponseAccept:
		*r = ResponseAccept
	case ResponseDeny:
		*r = ResponseDeny
	default:
		return fmt.Errorf("ResponseType: unknown value %q", s)
	}
	return nil
}
