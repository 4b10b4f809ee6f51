package entities

import "pickup-dispatch/dispatch/internal/constants"

// User is a dispatch backend account. Identity is assigned by the backend.
type User struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Karma     int                `json:"karma"`
	MaxVolume float64            `json:"maxVolume"`
	UserType  constants.UserType `json:"userType"`
}

func (u *User) IsManager() bool { return u != nil && u.UserType == constants.UserTypeManager }

// PickupRequest is an open ask for volunteers to service a pickup point.
type PickupRequest struct {
	ID            string `json:"id"`
	PickupPointID string `json:"pickupPointID"`
}

// PickupPoint is referenced by PickupRequest.PickupPointID.
// Location is a free-text "lat lng" string, decimal or DMS.
type PickupPoint struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	MaxVolume float64 `json:"maxVolume,omitempty"`
}

type StoragePoint struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	MaxVolume float64 `json:"maxVolume"`
}

type DropOff struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type Item struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
}

// ResponseRecord is one volunteer's decision on one pickup request.
type ResponseRecord struct {
	UserID   string                 `json:"userID"`
	Response constants.ResponseType `json:"response"`
}

// ItemQuantity is the wire shape of an item mapping entry.
type ItemQuantity struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type LocationReport struct {
	Location string `json:"location"`
}

type QuantityUpdate struct {
	Quantity int `json:"quantity"`
}
