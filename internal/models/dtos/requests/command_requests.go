package requests

// LocationRequest is the body of POST /api/v1/location.
type LocationRequest struct {
	Location string `json:"location"`
}

// CreateRequestBody is the body of POST /api/v1/requests.
type CreateRequestBody struct {
	PickupPointID string `json:"pickupPointID"`
}
