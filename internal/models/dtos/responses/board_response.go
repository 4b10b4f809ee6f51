package responses

import (
	"pickup-dispatch/dispatch/internal/aggregator"
	"pickup-dispatch/dispatch/internal/geo"
	"pickup-dispatch/dispatch/internal/models/entities"
)

// BoardResponse is returned by GET /api/v1/board.
type BoardResponse struct {
	User    entities.User   `json:"user"`
	Role    string          `json:"role"`
	View    aggregator.View `json:"view"`
	Markers []geo.Marker    `json:"markers"`
}

// ReloadResponse is returned after a reload or a command.
type ReloadResponse struct {
	Generation uint64 `json:"generation"`
}
