package providers

import (
	"context"
	"encoding/json"

	"pickup-dispatch/dispatch/internal/models/entities"
)

// DispatchAPI defines the operations the dispatch backend offers.
type DispatchAPI interface {
	ListActiveRequests(ctx context.Context) ([]entities.PickupRequest, error)
	CreateRequest(ctx context.Context, req entities.PickupRequest) (bool, error)
	DeleteRequest(ctx context.Context, id string) (bool, error)
	ListResponses(ctx context.Context, requestID string) ([]entities.ResponseRecord, error)
	AcceptRequest(ctx context.Context, requestID string) (bool, error)
	DenyRequest(ctx context.Context, requestID string) (bool, error)
	ExecuteRouting(ctx context.Context, requestID string) (json.RawMessage, error)

	GetPickupPoint(ctx context.Context, id string) (*entities.PickupPoint, error)
	PatchPickupPoint(ctx context.Context, pt entities.PickupPoint) (*entities.PickupPoint, error)
	CreatePickupPoint(ctx context.Context, pt entities.PickupPoint) (*entities.PickupPoint, error)
	GetStoragePoint(ctx context.Context, id string) (*entities.StoragePoint, error)
	PatchStoragePoint(ctx context.Context, sp entities.StoragePoint) (*entities.StoragePoint, error)
	CreateStoragePoint(ctx context.Context, sp entities.StoragePoint) (*entities.StoragePoint, error)
	GetItem(ctx context.Context, id string) (*entities.Item, error)
	PatchItem(ctx context.Context, it entities.Item) (*entities.Item, error)
	CreateItem(ctx context.Context, it entities.Item) (*entities.Item, error)
	GetDropOff(ctx context.Context, id string) (*entities.DropOff, error)
	PatchDropOff(ctx context.Context, d entities.DropOff) (*entities.DropOff, error)
	CreateDropOff(ctx context.Context, d entities.DropOff) (*entities.DropOff, error)
	GetItemQuantities(ctx context.Context, res ItemHolder, id string) (map[string]int, error)
	SetItemQuantity(ctx context.Context, res ItemHolder, id, itemID string, quantity int) (bool, error)

	Me(ctx context.Context) (*entities.User, error)
	GetUser(ctx context.Context, id string) (*entities.User, error)
	PatchUser(ctx context.Context, u entities.User) (*entities.User, error)
	ReportLocation(ctx context.Context, location string) (bool, error)
}

// ItemHolder is a resource that keeps item quantities.
type ItemHolder string

const (
	HolderPickup  ItemHolder = "pickup"
	HolderStorage ItemHolder = "storage"
	HolderUser    ItemHolder = "user"
)

func (h ItemHolder) validate() error {
	switch h {
	case HolderPickup, HolderStorage, HolderUser:
		return nil
	}
	return invalidInput("unknown item holder " + string(h))
}
