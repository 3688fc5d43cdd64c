package account

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrAddressNotFound is returned when an address id does not resolve.
	ErrAddressNotFound = errors.New("address not found")
	// ErrWarehouseNotFound is returned when a warehouse id does not resolve.
	ErrWarehouseNotFound = errors.New("warehouse not found")
)

// Address is a delivery address owned by a user.
type Address struct {
	ID              int64
	UserID          int64
	City            string
	ApartmentNumber string
	Entrance        string
	Floor           string
	Intercom        string
}

// BelongsTo reports whether the address is owned by userID.
func (a *Address) BelongsTo(userID int64) bool {
	return a.UserID == userID
}

// Warehouse is a pickup point.
type Warehouse struct {
	ID        int64
	City      string
	IsPrimary bool
}

// Repository reads the user-owned entities orders reference.
type Repository interface {
	GetAddress(ctx context.Context, id int64) (*Address, error)
	GetWarehouse(ctx context.Context, id int64) (*Warehouse, error)
	// PrimaryWarehouse returns ErrWarehouseNotFound when none is marked primary.
	PrimaryWarehouse(ctx context.Context) (*Warehouse, error)
}
