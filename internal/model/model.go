// Package model holds the database row types shared by the repositories and
// services.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Store is a seller-owned storefront. IsActive is independent of IsDeleted:
// a restored store comes back inactive and needs an explicit activation.
type Store struct {
	ID            uuid.UUID
	SellerID      uuid.UUID
	Name          string
	Description   string
	IsActive      bool
	IsDeleted     bool
	DeletedAt     *time.Time
	DeletedBy     *uuid.UUID
	DeletedReason *string
	Version       int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Product is owned by exactly one store.
type Product struct {
	ID            uuid.UUID
	StoreID       uuid.UUID
	Name          string
	Description   string
	Price         int64
	StockQuantity int32
	IsDeleted     bool
	DeletedAt     *time.Time
	DeletedBy     *uuid.UUID
	DeletedReason *string
	Version       int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Status        string
	TotalPrice    int64
	IsDeleted     bool
	DeletedAt     *time.Time
	DeletedBy     *uuid.UUID
	DeletedReason *string
	Version       int32
	CreatedAt     time.Time
}

type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    uuid.UUID
	Quantity     int32
	PricePerItem int64
	Price        int64
	CreatedAt    time.Time
}
