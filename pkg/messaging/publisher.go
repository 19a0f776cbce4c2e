package messaging

import (
	"context"
)

// Subjects for entity lifecycle events.
const (
	ProductsSoftDeletedSubject = "products.softdeleted"
	ProductsRestoredSubject    = "products.restored"
	ProductsHardDeletedSubject = "products.harddeleted"
	StoresSoftDeletedSubject   = "stores.softdeleted"
	StoresRestoredSubject      = "stores.restored"
	StoresHardDeletedSubject   = "stores.harddeleted"
	OrdersSoftDeletedSubject   = "orders.softdeleted"
	OrdersRestoredSubject      = "orders.restored"
	OrdersHardDeletedSubject   = "orders.harddeleted"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
