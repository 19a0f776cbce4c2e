package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vendhub/marketplace/pkg/messaging"
)

// SoftDeletedEvent is published when an entity is soft-deleted.
type SoftDeletedEvent struct {
	subject string

	EntityID  uuid.UUID `json:"entity_id"`
	DeletedBy uuid.UUID `json:"deleted_by"`
	Reason    string    `json:"reason,omitempty"`
	DeletedAt time.Time `json:"deleted_at"`
}

func NewProductSoftDeleted(id, by uuid.UUID, reason string, at time.Time) SoftDeletedEvent {
	return SoftDeletedEvent{subject: messaging.ProductsSoftDeletedSubject, EntityID: id, DeletedBy: by, Reason: reason, DeletedAt: at}
}

func NewStoreSoftDeleted(id, by uuid.UUID, reason string, at time.Time) SoftDeletedEvent {
	return SoftDeletedEvent{subject: messaging.StoresSoftDeletedSubject, EntityID: id, DeletedBy: by, Reason: reason, DeletedAt: at}
}

func NewOrderSoftDeleted(id, by uuid.UUID, reason string, at time.Time) SoftDeletedEvent {
	return SoftDeletedEvent{subject: messaging.OrdersSoftDeletedSubject, EntityID: id, DeletedBy: by, Reason: reason, DeletedAt: at}
}

func (e SoftDeletedEvent) Subject() string          { return e.subject }
func (e SoftDeletedEvent) Payload() ([]byte, error) { return json.Marshal(e) }

// RestoredEvent is published when a soft-deleted entity is restored.
type RestoredEvent struct {
	subject string

	EntityID   uuid.UUID `json:"entity_id"`
	RestoredBy uuid.UUID `json:"restored_by"`
	RestoredAt time.Time `json:"restored_at"`
}

func NewProductRestored(id, by uuid.UUID, at time.Time) RestoredEvent {
	return RestoredEvent{subject: messaging.ProductsRestoredSubject, EntityID: id, RestoredBy: by, RestoredAt: at}
}

func NewStoreRestored(id, by uuid.UUID, at time.Time) RestoredEvent {
	return RestoredEvent{subject: messaging.StoresRestoredSubject, EntityID: id, RestoredBy: by, RestoredAt: at}
}

func NewOrderRestored(id, by uuid.UUID, at time.Time) RestoredEvent {
	return RestoredEvent{subject: messaging.OrdersRestoredSubject, EntityID: id, RestoredBy: by, RestoredAt: at}
}

func (e RestoredEvent) Subject() string          { return e.subject }
func (e RestoredEvent) Payload() ([]byte, error) { return json.Marshal(e) }

// HardDeletedEvent is published after an entity row has been permanently
// removed. Cascade indicates the deletion was driven by a parent store purge.
type HardDeletedEvent struct {
	subject string

	EntityID  uuid.UUID `json:"entity_id"`
	DeletedBy uuid.UUID `json:"deleted_by"`
	Reason    string    `json:"reason"`
	Cascade   bool      `json:"cascade"`
	DeletedAt time.Time `json:"deleted_at"`
}

func NewProductHardDeleted(id, by uuid.UUID, reason string, cascade bool, at time.Time) HardDeletedEvent {
	return HardDeletedEvent{subject: messaging.ProductsHardDeletedSubject, EntityID: id, DeletedBy: by, Reason: reason, Cascade: cascade, DeletedAt: at}
}

func NewStoreHardDeleted(id, by uuid.UUID, reason string, at time.Time) HardDeletedEvent {
	return HardDeletedEvent{subject: messaging.StoresHardDeletedSubject, EntityID: id, DeletedBy: by, Reason: reason, DeletedAt: at}
}

func NewOrderHardDeleted(id, by uuid.UUID, reason string, cascade bool, at time.Time) HardDeletedEvent {
	return HardDeletedEvent{subject: messaging.OrdersHardDeletedSubject, EntityID: id, DeletedBy: by, Reason: reason, Cascade: cascade, DeletedAt: at}
}

func (e HardDeletedEvent) Subject() string          { return e.subject }
func (e HardDeletedEvent) Payload() ([]byte, error) { return json.Marshal(e) }
