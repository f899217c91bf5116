package workqueue

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a work item. The numeric values are part
// of the persisted contract and mirror what downstream processors expect.
type Status int

const (
	StatusPending    Status = 0
	StatusCompleted  Status = 1
	StatusProcessing Status = 5
	StatusError      Status = -1
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// CanTransitionTo reports whether moving to next honors the lifecycle:
// Pending -> Processing -> Completed|Error, with Error -> Pending as the only
// back-edge (operator retry). The store does not enforce this; consumers must.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusError
	case StatusError:
		return next == StatusPending
	default:
		return false
	}
}

// Scope enumerates the kind of downstream ERP operation a work item drives.
// The values are persisted; ScopeUnrecognized is a sentinel reserved for
// input no strategy could type, kept far away from the real scopes.
type Scope int

const (
	ScopeProductUpdate    Scope = 1
	ScopeOrderCreate      Scope = 2
	ScopeInvoice          Scope = 3
	ScopeCorrection       Scope = 4
	ScopeWarehouseIssue   Scope = 5
	ScopeWarehouseReceipt Scope = 6

	ScopeUnrecognized Scope = 999
)

func (s Scope) String() string {
	switch s {
	case ScopeProductUpdate:
		return "product_update"
	case ScopeOrderCreate:
		return "order_create"
	case ScopeInvoice:
		return "invoice"
	case ScopeCorrection:
		return "correction"
	case ScopeWarehouseIssue:
		return "warehouse_issue"
	case ScopeWarehouseReceipt:
		return "warehouse_receipt"
	case ScopeUnrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

// WorkItem is one durable unit of downstream work. It is created Pending by a
// processing strategy, claimed and resolved by the downstream consumer, and
// removed only by an explicit retention sweep.
type WorkItem struct {
	ID         int64
	ExternalID uuid.UUID
	TenantID   string
	Scope      Scope
	Status     Status

	// Request carries the serialized payload the consumer acts on; empty for
	// unrecognized items, which keep only RawBody for forensic inspection.
	Request     string
	Description string

	// TargetID is 0 until the downstream system assigns its own identifier.
	TargetID int64

	// RawBody preserves the decrypted notification verbatim for audit.
	RawBody string

	CreatedAt time.Time
	UpdatedAt time.Time
}
