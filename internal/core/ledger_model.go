package core

import "time"

// OperationKind classifies a ledger entry.
type OperationKind string

const (
	OpIn       OperationKind = "in"       // goods receipt: after = before + quantity
	OpOut      OperationKind = "out"      // goods issue: after = before - quantity
	OpTransfer OperationKind = "transfer" // warehouse move: after = before
	OpAdjust   OperationKind = "adjust"   // absolute set: after = quantity target
	OpCheck    OperationKind = "check"    // stocktake marker: zero effect
)

// Valid reports whether k is a known operation kind.
func (k OperationKind) Valid() bool {
	switch k {
	case OpIn, OpOut, OpTransfer, OpAdjust, OpCheck:
		return true
	}
	return false
}

// Label is the human-readable kind name used in activity feeds.
func (k OperationKind) Label() string {
	switch k {
	case OpIn:
		return "Inbound"
	case OpOut:
		return "Outbound"
	case OpTransfer:
		return "Transfer"
	case OpAdjust:
		return "Adjustment"
	case OpCheck:
		return "Stocktake"
	default:
		return string(k)
	}
}

// LedgerEntry is one immutable record of a stock-changing or audit event.
// Only the soft-delete triple may change after creation, and only from
// not-deleted to deleted. Deleting an entry never reverses the balance
// mutation it recorded: current stock lives on the item row, so hiding
// history cannot erase inventory movements.
type LedgerEntry struct {
	ID        int           `json:"id"`
	ItemID    int           `json:"item_id"`
	Kind      OperationKind `json:"operation_type"`
	Quantity  int           `json:"quantity"`
	Before    int           `json:"before_stock"`
	After     int           `json:"after_stock"`

	// Kind-specific counterparties.
	SupplierID    *int   `json:"supplier_id,omitempty"`   // in
	Recipient     string `json:"recipient,omitempty"`     // out
	Department    string `json:"department,omitempty"`    // out
	Purpose       string `json:"purpose,omitempty"`       // out
	FromWarehouse string `json:"from_warehouse,omitempty"` // transfer
	ToWarehouse   string `json:"to_warehouse,omitempty"`   // transfer

	Notes      string    `json:"notes,omitempty"`
	OperatorID *int      `json:"operator_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *int       `json:"deleted_by,omitempty"`
}

// LedgerEntryDetail is a ledger entry joined with display fields for lists
// and single-record views.
type LedgerEntryDetail struct {
	LedgerEntry
	ItemName      string `json:"item_name"`
	ItemCode      string `json:"item_code"`
	WarehouseName string `json:"item_warehouse_name,omitempty"`
	SupplierName  string `json:"supplier_name,omitempty"`
	OperatorName  string `json:"operator_name,omitempty"`
	KindLabel     string `json:"operation_type_display"`
}
