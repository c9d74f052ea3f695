package core

// OperationRequest is the single write-path input of the ledger. Kind selects
// which of the optional fields apply; Validate enforces the per-kind shape
// before any database work starts.
type OperationRequest struct {
	Kind     OperationKind
	ItemID   int
	Quantity int // positive count for in/out/transfer; absolute target for adjust; ignored for check

	// in
	SupplierID  int
	WarehouseID int // destination

	// out
	Recipient  string
	Department string
	Purpose    string

	// transfer
	FromWarehouseID int // optional; 0 means "item's current warehouse"
	ToWarehouseID   int

	Notes      string
	OperatorID *int
}

// Validate checks input shape only. Reference existence, balance sufficiency,
// and capacity are checked inside the submit transaction where they can be
// read under lock.
func (r OperationRequest) Validate() error {
	if !r.Kind.Valid() {
		return &ValidationError{Field: "operation_type", Message: "unknown operation type"}
	}
	if r.ItemID <= 0 {
		return &ValidationError{Field: "item", Message: "item is required"}
	}

	switch r.Kind {
	case OpIn:
		if r.Quantity <= 0 {
			return &ValidationError{Field: "quantity", Message: "quantity must be greater than 0"}
		}
		if r.WarehouseID <= 0 {
			return &ValidationError{Field: "warehouse", Message: "destination warehouse is required"}
		}
		if r.SupplierID <= 0 {
			return &ValidationError{Field: "supplier", Message: "supplier is required"}
		}
	case OpOut:
		if r.Quantity <= 0 {
			return &ValidationError{Field: "quantity", Message: "quantity must be greater than 0"}
		}
		if r.Recipient == "" {
			return &ValidationError{Field: "recipient", Message: "recipient is required"}
		}
	case OpTransfer:
		if r.Quantity <= 0 {
			return &ValidationError{Field: "quantity", Message: "quantity must be greater than 0"}
		}
		if r.ToWarehouseID <= 0 {
			return &ValidationError{Field: "to_warehouse", Message: "destination warehouse is required"}
		}
		if r.FromWarehouseID != 0 && r.FromWarehouseID == r.ToWarehouseID {
			return &ValidationError{Field: "to_warehouse", Message: "source and destination warehouses must differ"}
		}
	case OpAdjust:
		if r.Quantity < 0 {
			return &ValidationError{Field: "quantity", Message: "target quantity cannot be negative"}
		}
	case OpCheck:
		// Zero-effect stocktake marker; nothing beyond the item reference.
	}
	return nil
}
