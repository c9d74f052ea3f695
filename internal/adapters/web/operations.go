package web

import (
	"net/http"

	"inventory-ledger/internal/core"
)

// operationBody is the shared request shape for the five operation endpoints.
// The endpoint fixes the kind; the body carries the kind-specific fields.
type operationBody struct {
	ItemID   int    `json:"item_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`

	SupplierID  int `json:"supplier_id"`
	WarehouseID int `json:"warehouse_id"`

	Recipient  string `json:"recipient"`
	Department string `json:"department"`
	Purpose    string `json:"purpose"`

	FromWarehouseID int `json:"from_warehouse_id"`
	ToWarehouseID   int `json:"to_warehouse_id"`
}

func (h *Handler) submitOperation(w http.ResponseWriter, r *http.Request, kind core.OperationKind) {
	var body operationBody
	if !decodeJSON(w, r, &body) {
		return
	}

	req := core.OperationRequest{
		Kind:            kind,
		ItemID:          body.ItemID,
		Quantity:        body.Quantity,
		SupplierID:      body.SupplierID,
		WarehouseID:     body.WarehouseID,
		Recipient:       body.Recipient,
		Department:      body.Department,
		Purpose:         body.Purpose,
		FromWarehouseID: body.FromWarehouseID,
		ToWarehouseID:   body.ToWarehouseID,
		Notes:           body.Notes,
	}
	if claims := authFromContext(r.Context()); claims != nil {
		operatorID := claims.UserID
		req.OperatorID = &operatorID
	}

	entry, err := h.ops.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = jsonEncode(w, entry)
}

func (h *Handler) inbound(w http.ResponseWriter, r *http.Request) {
	h.submitOperation(w, r, core.OpIn)
}

func (h *Handler) outbound(w http.ResponseWriter, r *http.Request) {
	h.submitOperation(w, r, core.OpOut)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	h.submitOperation(w, r, core.OpTransfer)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	h.submitOperation(w, r, core.OpAdjust)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	h.submitOperation(w, r, core.OpCheck)
}

// listOperations handles GET /api/operations with filter and pagination query
// parameters. This is the operational view: deleted entries are hidden.
func (h *Handler) listOperations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.EntryFilter{
		Kind:       core.OperationKind(q.Get("type")),
		ItemID:     queryInt(r, "item_id", 0),
		SupplierID: queryInt(r, "supplier_id", 0),
		Search:     q.Get("search"),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		writeError(w, r, "unknown operation type", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	page := core.Page{
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}

	entries, total, err := h.ledger.List(r.Context(), filter, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"results": entries,
		"count":   total,
	})
}

func (h *Handler) recentOperations(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.Recent(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, entries)
}

func (h *Handler) operationStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Statistics(r.Context(), queryInt(r, "days", 7))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, stats)
}

func (h *Handler) getOperation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	entry, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, entry)
}

// deleteOperation handles POST /api/operations/{id}/delete. A POST rather than
// a DELETE because the body must carry the actor's password for
// reverification.
func (h *Handler) deleteOperation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	actor := h.actor(r)
	if actor == nil {
		writeError(w, r, "not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}

	res, err := h.ledger.SoftDelete(r.Context(), id, actor, body.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) batchDeleteOperations(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs      []int  `json:"ids"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	actor := h.actor(r)
	if actor == nil {
		writeError(w, r, "not authenticated", "UNAUTHORIZED", http.StatusUnauthorized)
		return
	}

	res, err := h.ledger.SoftDeleteBatch(r.Context(), body.IDs, actor, body.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
