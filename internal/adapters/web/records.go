package web

import (
	"net/http"

	"inventory-ledger/internal/core"
)

// Record maintenance endpoints. These are thin: validation and persistence
// live in the core services, and none of them can touch item balances.

// ── Items ────────────────────────────────────────────────────────────────────

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.ItemFilter{
		CategoryID:  queryInt(r, "category_id", 0),
		WarehouseID: queryInt(r, "warehouse_id", 0),
		Status:      core.ItemStatus(q.Get("status")),
		Search:      q.Get("search"),
	}
	page := core.Page{Limit: queryInt(r, "limit", 20), Offset: queryInt(r, "offset", 0)}

	items, total, err := h.items.List(r.Context(), filter, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"results": items, "count": total})
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var in core.ItemInput
	if !decodeJSON(w, r, &in) {
		return
	}
	var createdBy *int
	if claims := authFromContext(r.Context()); claims != nil {
		id := claims.UserID
		createdBy = &id
	}
	item, err := h.items.Create(r.Context(), in, createdBy)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	item, err := h.items.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in core.ItemInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := h.items.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.items.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) discontinueItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	item, err := h.items.Discontinue(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) reinstateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	item, err := h.items.Reinstate(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

// ── Warehouses ───────────────────────────────────────────────────────────────

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.warehouses.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, warehouses)
}

func (h *Handler) warehouseUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.warehouses.Usage(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, usage)
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var in core.WarehouseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	warehouse, err := h.warehouses.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, warehouse)
}

func (h *Handler) getWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	warehouse, err := h.warehouses.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, warehouse)
}

func (h *Handler) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in core.WarehouseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	warehouse, err := h.warehouses.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, warehouse)
}

func (h *Handler) deleteWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.warehouses.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Suppliers ────────────────────────────────────────────────────────────────

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.suppliers.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, suppliers)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var in core.SupplierInput
	if !decodeJSON(w, r, &in) {
		return
	}
	supplier, err := h.suppliers.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, supplier)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	supplier, err := h.suppliers.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, supplier)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in core.SupplierInput
	if !decodeJSON(w, r, &in) {
		return
	}
	supplier, err := h.suppliers.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, supplier)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.suppliers.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Categories ───────────────────────────────────────────────────────────────

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, categories)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in core.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	category, err := h.categories.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, category)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	category, err := h.categories.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, category)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in core.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	category, err := h.categories.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, category)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.categories.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
