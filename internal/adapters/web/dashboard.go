package web

import "net/http"

// Dashboard endpoints serve the cached reporting aggregates. All of them read
// in audit mode except the activity feed; see the reporting service for the
// mode contract.

func (h *Handler) dashboardOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.reports.Overview(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, overview)
}

func (h *Handler) dashboardCharts(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	if days != 7 && days != 30 {
		writeError(w, r, "days must be 7 or 30", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	charts, err := h.reports.Charts(r.Context(), days)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, charts)
}

func (h *Handler) dashboardTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := h.reports.Trend(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, trend)
}

func (h *Handler) dashboardDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.reports.Distribution(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, dist)
}

func (h *Handler) dashboardLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.reports.LowStock(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, items)
}

func (h *Handler) dashboardActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.reports.RecentActivities(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, activities)
}
