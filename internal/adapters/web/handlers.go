package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"inventory-ledger/internal/cache"
	"inventory-ledger/internal/config"
	"inventory-ledger/internal/core"
)

// Services bundles everything the HTTP layer depends on.
type Services struct {
	Operations core.OperationService
	Ledger     core.LedgerService
	Reports    core.ReportingService
	Items      core.InventoryService
	Warehouses core.WarehouseService
	Suppliers  core.SupplierService
	Categories core.CategoryService
	Users      core.UserService
}

// Handler holds the services and the chi router.
type Handler struct {
	ops        core.OperationService
	ledger     core.LedgerService
	reports    core.ReportingService
	items      core.InventoryService
	warehouses core.WarehouseService
	suppliers  core.SupplierService
	categories core.CategoryService
	users      core.UserService
	limiter    *loginLimiter
	jwtSecret  string
	log        *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc Services, store cache.Store, cfg *config.Config, log *zap.Logger) http.Handler {
	h := &Handler{
		ops:        svc.Operations,
		ledger:     svc.Ledger,
		reports:    svc.Reports,
		items:      svc.Items,
		warehouses: svc.Warehouses,
		suppliers:  svc.Suppliers,
		categories: svc.Categories,
		users:      svc.Users,
		jwtSecret:  cfg.Auth.JWTSecret,
		log:        log,
		limiter: &loginLimiter{
			store:     store,
			threshold: cfg.Auth.LockoutThreshold,
			window:    time.Duration(cfg.Auth.LockoutWindowMinutes) * time.Minute,
		},
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	if cfg.Server.AllowedOrigins != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   splitAndTrim(cfg.Server.AllowedOrigins),
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Get("/api/health", h.health)

	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/api/auth/me", h.me)

		// Stock operations: the only write path for item balances.
		r.Post("/api/operations/inbound", h.inbound)
		r.Post("/api/operations/outbound", h.outbound)
		r.Post("/api/operations/transfer", h.transfer)
		r.Post("/api/operations/adjust", h.adjust)
		r.Post("/api/operations/check", h.check)

		// Ledger reads (operational mode) and password-confirmed deletion.
		r.Get("/api/operations", h.listOperations)
		r.Get("/api/operations/recent", h.recentOperations)
		r.Get("/api/operations/statistics", h.operationStatistics)
		r.Get("/api/operations/{id}", h.getOperation)
		r.Post("/api/operations/{id}/delete-with-password", h.deleteOperation)
		r.Post("/api/operations/batch-delete-with-password", h.batchDeleteOperations)

		// Dashboard aggregates (audit mode).
		r.Get("/api/dashboard/overview", h.dashboardOverview)
		r.Get("/api/dashboard/charts", h.dashboardCharts)
		r.Get("/api/dashboard/trend", h.dashboardTrend)
		r.Get("/api/dashboard/distribution", h.dashboardDistribution)
		r.Get("/api/dashboard/low-stock", h.dashboardLowStock)
		r.Get("/api/dashboard/activities", h.dashboardActivities)

		// Record maintenance.
		r.Get("/api/items", h.listItems)
		r.Post("/api/items", h.createItem)
		r.Get("/api/items/{id}", h.getItem)
		r.Put("/api/items/{id}", h.updateItem)
		r.Delete("/api/items/{id}", h.deleteItem)
		r.Post("/api/items/{id}/discontinue", h.discontinueItem)
		r.Post("/api/items/{id}/reinstate", h.reinstateItem)

		r.Get("/api/warehouses", h.listWarehouses)
		r.Post("/api/warehouses", h.createWarehouse)
		r.Get("/api/warehouses/usage", h.warehouseUsage)
		r.Get("/api/warehouses/{id}", h.getWarehouse)
		r.Put("/api/warehouses/{id}", h.updateWarehouse)
		r.Delete("/api/warehouses/{id}", h.deleteWarehouse)

		r.Get("/api/suppliers", h.listSuppliers)
		r.Post("/api/suppliers", h.createSupplier)
		r.Get("/api/suppliers/{id}", h.getSupplier)
		r.Put("/api/suppliers/{id}", h.updateSupplier)
		r.Delete("/api/suppliers/{id}", h.deleteSupplier)

		r.Get("/api/categories", h.listCategories)
		r.Post("/api/categories", h.createCategory)
		r.Get("/api/categories/{id}", h.getCategory)
		r.Put("/api/categories/{id}", h.updateCategory)
		r.Delete("/api/categories/{id}", h.deleteCategory)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// idParam parses the {id} URL parameter, writing the error response itself
// on failure.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter, returning fallback when
// absent or malformed.
func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
