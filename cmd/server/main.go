package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	webAdapter "inventory-ledger/internal/adapters/web"
	"inventory-ledger/internal/cache"
	"inventory-ledger/internal/config"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/db"
	"inventory-ledger/internal/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logg, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logg.Sync()

	if cfg.Auth.JWTSecret == "" {
		logg.Fatal("JWT_SECRET must be set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		logg.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	var store cache.Store
	if cfg.Cache.RedisAddr != "" {
		rdb, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			logg.Fatal("redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		store = rdb
		logg.Info("using redis cache", zap.String("addr", cfg.Cache.RedisAddr))
	} else {
		mem := cache.NewMemory()
		mem.StartPurge(ctx, time.Minute)
		store = mem
		logg.Info("using in-process cache")
	}

	users := core.NewUserService(pool)
	svc := webAdapter.Services{
		Operations: core.NewOperationService(pool, store, logg),
		Ledger:     core.NewLedgerService(pool, users),
		Reports:    core.NewReportingService(pool, store, logg),
		Items:      core.NewInventoryService(pool),
		Warehouses: core.NewWarehouseService(pool),
		Suppliers:  core.NewSupplierService(pool),
		Categories: core.NewCategoryService(pool),
		Users:      users,
	}

	handler := webAdapter.NewHandler(svc, store, cfg, logg)

	logg.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := http.ListenAndServe(":"+cfg.Server.Port, handler); err != nil {
		logg.Fatal("server stopped", zap.Error(err))
	}
}
