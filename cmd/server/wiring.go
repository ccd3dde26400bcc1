package main

import (
	"context"
	"fmt"

	"procurement/internal/config"
	"procurement/internal/core/sequence"
	"procurement/internal/core/tx"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/catalogs/supplier"
	"procurement/internal/domain/documents/goods_receipt"
	"procurement/internal/domain/documents/payment_out"
	"procurement/internal/domain/documents/purchase_bill"
	"procurement/internal/domain/documents/purchase_order"
	"procurement/internal/domain/events"
	"procurement/internal/domain/reports"
	"procurement/internal/domain/settings"
	v1 "procurement/internal/infrastructure/http/v1"
	"procurement/internal/infrastructure/http/v1/handlers"
	"procurement/internal/infrastructure/http/v1/middleware"
	pgsequence "procurement/internal/infrastructure/sequence"
	"procurement/internal/infrastructure/storage/memory"
	"procurement/internal/infrastructure/storage/postgres"
	"procurement/internal/infrastructure/storage/postgres/catalog_repo"
	"procurement/internal/infrastructure/storage/postgres/document_repo"
	"procurement/internal/infrastructure/storage/postgres/report_repo"
	"procurement/internal/infrastructure/storage/postgres/settings_repo"
)

// app is the storage-dependent part of the server.
type app struct {
	TxManager    tx.Manager
	Services     v1.Services
	Idempotency  middleware.IdempotencyStore
	HealthChecks map[string]handlers.HealthCheck

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// repositories is the set of stores a driver supplies to the services.
type repositories struct {
	products  product.Repository
	suppliers supplier.Repository
	orders    purchase_order.Repository
	receipts  goods_receipt.Repository
	bills     purchase_bill.Repository
	payments  payment_out.Repository
	settings  settings.Repository
	reports   reports.Repository
	numbers   sequence.Generator
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	switch cfg.Database.Driver {
	case config.StorageMemory:
		return buildMemoryApp(cfg)
	case config.StoragePostgres:
		return buildPostgresApp(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Database.Driver)
	}
}

func buildMemoryApp(cfg *config.Config) (*app, error) {
	store := memory.NewStore()
	repos := repositories{
		products:  store.Products(),
		suppliers: store.Suppliers(),
		orders:    store.Orders(),
		receipts:  store.Receipts(),
		bills:     store.Bills(),
		payments:  store.Payments(),
		settings:  store.Settings(),
		reports:   store.Reports(),
		numbers:   store.Sequence(),
	}

	services, err := buildServices(cfg, repos, store, events.Nop)
	if err != nil {
		return nil, err
	}
	return &app{
		TxManager:    store,
		Services:     services,
		HealthChecks: map[string]handlers.HealthCheck{},
	}, nil
}

func buildPostgresApp(ctx context.Context, cfg *config.Config) (*app, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.LockTimeout = cfg.Database.LockTimeout

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a := &app{closers: []func(){pool.Close}}

	txm := postgres.NewTxManager(pool)
	repos := repositories{
		products:  catalog_repo.NewProductRepo(txm),
		suppliers: catalog_repo.NewSupplierRepo(txm),
		orders:    document_repo.NewPurchaseOrderRepo(txm),
		receipts:  document_repo.NewGoodsReceiptRepo(txm),
		bills:     document_repo.NewPurchaseBillRepo(txm),
		payments:  document_repo.NewPaymentOutRepo(txm),
		settings:  settings_repo.New(txm),
		reports:   report_repo.NewReportRepo(txm),
		numbers:   pgsequence.NewFromContext(),
	}

	audit, err := postgres.NewAuditService()
	if err != nil {
		a.Close()
		return nil, err
	}
	publisher := events.Multi{postgres.NewOutboxPublisher(), audit}

	services, err := buildServices(cfg, repos, txm, publisher)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.TxManager = txm
	a.Services = services
	a.HealthChecks = map[string]handlers.HealthCheck{
		"database": pool.Check,
	}
	if cfg.Idempotency.Enabled {
		a.Idempotency = postgres.NewIdempotencyStore(txm, cfg.Idempotency.TTL)
	}
	return a, nil
}

func buildServices(cfg *config.Config, r repositories, txm tx.Manager, pub events.Publisher) (v1.Services, error) {
	igtf, err := payment_out.NewIGTFPolicy(cfg.Ledger.IGTFPolicy)
	if err != nil {
		return v1.Services{}, fmt.Errorf("igtf policy: %w", err)
	}
	retries := cfg.Ledger.TxRetryAttempts

	return v1.Services{
		Products:  product.NewService(r.products, txm, pub),
		Suppliers: supplier.NewService(r.suppliers, txm, pub),
		Orders:    purchase_order.NewService(r.orders, r.products, r.suppliers, r.numbers, txm, pub),
		Receipts: goods_receipt.NewService(r.receipts, r.orders, r.products, txm, pub).
			WithRetryAttempts(retries),
		Bills: purchase_bill.NewService(r.bills, r.orders, r.suppliers, txm, pub).
			WithRetryAttempts(retries),
		Payments: payment_out.NewService(r.payments, r.bills, r.numbers, igtf, txm, pub).
			WithRetryAttempts(retries),
		Settings: settings.NewService(r.settings, txm, pub),
		Reports:  reports.NewService(r.reports),
	}, nil
}
