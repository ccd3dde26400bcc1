// Package main seeds a tenant with demo master data and prints a development
// access token for it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"procurement/internal/config"
	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/core/tenant"
	"procurement/internal/domain/auth"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/catalogs/supplier"
	"procurement/internal/domain/events"
	"procurement/internal/infrastructure/storage/postgres"
	"procurement/internal/infrastructure/storage/postgres/catalog_repo"
	"procurement/pkg/logger"
)

var demoSuppliers = []struct{ taxID, name string }{
	{"J-30123456-7", "Distribuidora Caracas C.A."},
	{"J-40987654-3", "Importadora del Centro S.A."},
	{"J-29555111-0", "Papeleria Oriental C.A."},
}

var demoProducts = []struct{ code, name string }{
	{"P-0001", "Resma papel carta"},
	{"P-0002", "Toner negro"},
	{"P-0003", "Silla de oficina"},
	{"P-0004", "Cable UTP cat6 (m)"},
}

func main() {
	tenantFlag := flag.String("tenant", "", "tenant id to seed (a new one is generated when empty)")
	userFlag := flag.String("user", "seed-admin", "user id placed in the printed token")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: true, Service: "seed"})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	tenantID := id.New()
	if *tenantFlag != "" {
		if tenantID, err = id.Parse(*tenantFlag); err != nil {
			log.Fatalw("invalid tenant id", "tenant", *tenantFlag, "error", err)
		}
	}

	ctx := context.Background()

	if cfg.Database.Driver == config.StoragePostgres {
		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.URL))
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()

		txm := postgres.NewTxManager(pool)
		ctx = tenant.WithTenantID(tenant.WithTxManager(ctx, txm), tenantID)

		if err := seedCatalogs(ctx, txm, tenantID); err != nil {
			log.Fatalw("failed to seed catalogs", "error", err)
		}
	} else {
		log.Warnw("memory storage is not persistent, only the token is issued", "driver", cfg.Database.Driver)
	}

	jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtCfg.Issuer = cfg.JWT.Issuer
	jwtCfg.AccessTokenTTL = *tokenTTL
	token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(
		*userFlag, tenantID.String(), "", []string{"admin"}, true)
	if err != nil {
		log.Fatalw("failed to issue token", "error", err)
	}

	fmt.Printf("tenant:  %s\n", tenantID)
	fmt.Printf("expires: %s\n", expiresAt.Format(time.RFC3339))
	fmt.Printf("token:   %s\n", token)
}

func seedCatalogs(ctx context.Context, txm *postgres.TxManager, tenantID id.ID) error {
	publisher := events.Multi{postgres.NewOutboxPublisher()}
	suppliers := supplier.NewService(catalog_repo.NewSupplierRepo(txm), txm, publisher)
	products := product.NewService(catalog_repo.NewProductRepo(txm), txm, publisher)

	created, skipped := 0, 0
	count := func(err error) error {
		switch {
		case err == nil:
			created++
		case apperror.HasCode(err, apperror.CodeDuplicate):
			skipped++
		default:
			return err
		}
		return nil
	}

	for _, s := range demoSuppliers {
		if err := count(suppliers.Create(ctx, supplier.NewSupplier(tenantID, s.taxID, s.name))); err != nil {
			return fmt.Errorf("supplier %s: %w", s.taxID, err)
		}
	}
	for _, p := range demoProducts {
		if err := count(products.Create(ctx, product.NewProduct(tenantID, p.code, p.name))); err != nil {
			return fmt.Errorf("product %s: %w", p.code, err)
		}
	}

	logger.Info(ctx, "catalogs seeded", "created", created, "skipped", skipped)
	return nil
}
