// Package settings_repo stores the per-tenant company_settings row.
package settings_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/domain/settings"
	"procurement/internal/infrastructure/storage/postgres"
)

const table = "company_settings"

var columns = postgres.ExtractDBColumns[settings.CompanySettings]()

// Repo implements settings.Repository.
type Repo struct {
	txm *postgres.TxManager
}

var _ settings.Repository = (*Repo)(nil)

// New creates the repository. A nil txm means the TxManager comes from context.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

func (r *Repo) querier(ctx context.Context) postgres.Querier {
	if r.txm != nil {
		return r.txm.GetQuerier(ctx)
	}
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) GetOrCreate(ctx context.Context, tenantID id.ID) (*settings.CompanySettings, error) {
	return r.load(ctx, tenantID, false)
}

func (r *Repo) GetForUpdate(ctx context.Context, tenantID id.ID) (*settings.CompanySettings, error) {
	return r.load(ctx, tenantID, true)
}

// load inserts the default row if missing, then reads it.
func (r *Repo) load(ctx context.Context, tenantID id.ID, forUpdate bool) (*settings.CompanySettings, error) {
	if id.IsNil(tenantID) {
		return nil, apperror.NewValidation("tenant is required")
	}
	q := r.querier(ctx)

	if _, err := q.Exec(ctx, `
		INSERT INTO company_settings (tenant_id) VALUES ($1)
		ON CONFLICT (tenant_id) DO NOTHING
	`, tenantID); err != nil {
		return nil, postgres.MapError(fmt.Errorf("ensure settings: %w", err))
	}

	sel := builder().Select(columns...).From(table).Where(squirrel.Eq{"tenant_id": tenantID})
	if forUpdate {
		sel = sel.Suffix("FOR UPDATE")
	}
	sql, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var cs settings.CompanySettings
	if err := pgxscan.Get(ctx, q, &cs, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("get settings: %w", err))
	}
	return &cs, nil
}

func (r *Repo) Update(ctx context.Context, cs *settings.CompanySettings) error {
	sql, args, err := builder().
		Update(table).
		Set("payment_prefix", cs.PaymentPrefix).
		Set("next_payment_number", cs.NextPaymentNumber).
		Set("next_iva_sequence", cs.NextIVASequence).
		Set("next_islr_sequence", cs.NextISLRSequence).
		Set("next_order_number", cs.NextOrderNumber).
		Set("fiscal_year", cs.FiscalYear).
		Set("base_currency", cs.BaseCurrency).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"tenant_id": cs.TenantID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&cs.UpdatedAt); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound("company settings", cs.TenantID.String())
		}
		return postgres.MapError(fmt.Errorf("update settings: %w", err))
	}
	return nil
}
