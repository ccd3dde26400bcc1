package memory

import (
	"context"
	"time"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	coresequence "procurement/internal/core/sequence"
	"procurement/internal/domain/settings"
)

// SettingsRepo implements settings.Repository.
type SettingsRepo struct{ s *Store }

var _ settings.Repository = (*SettingsRepo)(nil)

func getOrCreate(st *state, tenantID id.ID) settings.CompanySettings {
	cs, ok := st.settings[tenantID]
	if !ok {
		cs = *settings.Defaults(tenantID, time.Now().UTC())
		st.settings[tenantID] = cs
	}
	return cs
}

func (r *SettingsRepo) GetOrCreate(ctx context.Context, tenantID id.ID) (*settings.CompanySettings, error) {
	var out settings.CompanySettings
	err := r.s.with(ctx, func(st *state) error {
		out = getOrCreate(st, tenantID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *SettingsRepo) GetForUpdate(ctx context.Context, tenantID id.ID) (*settings.CompanySettings, error) {
	return r.GetOrCreate(ctx, tenantID)
}

func (r *SettingsRepo) Update(ctx context.Context, cs *settings.CompanySettings) error {
	return r.s.with(ctx, func(st *state) error {
		if err := r.s.hit("settings.Update"); err != nil {
			return err
		}
		if _, ok := st.settings[cs.TenantID]; !ok {
			return notFound("company settings", cs.TenantID)
		}
		cs.UpdatedAt = time.Now().UTC()
		st.settings[cs.TenantID] = *cs
		return nil
	})
}

// Sequence implements sequence.Generator on the settings rows. Inside a
// transaction a rollback restores the counters with the rest of the snapshot.
type Sequence struct{ s *Store }

var _ coresequence.Generator = (*Sequence)(nil)

func (q *Sequence) next(ctx context.Context, tenantID id.ID, counter func(*settings.CompanySettings) *int64) (int64, settings.CompanySettings, error) {
	if id.IsNil(tenantID) {
		return 0, settings.CompanySettings{}, apperror.NewValidation("tenant is required")
	}
	var (
		issued int64
		cs     settings.CompanySettings
	)
	err := q.s.with(ctx, func(st *state) error {
		if err := q.s.hit("sequence.Next"); err != nil {
			return err
		}
		cs = getOrCreate(st, tenantID)
		c := counter(&cs)
		issued = *c
		*c++
		cs.UpdatedAt = time.Now().UTC()
		st.settings[tenantID] = cs
		return nil
	})
	return issued, cs, err
}

// NextPaymentNumber implements sequence.Generator.
func (q *Sequence) NextPaymentNumber(ctx context.Context, tenantID id.ID) (string, error) {
	n, cs, err := q.next(ctx, tenantID, func(cs *settings.CompanySettings) *int64 { return &cs.NextPaymentNumber })
	if err != nil {
		return "", err
	}
	prefix := cs.PaymentPrefix
	if prefix == "" {
		prefix = coresequence.DefaultPaymentPrefix
	}
	return coresequence.FormatPaymentNumber(prefix, n), nil
}

// NextRetentionNumber implements sequence.Generator.
func (q *Sequence) NextRetentionNumber(ctx context.Context, tenantID id.ID, kind coresequence.RetentionKind, at time.Time) (string, error) {
	var counter func(cs *settings.CompanySettings) *int64
	switch kind {
	case coresequence.RetentionIVA:
		counter = func(cs *settings.CompanySettings) *int64 { return &cs.NextIVASequence }
	case coresequence.RetentionISLR:
		counter = func(cs *settings.CompanySettings) *int64 { return &cs.NextISLRSequence }
	default:
		return "", apperror.NewValidation("unknown retention kind").WithDetail("kind", string(kind))
	}
	n, cs, err := q.next(ctx, tenantID, counter)
	if err != nil {
		return "", err
	}
	fiscalYear := cs.FiscalYear
	if fiscalYear == 0 {
		fiscalYear = at.Year()
	}
	return coresequence.FormatRetentionNumber(fiscalYear, at, n), nil
}

// NextOrderNumber implements sequence.Generator.
func (q *Sequence) NextOrderNumber(ctx context.Context, tenantID id.ID) (string, error) {
	n, _, err := q.next(ctx, tenantID, func(cs *settings.CompanySettings) *int64 { return &cs.NextOrderNumber })
	if err != nil {
		return "", err
	}
	return coresequence.FormatOrderNumber(n), nil
}
