// Package document_repo provides PostgreSQL implementations for document repositories.
// All documents live in shared tables; every statement carries a tenant_id predicate.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
	"procurement/internal/domain"
	"procurement/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides tenant-scoped header operations for document entities.
// The querier comes from txm when set, otherwise from the TxManager in context.
type BaseDocumentRepo[T any] struct {
	tableName  string
	entityName string
	selectCols []string
	newFn      func() T
	txm        *postgres.TxManager
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	tableName, entityName string,
	selectCols []string,
	newFn func() T,
	txm *postgres.TxManager,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		tableName:  tableName,
		entityName: entityName,
		selectCols: selectCols,
		newFn:      newFn,
		txm:        txm,
	}
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	if r.txm != nil {
		return r.txm.GetQuerier(ctx)
	}
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseDocumentRepo[T]) columnsOf(entity T) map[string]any {
	data := postgres.StructToMap(entity)
	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return filtered
}

// insertHeader inserts the document row.
func (r *BaseDocumentRepo[T]) insertHeader(ctx context.Context, entity T) error {
	data := r.columnsOf(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	sql, args, err := r.Builder().Insert(r.tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert %s: %w", r.tableName, err))
	}
	return nil
}

// updateHeader writes every mutable column with optimistic locking on version.
func (r *BaseDocumentRepo[T]) updateHeader(ctx context.Context, entity T) error {
	data := r.columnsOf(entity)

	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("entity has no 'id' field")
	}
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}
	tenantID := data["tenant_id"]

	set := make(map[string]any, len(data))
	for col, val := range data {
		switch col {
		case "id", "tenant_id", "created_at", "created_by", "number", "version", "updated_at":
			continue
		}
		set[col] = val
	}

	q := r.Builder().
		Update(r.tableName).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entityID, "tenant_id": tenantID, "version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update %s: %w", r.tableName, err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.entityName, entityID)
	}
	return nil
}

// baseSelect selects the document columns of one tenant.
func (r *BaseDocumentRepo[T]) baseSelect(tenantID id.ID) squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"tenant_id": tenantID})
}

// getHeader loads one document; forUpdate takes the row lock.
func (r *BaseDocumentRepo[T]) getHeader(ctx context.Context, tenantID, entityID id.ID, forUpdate bool) (T, error) {
	entity := r.newFn()
	q := r.baseSelect(tenantID).Where(squirrel.Eq{"id": entityID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, entityID.String())
		}
		return entity, postgres.MapError(fmt.Errorf("get %s: %w", r.tableName, err))
	}
	return entity, nil
}

// list counts and pages a filtered select. searchCols are matched with ILIKE.
func (r *BaseDocumentRepo[T]) list(
	ctx context.Context,
	q squirrel.SelectBuilder,
	filter domain.ListFilter,
	searchCols ...string,
) (domain.ListResult[T], error) {
	filter.Normalize()
	result := domain.ListResult[T]{
		Items:  make([]T, 0),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.Search != "" && len(searchCols) > 0 {
		pattern := "%" + filter.Search + "%"
		or := make(squirrel.Or, 0, len(searchCols))
		for _, col := range searchCols {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, postgres.MapError(fmt.Errorf("count: %w", err))
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, postgres.MapError(fmt.Errorf("list %s: %w", r.tableName, err))
	}
	return result, nil
}

func (r *BaseDocumentRepo[T]) parseOrderBy(orderBy string) (string, error) {
	allowed := make(map[string]struct{}, len(r.selectCols))
	for _, col := range r.selectCols {
		allowed[col] = struct{}{}
	}

	if strings.TrimSpace(orderBy) == "" {
		return "created_at DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if _, ok := allowed[field]; !ok || field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	return field + " " + direction, nil
}

// --- Line tables ---

// lineColumns returns the db columns of line type L, parent key first.
func lineColumns[L any](parentCol string) []string {
	return append([]string{parentCol}, postgres.ExtractDBColumns[L]()...)
}

// insertLines writes lines in one multi-row INSERT.
func insertLines[L any](ctx context.Context, q postgres.Querier, table, parentCol string, parentID id.ID, lines []L) error {
	if len(lines) == 0 {
		return nil
	}

	cols := lineColumns[L](parentCol)
	ins := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert(table).
		Columns(cols...)
	for _, line := range lines {
		data := postgres.StructToMap(line)
		values := make([]any, 0, len(cols))
		values = append(values, parentID)
		for _, col := range cols[1:] {
			values = append(values, data[col])
		}
		ins = ins.Values(values...)
	}

	sql, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert %s: %w", table, err))
	}
	return nil
}

// selectLines loads the lines of one parent ordered by line_no.
func selectLines[L any](ctx context.Context, q postgres.Querier, table, parentCol string, parentID id.ID) ([]L, error) {
	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(postgres.ExtractDBColumns[L]()...).
		From(table).
		Where(squirrel.Eq{parentCol: parentID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lines := make([]L, 0)
	if err := pgxscan.Select(ctx, q, &lines, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select %s: %w", table, err))
	}
	return lines, nil
}

// deleteLines removes all lines of one parent.
func deleteLines(ctx context.Context, q postgres.Querier, table, parentCol string, parentID id.ID) error {
	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Delete(table).
		Where(squirrel.Eq{parentCol: parentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete lines: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("delete %s: %w", table, err))
	}
	return nil
}

func notFoundLine(lineID id.ID) error {
	return apperror.NewNotFound("DocumentLine", lineID.String())
}
