package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"procurement/internal/core/id"
	"procurement/internal/domain"
	"procurement/internal/infrastructure/http/v1/dto"
)

// CatalogService is what product and supplier services have in common.
type CatalogService[T any] interface {
	Create(ctx context.Context, entity T) error
	GetByID(ctx context.Context, tenantID, entityID id.ID) (T, error)
	List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[T], error)
}

// CatalogCreateRequest builds a tenant-owned entity from a request body.
type CatalogCreateRequest[T any] interface {
	ToEntity(tenantID id.ID) T
}

// CatalogHandler provides generic HTTP handlers for catalog entities.
type CatalogHandler[T any, CreateDTO CatalogCreateRequest[T]] struct {
	*BaseHandler
	service CatalogService[T]
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler[T any, CreateDTO CatalogCreateRequest[T]](base *BaseHandler, service CatalogService[T]) *CatalogHandler[T, CreateDTO] {
	return &CatalogHandler[T, CreateDTO]{BaseHandler: base, service: service}
}

// List handles GET /{entity}.
func (h *CatalogHandler[T, CreateDTO]) List(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), tenantID, q.Filter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result))
}

// Get handles GET /{entity}/:id.
func (h *CatalogHandler[T, CreateDTO]) Get(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	entityID, ok := h.PathID(c)
	if !ok {
		return
	}

	entity, err := h.service.GetByID(c.Request.Context(), tenantID, entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entity)
}

// Create handles POST /{entity}.
func (h *CatalogHandler[T, CreateDTO]) Create(c *gin.Context) {
	tenantID, ok := h.TenantID(c)
	if !ok {
		return
	}
	var req CreateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	entity := req.ToEntity(tenantID)
	if err := h.service.Create(c.Request.Context(), entity); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, entity)
}
