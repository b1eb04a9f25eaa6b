package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pdv-engine/pkg/pagination"
)

// ProductHandler serves catalog lookups
type ProductHandler struct {
	catalog *service.CatalogService
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// Search lists active products matching ?search= by name or code
func (h *ProductHandler) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	result, err := h.catalog.SearchProducts(c.Request.Context(), c.Query("search"), &pagination.PaginationParams{
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Products retrieved successfully", result)
}

// GetByCode returns the product with a barcode
func (h *ProductHandler) GetByCode(c *gin.Context) {
	product, err := h.catalog.GetProductByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Product retrieved successfully", product)
}
