package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pdv-engine/internal/application/service"
	"github.com/sangkips/pdv-engine/internal/presentation/http/dto/response"
)

// CustomerHandler serves customer lookups
type CustomerHandler struct {
	catalog *service.CatalogService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(catalog *service.CatalogService) *CustomerHandler {
	return &CustomerHandler{catalog: catalog}
}

// GetByDocument finds a customer by CPF or CNPJ
func (h *CustomerHandler) GetByDocument(c *gin.Context) {
	customer, err := h.catalog.GetCustomerByDocument(c.Request.Context(), c.Param("document"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Customer retrieved successfully", customer)
}
