package service

import (
	"context"
	"strings"

	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/sangkips/pdv-engine/internal/domain/repository"
	"github.com/sangkips/pdv-engine/pkg/apperror"
	"github.com/sangkips/pdv-engine/pkg/pagination"
)

// CatalogService answers the product and customer lookups a cashier makes
// before adding an item or selecting a customer. The catalog is read-only
// here.
type CatalogService struct {
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(productRepo repository.ProductRepository, customerRepo repository.CustomerRepository) *CatalogService {
	return &CatalogService{productRepo: productRepo, customerRepo: customerRepo}
}

// SearchProducts returns active products whose name or code matches search.
func (s *CatalogService) SearchProducts(ctx context.Context, search string, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Product], error) {
	if params == nil {
		params = pagination.DefaultPagination()
	}
	params.Validate()

	products, total, err := s.productRepo.Search(ctx, &repository.ProductSearchParams{
		Pagination: params,
		Search:     strings.TrimSpace(search),
		ActiveOnly: true,
	})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []entity.Product{}
	}

	return pagination.NewPaginatedResult(products, pagination.NewPagination(params.Page, params.PerPage, total)), nil
}

// GetProductByCode returns the product with a barcode or internal code.
func (s *CatalogService) GetProductByCode(ctx context.Context, code string) (*entity.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.NewBadRequestError("Product code is required")
	}
	p, err := s.productRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NewNotFoundError("Product")
	}
	return p, nil
}

// GetCustomerByDocument finds a customer by CPF or CNPJ, digits only or
// formatted.
func (s *CatalogService) GetCustomerByDocument(ctx context.Context, document string) (*entity.Customer, error) {
	document = entity.NormalizeDocument(document)
	if document == "" {
		return nil, apperror.NewBadRequestError("Customer document is required")
	}
	cu, err := s.customerRepo.GetByDocument(ctx, document)
	if err != nil {
		return nil, err
	}
	if cu == nil {
		return nil, apperror.NewNotFoundError("Customer")
	}
	return cu, nil
}
