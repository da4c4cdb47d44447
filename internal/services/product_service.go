package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

const (
	productIDPrefix = "prd_"

	stockScanPageSize = 200
)

var (
	// ErrProductInvalidInput signals the caller provided invalid catalog data.
	ErrProductInvalidInput = errors.New("product: invalid input")
	// ErrProductNotFound indicates the product could not be located.
	ErrProductNotFound = errors.New("product: not found")
	// ErrProductSKUTaken indicates another product already carries the SKU.
	ErrProductSKUTaken = errors.New("product: sku already in use")
	// ErrProductInsufficientStock indicates a movement would drive stock negative.
	ErrProductInsufficientStock = errors.New("product: insufficient stock")
)

// ProductServiceDeps bundles collaborators required to construct the product service.
type ProductServiceDeps struct {
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type productService struct {
	products repositories.ProductRepository
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewProductService wires dependencies into a concrete ProductService implementation.
func NewProductService(deps ProductServiceDeps) (ProductService, error) {
	if deps.Products == nil {
		return nil, errors.New("product service: product repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &productService{
		products: deps.Products,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *productService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrProductInvalidInput)
	}
	sku := strings.ToUpper(strings.TrimSpace(cmd.SKU))
	if sku == "" {
		return Product{}, fmt.Errorf("%w: sku is required", ErrProductInvalidInput)
	}
	if cmd.Price.IsNegative() || cmd.Price.IsZero() {
		return Product{}, fmt.Errorf("%w: price must be positive", ErrProductInvalidInput)
	}
	if cmd.CostPrice.IsNegative() {
		return Product{}, fmt.Errorf("%w: cost price cannot be negative", ErrProductInvalidInput)
	}
	if cmd.InitialStock < 0 || cmd.MinStock < 0 || cmd.MaxStock < 0 {
		return Product{}, fmt.Errorf("%w: stock levels cannot be negative", ErrProductInvalidInput)
	}
	if cmd.MaxStock > 0 && cmd.MaxStock < cmd.MinStock {
		return Product{}, fmt.Errorf("%w: max stock cannot be below min stock", ErrProductInvalidInput)
	}

	if _, err := s.products.FindBySKU(ctx, sku); err == nil {
		return Product{}, ErrProductSKUTaken
	} else if !isRepoNotFound(err) {
		return Product{}, err
	}

	now := s.clock()
	product := domain.Product{
		ID:        productIDPrefix + s.newID(),
		Name:      name,
		SKU:       sku,
		Price:     cmd.Price,
		CostPrice: cmd.CostPrice,
		Stock:     cmd.InitialStock,
		MinStock:  cmd.MinStock,
		MaxStock:  cmd.MaxStock,
		Category:  strings.TrimSpace(cmd.Category),
		Unit:      strings.TrimSpace(cmd.Unit),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.products.Insert(ctx, product); err != nil {
		if isRepoConflict(err) {
			return Product{}, ErrProductSKUTaken
		}
		return Product{}, err
	}

	s.logger(ctx, "catalog.product.created", map[string]any{
		"productId": product.ID,
		"sku":       product.SKU,
	})
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return Product{}, fmt.Errorf("%w: name cannot be empty", ErrProductInvalidInput)
		}
		product.Name = name
	}
	if cmd.Price != nil {
		if cmd.Price.IsNegative() || cmd.Price.IsZero() {
			return Product{}, fmt.Errorf("%w: price must be positive", ErrProductInvalidInput)
		}
		product.Price = *cmd.Price
	}
	if cmd.CostPrice != nil {
		if cmd.CostPrice.IsNegative() {
			return Product{}, fmt.Errorf("%w: cost price cannot be negative", ErrProductInvalidInput)
		}
		product.CostPrice = *cmd.CostPrice
	}
	if cmd.MinStock != nil {
		if *cmd.MinStock < 0 {
			return Product{}, fmt.Errorf("%w: min stock cannot be negative", ErrProductInvalidInput)
		}
		product.MinStock = *cmd.MinStock
	}
	if cmd.MaxStock != nil {
		if *cmd.MaxStock < 0 {
			return Product{}, fmt.Errorf("%w: max stock cannot be negative", ErrProductInvalidInput)
		}
		product.MaxStock = *cmd.MaxStock
	}
	if cmd.Category != nil {
		product.Category = strings.TrimSpace(*cmd.Category)
	}
	if cmd.Unit != nil {
		product.Unit = strings.TrimSpace(*cmd.Unit)
	}
	if cmd.IsActive != nil {
		product.IsActive = *cmd.IsActive
	}

	product.UpdatedAt = s.clock()
	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, err
	}
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, productID string, hard bool) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}

	if hard {
		if err := s.products.Delete(ctx, productID); err != nil {
			if isRepoNotFound(err) {
				return ErrProductNotFound
			}
			return err
		}
		s.logger(ctx, "catalog.product.deleted", map[string]any{"productId": productID})
		return nil
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return ErrProductNotFound
		}
		return err
	}
	if !product.IsActive {
		return nil
	}
	product.IsActive = false
	product.UpdatedAt = s.clock()
	if err := s.products.Update(ctx, product); err != nil {
		return err
	}
	s.logger(ctx, "catalog.product.deactivated", map[string]any{"productId": productID})
	return nil
}

func (s *productService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, filter ProductListQuery) (domain.CursorPage[Product], error) {
	return s.products.List(ctx, repositories.ProductListFilter{
		OnlyActive: filter.OnlyActive,
		Category:   strings.TrimSpace(filter.Category),
		Pagination: filter.Pagination,
	})
}

func (s *productService) ListPublicProducts(ctx context.Context, page Pagination) (domain.CursorPage[Product], error) {
	result, err := s.products.List(ctx, repositories.ProductListFilter{
		OnlyActive: true,
		Pagination: page,
	})
	if err != nil {
		return domain.CursorPage[Product]{}, err
	}
	// The storefront never sees cost prices or the movement ledger.
	for i := range result.Items {
		result.Items[i].CostPrice = decimal.Zero
		result.Items[i].Movements = nil
	}
	return result, nil
}

func (s *productService) ApplyStockMovement(ctx context.Context, cmd StockMovementCommand) (StockMovementResult, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return StockMovementResult{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}

	movement := domain.StockMovement{
		Type:        cmd.Type,
		Quantity:    cmd.Quantity,
		Reason:      strings.TrimSpace(cmd.Reason),
		ActorUserID: strings.TrimSpace(cmd.ActorUserID),
		OccurredAt:  s.clock(),
	}

	product, err := s.products.ApplyMovement(ctx, productID, movement)
	if err != nil {
		return StockMovementResult{}, s.mapStockError(err)
	}

	applied := movement
	if n := len(product.Movements); n > 0 {
		applied = product.Movements[n-1]
	}

	s.logger(ctx, "catalog.stock.moved", map[string]any{
		"productId":  product.ID,
		"type":       string(applied.Type),
		"quantity":   applied.Quantity,
		"stockAfter": applied.StockAfter,
	})

	return StockMovementResult{Product: product, Movement: applied}, nil
}

func (s *productService) StockSummary(ctx context.Context) (StockSummaryReport, error) {
	report := StockSummaryReport{
		TotalStockValue: decimal.Zero,
		GeneratedAt:     s.clock(),
	}

	// Firestore cannot compare two document fields in a query, so the
	// low-stock scan walks the catalog page by page.
	var token string
	for {
		page, err := s.products.List(ctx, repositories.ProductListFilter{
			Pagination: Pagination{PageSize: stockScanPageSize, PageToken: token},
		})
		if err != nil {
			return StockSummaryReport{}, err
		}

		for _, product := range page.Items {
			report.TotalProducts++
			if !product.IsActive {
				continue
			}
			report.ActiveProducts++
			report.TotalStockValue = report.TotalStockValue.Add(
				product.CostPrice.Mul(decimal.NewFromInt(product.Stock)))
			if product.LowOnStock() {
				report.LowStock = append(report.LowStock, product)
			}
		}

		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	return report, nil
}

func (s *productService) mapStockError(err error) error {
	if err == nil {
		return nil
	}

	var stockErr *repositories.StockError
	if errors.As(err, &stockErr) {
		switch stockErr.Code {
		case repositories.StockErrorInsufficientStock:
			return fmt.Errorf("%w: %s", ErrProductInsufficientStock, stockErr.Message)
		case repositories.StockErrorInvalidMovement:
			return fmt.Errorf("%w: %s", ErrProductInvalidInput, stockErr.Message)
		case repositories.StockErrorProductNotFound:
			return ErrProductNotFound
		}
	}
	if isRepoNotFound(err) {
		return ErrProductNotFound
	}
	return err
}
