package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	pfirestore "github.com/kurumsal-tedarikci/api/internal/platform/firestore"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

const productCollection = "products"

// ProductRepository persists catalog products together with their embedded
// stock movement ledger.
type ProductRepository struct {
	base     *pfirestore.BaseRepository[productDocument]
	provider *pfirestore.Provider
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil)
	return &ProductRepository{base: base, provider: provider}, nil
}

// Insert stores a new product. A duplicate document ID surfaces as a conflict.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, productID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeProductDocument(product)); err != nil {
		return pfirestore.WrapError("products.insert", err)
	}
	return nil
}

// Update replaces the persisted product state with the provided snapshot.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	if _, err := r.base.Set(ctx, productID, encodeProductDocument(product)); err != nil {
		return err
	}
	return nil
}

// Delete removes the product document permanently.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	docRef, err := r.base.DocumentRef(ctx, strings.TrimSpace(productID))
	if err != nil {
		return err
	}
	if _, err := docRef.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("products.delete", err)
	}
	return nil
}

// FindByID fetches a single product with its movement ledger.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// FindBySKU resolves the product registered under the given stock keeping unit.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	normalised := strings.ToUpper(strings.TrimSpace(sku))
	if normalised == "" {
		return domain.Product{}, errors.New("product repository: sku is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("sku", "==", normalised).Limit(1)
	})
	if err != nil {
		return domain.Product{}, err
	}
	if len(docs) == 0 {
		return domain.Product{}, pfirestore.WrapError("products.findBySku", status.Error(codes.NotFound, "product not found"))
	}
	doc := docs[0]
	return decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns products ordered by creation time, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeCursorToken(token)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("product repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	category := strings.TrimSpace(filter.Category)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.OnlyActive {
			q = q.Where("isActive", "==", true)
		}
		if category != "" {
			q = q.Where("category", "==", category)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeCursorToken(tokenTime, last.ID)
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.Product, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}

	return domain.CursorPage[domain.Product]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// Count returns the total number of products using a server-side aggregation.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("product repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	return runCountAggregation(ctx, "products.count", client.Collection(productCollection).Query)
}

// ApplyMovement adjusts the stock level and appends the ledger entry inside one
// transaction. StockBefore/StockAfter are stamped from the stored document and
// an out movement exceeding availability fails without touching the document.
func (r *ProductRepository) ApplyMovement(ctx context.Context, productID string, movement domain.StockMovement) (domain.Product, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	switch movement.Type {
	case domain.MovementIn, domain.MovementOut:
		if movement.Quantity <= 0 {
			return domain.Product{}, repositories.NewStockError(repositories.StockErrorInvalidMovement, "movement quantity must be positive", nil)
		}
	case domain.MovementAdjustment:
		if movement.Quantity < 0 {
			return domain.Product{}, repositories.NewStockError(repositories.StockErrorInvalidMovement, "adjustment quantity must not be negative", nil)
		}
	default:
		return domain.Product{}, repositories.NewStockError(repositories.StockErrorInvalidMovement, fmt.Sprintf("unknown movement type %q", movement.Type), nil)
	}

	var applied domain.Product
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docRef, err := r.base.DocumentRef(ctx, productID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewStockError(repositories.StockErrorProductNotFound, "product not found", err)
			}
			return err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}

		before := doc.Stock
		var after int64
		switch movement.Type {
		case domain.MovementIn:
			after = before + movement.Quantity
		case domain.MovementOut:
			after = before - movement.Quantity
			if after < 0 {
				return repositories.NewStockError(repositories.StockErrorInsufficientStock, "insufficient stock", nil)
			}
		case domain.MovementAdjustment:
			after = movement.Quantity
		}

		occurredAt := movement.OccurredAt.UTC()
		if occurredAt.IsZero() {
			occurredAt = time.Now().UTC()
		}
		entry := movementDocument{
			Type:        string(movement.Type),
			Quantity:    movement.Quantity,
			StockBefore: before,
			StockAfter:  after,
			Reason:      strings.TrimSpace(movement.Reason),
			ActorUserID: strings.TrimSpace(movement.ActorUserID),
			OccurredAt:  occurredAt,
		}

		doc.Stock = after
		doc.Movements = append(doc.Movements, entry)
		doc.UpdatedAt = occurredAt

		if err := tx.Set(docRef, doc); err != nil {
			return err
		}
		applied = decodeProductDocument(docRef.ID, doc, snap.CreateTime, occurredAt)
		return nil
	})
	if err != nil {
		var stockErr *repositories.StockError
		if errors.As(err, &stockErr) {
			return domain.Product{}, stockErr
		}
		return domain.Product{}, pfirestore.WrapError("products.applyMovement", err)
	}
	return applied, nil
}

type productDocument struct {
	Name      string             `firestore:"name"`
	SKU       string             `firestore:"sku"`
	Price     float64            `firestore:"price"`
	CostPrice float64            `firestore:"costPrice"`
	Stock     int64              `firestore:"stock"`
	MinStock  int64              `firestore:"minStock"`
	MaxStock  int64              `firestore:"maxStock"`
	Category  string             `firestore:"category,omitempty"`
	Unit      string             `firestore:"unit,omitempty"`
	IsActive  bool               `firestore:"isActive"`
	Movements []movementDocument `firestore:"movements"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type movementDocument struct {
	Type        string    `firestore:"type"`
	Quantity    int64     `firestore:"quantity"`
	StockBefore int64     `firestore:"stockBefore"`
	StockAfter  int64     `firestore:"stockAfter"`
	Reason      string    `firestore:"reason,omitempty"`
	ActorUserID string    `firestore:"actorUserId,omitempty"`
	OccurredAt  time.Time `firestore:"occurredAt"`
}

func encodeProductDocument(product domain.Product) productDocument {
	doc := productDocument{
		Name:      strings.TrimSpace(product.Name),
		SKU:       strings.ToUpper(strings.TrimSpace(product.SKU)),
		Price:     product.Price.InexactFloat64(),
		CostPrice: product.CostPrice.InexactFloat64(),
		Stock:     product.Stock,
		MinStock:  product.MinStock,
		MaxStock:  product.MaxStock,
		Category:  strings.TrimSpace(product.Category),
		Unit:      strings.TrimSpace(product.Unit),
		IsActive:  product.IsActive,
		CreatedAt: product.CreatedAt.UTC(),
		UpdatedAt: product.UpdatedAt.UTC(),
	}
	if len(product.Movements) > 0 {
		doc.Movements = make([]movementDocument, 0, len(product.Movements))
		for _, m := range product.Movements {
			doc.Movements = append(doc.Movements, movementDocument{
				Type:        string(m.Type),
				Quantity:    m.Quantity,
				StockBefore: m.StockBefore,
				StockAfter:  m.StockAfter,
				Reason:      strings.TrimSpace(m.Reason),
				ActorUserID: strings.TrimSpace(m.ActorUserID),
				OccurredAt:  m.OccurredAt.UTC(),
			})
		}
	}
	return doc
}

func decodeProductDocument(id string, doc productDocument, createTime, updateTime time.Time) domain.Product {
	product := domain.Product{
		ID:        id,
		Name:      doc.Name,
		SKU:       doc.SKU,
		Price:     decimal.NewFromFloat(doc.Price),
		CostPrice: decimal.NewFromFloat(doc.CostPrice),
		Stock:     doc.Stock,
		MinStock:  doc.MinStock,
		MaxStock:  doc.MaxStock,
		Category:  doc.Category,
		Unit:      doc.Unit,
		IsActive:  doc.IsActive,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if len(doc.Movements) > 0 {
		product.Movements = make([]domain.StockMovement, 0, len(doc.Movements))
		for _, m := range doc.Movements {
			product.Movements = append(product.Movements, domain.StockMovement{
				Type:        domain.MovementType(m.Type),
				Quantity:    m.Quantity,
				StockBefore: m.StockBefore,
				StockAfter:  m.StockAfter,
				Reason:      m.Reason,
				ActorUserID: m.ActorUserID,
				OccurredAt:  m.OccurredAt,
			})
		}
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = createTime
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = updateTime
	}
	return product
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
