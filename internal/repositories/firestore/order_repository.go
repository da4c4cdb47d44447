package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	pfirestore "github.com/kurumsal-tedarikci/api/internal/platform/firestore"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

const orderCollection = "orders"

// OrderRepository persists order aggregates, including the address snapshots
// captured at checkout time.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil)
	return &OrderRepository{base: base, provider: provider}, nil
}

// Insert stores a new order. A duplicate document ID surfaces as a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update replaces the persisted order state with the provided snapshot.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	if _, err := r.base.Set(ctx, orderID, encodeOrderDocument(order)); err != nil {
		return err
	}
	return nil
}

// FindByID fetches a single order aggregate.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrderDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns orders matching the filter ordered by creation time, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
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
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	owner := strings.TrimSpace(filter.OwnerUserID)
	statusFilters := make([]string, 0, len(filter.Status))
	for _, s := range filter.Status {
		if trimmed := strings.TrimSpace(string(s)); trimmed != "" {
			statusFilters = append(statusFilters, trimmed)
		}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if owner != "" {
			q = q.Where("ownerUserId", "==", owner)
		}
		if len(statusFilters) == 1 {
			q = q.Where("status", "==", statusFilters[0])
		} else if len(statusFilters) > 1 {
			// Firestore in clause supports up to 10 values.
			if len(statusFilters) > 10 {
				statusFilters = statusFilters[:10]
			}
			q = q.Where("status", "in", statusFilters)
		}
		if filter.ErpSync != nil {
			q = q.Where("erpSync", "==", *filter.ErpSync)
		}
		if filter.CreatedAfter != nil && !filter.CreatedAfter.IsZero() {
			q = q.Where("createdAt", ">=", filter.CreatedAfter.UTC())
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
		return domain.CursorPage[domain.Order]{}, err
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

	items := make([]domain.Order, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeOrderDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}

	return domain.CursorPage[domain.Order]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// Count returns the total number of orders using a server-side aggregation.
func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("order repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	return runCountAggregation(ctx, "orders.count", client.Collection(orderCollection).Query)
}

// CountByStatus returns the number of orders currently in the given status.
func (r *OrderRepository) CountByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("order repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	query := client.Collection(orderCollection).Query.Where("status", "==", string(status))
	return runCountAggregation(ctx, "orders.countByStatus", query)
}

// ListCreatedSince returns orders created at or after the cutoff, oldest first.
func (r *OrderRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("createdAt", ">=", since.UTC()).OrderBy("createdAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrderDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return orders, nil
}

type orderDocument struct {
	Number           string              `firestore:"number"`
	OwnerUserID      string              `firestore:"ownerUserId"`
	CustomerEmail    string              `firestore:"customerEmail"`
	Items            []orderItemDocument `firestore:"items"`
	Subtotal         float64             `firestore:"subtotal"`
	Tax              float64             `firestore:"tax"`
	Total            float64             `firestore:"total"`
	PaymentMethod    string              `firestore:"paymentMethod"`
	Status           string              `firestore:"status"`
	ShippingAddress  addressDocument     `firestore:"shippingAddress"`
	InvoiceAddress   addressDocument     `firestore:"invoiceAddress"`
	ErpSync          bool                `firestore:"erpSync"`
	ErpSaleNumber    string              `firestore:"erpSaleNumber,omitempty"`
	ErpForwardToken  string              `firestore:"erpForwardToken,omitempty"`
	ErpForwardExpiry *time.Time          `firestore:"erpForwardExpiry,omitempty"`
	LastErpError     string              `firestore:"lastErpError,omitempty"`
	Shipment         *shipmentDocument   `firestore:"shipment,omitempty"`
	CreatedAt        time.Time           `firestore:"createdAt"`
	UpdatedAt        time.Time           `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID string  `firestore:"productId,omitempty"`
	Title     string  `firestore:"title"`
	UnitPrice float64 `firestore:"unitPrice"`
	Quantity  int64   `firestore:"quantity"`
	LineTotal float64 `firestore:"lineTotal"`
}

type shipmentDocument struct {
	Carrier        string     `firestore:"carrier"`
	TrackingNumber string     `firestore:"trackingNumber,omitempty"`
	PieceCount     int        `firestore:"pieceCount,omitempty"`
	Weight         float64    `firestore:"weight,omitempty"`
	Status         string     `firestore:"status"`
	ShippedAt      *time.Time `firestore:"shippedAt,omitempty"`
	DeliveredAt    *time.Time `firestore:"deliveredAt,omitempty"`
}

func encodeOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		Number:          strings.TrimSpace(order.Number),
		OwnerUserID:     strings.TrimSpace(order.OwnerUserID),
		CustomerEmail:   strings.ToLower(strings.TrimSpace(order.CustomerEmail)),
		Subtotal:        order.Totals.Subtotal.InexactFloat64(),
		Tax:             order.Totals.Tax.InexactFloat64(),
		Total:           order.Totals.Total.InexactFloat64(),
		PaymentMethod:   string(order.PaymentMethod),
		Status:          string(order.Status),
		ShippingAddress: encodeAddressSnapshot(order.ShippingAddress),
		InvoiceAddress:  encodeAddressSnapshot(order.InvoiceAddress),
		ErpSync:         order.ErpSync,
		ErpSaleNumber:   strings.TrimSpace(order.ErpSaleNumber),
		ErpForwardToken: order.ErpForward.Token,
		LastErpError:    strings.TrimSpace(order.LastErpError),
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
	}
	if !order.ErpForward.ExpiresAt.IsZero() {
		expiry := order.ErpForward.ExpiresAt.UTC()
		doc.ErpForwardExpiry = &expiry
	}
	if len(order.Items) > 0 {
		doc.Items = make([]orderItemDocument, 0, len(order.Items))
		for _, item := range order.Items {
			doc.Items = append(doc.Items, orderItemDocument{
				ProductID: strings.TrimSpace(item.ProductID),
				Title:     strings.TrimSpace(item.Title),
				UnitPrice: item.UnitPrice.InexactFloat64(),
				Quantity:  item.Quantity,
				LineTotal: item.LineTotal.InexactFloat64(),
			})
		}
	}
	if order.Shipment.Status != "" || order.Shipment.Carrier != "" {
		doc.Shipment = &shipmentDocument{
			Carrier:        strings.TrimSpace(order.Shipment.Carrier),
			TrackingNumber: strings.TrimSpace(order.Shipment.TrackingNumber),
			PieceCount:     order.Shipment.PieceCount,
			Weight:         order.Shipment.Weight,
			Status:         string(order.Shipment.Status),
			ShippedAt:      normaliseTimePtr(order.Shipment.ShippedAt),
			DeliveredAt:    normaliseTimePtr(order.Shipment.DeliveredAt),
		}
	}
	return doc
}

func decodeOrderDocument(id string, doc orderDocument, createTime, updateTime time.Time) domain.Order {
	order := domain.Order{
		ID:            id,
		Number:        doc.Number,
		OwnerUserID:   doc.OwnerUserID,
		CustomerEmail: doc.CustomerEmail,
		Totals: domain.OrderTotals{
			Subtotal: decimal.NewFromFloat(doc.Subtotal),
			Tax:      decimal.NewFromFloat(doc.Tax),
			Total:    decimal.NewFromFloat(doc.Total),
		},
		PaymentMethod:   domain.PaymentMethod(doc.PaymentMethod),
		Status:          domain.OrderStatus(doc.Status),
		ShippingAddress: doc.ShippingAddress.toDomain(""),
		InvoiceAddress:  doc.InvoiceAddress.toDomain(""),
		ErpSync:         doc.ErpSync,
		ErpSaleNumber:   doc.ErpSaleNumber,
		ErpForward:      domain.ForwardCredential{Token: doc.ErpForwardToken},
		LastErpError:    doc.LastErpError,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	if doc.ErpForwardExpiry != nil {
		order.ErpForward.ExpiresAt = *doc.ErpForwardExpiry
	}
	if len(doc.Items) > 0 {
		order.Items = make([]domain.OrderItem, 0, len(doc.Items))
		for _, item := range doc.Items {
			order.Items = append(order.Items, domain.OrderItem{
				ProductID: item.ProductID,
				Title:     item.Title,
				UnitPrice: decimal.NewFromFloat(item.UnitPrice),
				Quantity:  item.Quantity,
				LineTotal: decimal.NewFromFloat(item.LineTotal),
			})
		}
	}
	if doc.Shipment != nil {
		order.Shipment = domain.ShipmentInfo{
			Carrier:        doc.Shipment.Carrier,
			TrackingNumber: doc.Shipment.TrackingNumber,
			PieceCount:     doc.Shipment.PieceCount,
			Weight:         doc.Shipment.Weight,
			Status:         domain.ShipmentStatus(doc.Shipment.Status),
			ShippedAt:      doc.Shipment.ShippedAt,
			DeliveredAt:    doc.Shipment.DeliveredAt,
		}
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = createTime
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = updateTime
	}
	return order
}

func encodeAddressSnapshot(addr domain.Address) addressDocument {
	return addressDocument{
		Title:         strings.TrimSpace(addr.Title),
		FullName:      strings.TrimSpace(addr.FullName),
		Phone:         strings.TrimSpace(addr.Phone),
		City:          strings.TrimSpace(addr.City),
		District:      strings.TrimSpace(addr.District),
		StreetAddress: strings.TrimSpace(addr.StreetAddress),
		IsDefault:     false,
		CreatedAt:     addr.CreatedAt.UTC(),
		UpdatedAt:     addr.UpdatedAt.UTC(),
	}
}

func normaliseTimePtr(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
