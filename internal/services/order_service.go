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
	"github.com/kurumsal-tedarikci/api/internal/notifications"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

const (
	orderIDPrefix = "ord_"

	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"
	orderEventErpSynced     = "order.erp.synced"

	orderNumberCounterPrefix = "orders"
)

// orderTaxRate is the flat VAT applied to every order.
var orderTaxRate = decimal.NewFromFloat(0.20)

var (
	// ErrOrderInvalidInput signals the caller provided invalid order data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderForbidden indicates the actor may not access the order.
	ErrOrderForbidden = errors.New("order: access denied")
	// ErrOrderInvalidTransition indicates a status change outside the lifecycle table.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderCredentialExpired indicates the purchaser's forwarding credential
	// is missing or expired; the purchaser must re-authenticate before a sync.
	ErrOrderCredentialExpired = errors.New("order: forwarding credential expired")
	// ErrOrderErpUnavailable indicates the accounting system rejected or failed the call.
	ErrOrderErpUnavailable = errors.New("order: erp unavailable")
	// ErrOrderUserNotFound indicates the referenced user does not exist.
	ErrOrderUserNotFound = errors.New("order: user not found")
)

var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:          {domain.OrderStatusPreparing, domain.OrderStatusCancelled},
	domain.OrderStatusPreparing:        {domain.OrderStatusShippedToCarrier, domain.OrderStatusCancelled},
	domain.OrderStatusShippedToCarrier: {domain.OrderStatusDelivered, domain.OrderStatusCancelled},
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders    repositories.OrderRepository
	Products  repositories.ProductRepository
	Addresses repositories.AddressRepository
	Users     repositories.UserRepository
	Counters  repositories.CounterRepository
	Erp       ErpGateway
	Events    OrderEventPublisher
	Notifier  Notifier
	// PushOnCreate attempts an immediate ERP sync after checkout. Its failure
	// is recorded on the order and never fails the creation response.
	PushOnCreate bool
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders       repositories.OrderRepository
	products     repositories.ProductRepository
	addresses    repositories.AddressRepository
	users        repositories.UserRepository
	counters     repositories.CounterRepository
	erp          ErpGateway
	events       OrderEventPublisher
	notifier     Notifier
	pushOnCreate bool
	clock        func() time.Time
	newID        func() string
	logger       func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Addresses == nil {
		return nil, errors.New("order service: address repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("order service: user repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
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

	return &orderService{
		orders:       deps.Orders,
		products:     deps.Products,
		addresses:    deps.Addresses,
		users:        deps.Users,
		counters:     deps.Counters,
		erp:          deps.Erp,
		events:       deps.Events,
		notifier:     deps.Notifier,
		pushOnCreate: deps.PushOnCreate,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) CreateFromCart(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return Order{}, fmt.Errorf("%w: cart must contain at least one item", ErrOrderInvalidInput)
	}
	if !domain.ValidPaymentMethod(cmd.PaymentMethod) {
		return Order{}, fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, cmd.PaymentMethod)
	}
	shippingID := strings.TrimSpace(cmd.ShippingAddressID)
	invoiceID := strings.TrimSpace(cmd.InvoiceAddressID)
	if shippingID == "" || invoiceID == "" {
		return Order{}, fmt.Errorf("%w: shipping and invoice address ids are required", ErrOrderInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderUserNotFound
		}
		return Order{}, err
	}

	shipping, err := s.ownedAddress(ctx, userID, shippingID)
	if err != nil {
		return Order{}, err
	}
	invoice := shipping
	if invoiceID != shippingID {
		invoice, err = s.ownedAddress(ctx, userID, invoiceID)
		if err != nil {
			return Order{}, err
		}
	}

	items, err := s.buildOrderItems(ctx, cmd.Items)
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	number, err := s.nextOrderNumber(ctx, now)
	if err != nil {
		return Order{}, err
	}

	order := domain.Order{
		ID:              orderIDPrefix + s.newID(),
		Number:          number,
		OwnerUserID:     userID,
		CustomerEmail:   user.Email,
		Items:           items,
		Totals:          computeOrderTotals(items),
		PaymentMethod:   cmd.PaymentMethod,
		Status:          domain.OrderStatusPending,
		ShippingAddress: shipping,
		InvoiceAddress:  invoice,
		ErpSync:         false,
		ErpForward: domain.ForwardCredential{
			Token:     strings.TrimSpace(cmd.ForwardToken),
			ExpiresAt: cmd.ForwardExpiry,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return Order{}, err
	}

	s.logger(ctx, "order.created", map[string]any{
		"orderId": order.ID,
		"number":  order.Number,
		"total":   order.Totals.Total.StringFixed(2),
	})
	s.publish(ctx, orderEventCreated, order)
	s.notifyOrderConfirmation(ctx, order)

	if s.pushOnCreate && s.erp != nil {
		if synced, err := s.SyncToErp(ctx, order.ID); err != nil {
			s.logger(ctx, "order.erp.push_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
			if refreshed, loadErr := s.orders.FindByID(ctx, order.ID); loadErr == nil {
				order = refreshed
			}
		} else {
			order = synced
		}
	}

	return order, nil
}

func (s *orderService) ListMyOrders(ctx context.Context, userID string, page Pagination) (domain.CursorPage[Order], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	return s.orders.List(ctx, repositories.OrderListFilter{
		OwnerUserID: userID,
		Pagination:  page,
	})
}

func (s *orderService) ListOrders(ctx context.Context, query OrderListQuery) (domain.CursorPage[Order], error) {
	for _, status := range query.Status {
		if !domain.ValidOrderStatus(status) {
			return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
	}
	filter := repositories.OrderListFilter{
		Status:     query.Status,
		Pagination: query.Pagination,
	}
	if query.UnsyncedOnly {
		unsynced := false
		filter.ErpSync = &unsynced
	}
	return s.orders.List(ctx, filter)
}

func (s *orderService) GetOrder(ctx context.Context, orderID string, actor Actor) (Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !actor.CanAccess(order.OwnerUserID) {
		return Order{}, ErrOrderForbidden
	}
	return order, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd TransitionOrderCommand) (Order, error) {
	next := domain.OrderStatus(strings.ToLower(strings.TrimSpace(cmd.NewStatus)))
	if !domain.ValidOrderStatus(next) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.NewStatus)
	}

	order, err := s.loadOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}

	if !transitionAllowed(order.Status, next) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidTransition, order.Status, next)
	}

	now := s.clock()
	previous := order.Status
	order.Status = next
	order.UpdatedAt = now

	switch next {
	case domain.OrderStatusShippedToCarrier:
		if order.Shipment.ShippedAt == nil {
			order.Shipment.ShippedAt = &now
		}
		if order.Shipment.Status == "" {
			order.Shipment.Status = domain.ShipmentHandedToCarrier
		}
	case domain.OrderStatusDelivered:
		order.Shipment.DeliveredAt = &now
		order.Shipment.Status = domain.ShipmentDelivered
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, err
	}

	s.logger(ctx, "order.status.changed", map[string]any{
		"orderId": order.ID,
		"from":    string(previous),
		"to":      string(next),
		"actor":   strings.TrimSpace(cmd.ActorUserID),
	})
	s.publish(ctx, orderEventStatusChanged, order)

	if next == domain.OrderStatusShippedToCarrier || next == domain.OrderStatusDelivered {
		s.notifyStatusChange(ctx, order)
	}

	return order, nil
}

func (s *orderService) UpdateShipment(ctx context.Context, cmd UpdateShipmentCommand) (Order, error) {
	order, err := s.loadOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}

	patch := cmd.Patch
	if patch.Carrier != nil {
		order.Shipment.Carrier = strings.TrimSpace(*patch.Carrier)
	}
	if patch.TrackingNumber != nil {
		order.Shipment.TrackingNumber = strings.TrimSpace(*patch.TrackingNumber)
	}
	if patch.PieceCount != nil {
		if *patch.PieceCount < 0 {
			return Order{}, fmt.Errorf("%w: piece count cannot be negative", ErrOrderInvalidInput)
		}
		order.Shipment.PieceCount = *patch.PieceCount
	}
	if patch.Weight != nil {
		if *patch.Weight < 0 {
			return Order{}, fmt.Errorf("%w: weight cannot be negative", ErrOrderInvalidInput)
		}
		order.Shipment.Weight = *patch.Weight
	}
	if patch.Status != nil {
		order.Shipment.Status = *patch.Status
	}
	if patch.DeliveredAt != nil {
		deliveredAt := patch.DeliveredAt.UTC()
		order.Shipment.DeliveredAt = &deliveredAt
	}

	// Every shipment edit restamps the handover time.
	now := s.clock()
	order.Shipment.ShippedAt = &now
	order.UpdatedAt = now

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *orderService) SyncToErp(ctx context.Context, orderID string) (Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if order.ErpSync {
		return order, nil
	}
	if s.erp == nil {
		return Order{}, fmt.Errorf("%w: gateway not configured", ErrOrderErpUnavailable)
	}
	if order.ErpForward.Expired(s.clock()) {
		return Order{}, ErrOrderCredentialExpired
	}

	customer, err := s.users.FindByID(ctx, order.OwnerUserID)
	if err != nil {
		if !isRepoNotFound(err) {
			return Order{}, err
		}
		// The account may have been removed after purchase; the snapshot
		// still identifies the cari by email.
		customer = domain.User{Email: order.CustomerEmail, Name: order.ShippingAddress.FullName}
	}

	accountID, err := s.erp.FindOrCreateAccount(ctx, customer)
	if err != nil {
		return Order{}, s.recordErpFailure(ctx, order, err)
	}

	saleNumber, err := s.erp.CreateSale(ctx, order, accountID, order.ErpForward.Token)
	if err != nil {
		return Order{}, s.recordErpFailure(ctx, order, err)
	}

	order.ErpSync = true
	order.ErpSaleNumber = saleNumber
	order.LastErpError = ""
	order.UpdatedAt = s.clock()
	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, err
	}

	s.logger(ctx, "order.erp.synced", map[string]any{
		"orderId":    order.ID,
		"saleNumber": saleNumber,
	})
	s.publish(ctx, orderEventErpSynced, order)

	return order, nil
}

func (s *orderService) SyncCari(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if s.erp == nil {
		return "", fmt.Errorf("%w: gateway not configured", ErrOrderErpUnavailable)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return "", ErrOrderUserNotFound
		}
		return "", err
	}

	accountID, err := s.erp.FindOrCreateAccount(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOrderErpUnavailable, err)
	}

	s.logger(ctx, "order.cari.synced", map[string]any{
		"userId":    userID,
		"accountId": accountID,
	})
	return accountID, nil
}

func (s *orderService) loadOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.Order{}, ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	return order, nil
}

func (s *orderService) ownedAddress(ctx context.Context, userID, addressID string) (domain.Address, error) {
	addr, err := s.addresses.Get(ctx, userID, addressID)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.Address{}, fmt.Errorf("%w: address %q not found", ErrOrderInvalidInput, addressID)
		}
		return domain.Address{}, err
	}
	// Snapshots never carry the book's default flag.
	addr.IsDefault = false
	return addr, nil
}

func (s *orderService) buildOrderItems(ctx context.Context, lines []CartLine) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			return nil, fmt.Errorf("%w: cart line product id is required", ErrOrderInvalidInput)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: cart line quantity must be positive", ErrOrderInvalidInput)
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if isRepoNotFound(err) {
				return nil, fmt.Errorf("%w: product %q not found", ErrOrderInvalidInput, productID)
			}
			return nil, err
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: product %q is not orderable", ErrOrderInvalidInput, productID)
		}

		quantity := decimal.NewFromInt(line.Quantity)
		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Title:     product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			LineTotal: product.Price.Mul(quantity),
		})
	}
	return items, nil
}

func (s *orderService) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	year := now.Year()
	seq, err := s.counters.Next(ctx, fmt.Sprintf("%s-%d", orderNumberCounterPrefix, year), 1)
	if err != nil {
		return "", fmt.Errorf("order: allocate order number: %w", err)
	}
	return fmt.Sprintf("KT-%d-%06d", year, seq), nil
}

func (s *orderService) recordErpFailure(ctx context.Context, order domain.Order, cause error) error {
	order.LastErpError = cause.Error()
	order.UpdatedAt = s.clock()
	if err := s.orders.Update(ctx, order); err != nil {
		s.logger(ctx, "order.erp.record_failure", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
	return fmt.Errorf("%w: %v", ErrOrderErpUnavailable, cause)
}

func (s *orderService) publish(ctx context.Context, event string, order domain.Order) {
	if s.events == nil {
		return
	}
	message := OrderEventMessage{
		Event:         event,
		OrderID:       order.ID,
		OrderNumber:   order.Number,
		OwnerUserID:   order.OwnerUserID,
		Status:        string(order.Status),
		ErpSaleNumber: order.ErpSaleNumber,
		OccurredAt:    s.clock(),
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event.publish_failed", map[string]any{
			"event":   event,
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) notifyOrderConfirmation(ctx context.Context, order domain.Order) {
	if s.notifier == nil {
		return
	}
	s.notifier.EmailAsync(ctx, notifications.EmailMessage{
		To:      order.CustomerEmail,
		ToName:  order.ShippingAddress.FullName,
		Subject: fmt.Sprintf("Siparişiniz alındı: %s", order.Number),
		Text: fmt.Sprintf("Siparişiniz başarıyla oluşturuldu.\nSipariş no: %s\nToplam: %s TL",
			order.Number, order.Totals.Total.StringFixed(2)),
	})
}

func (s *orderService) notifyStatusChange(ctx context.Context, order domain.Order) {
	if s.notifier == nil {
		return
	}

	var subject, body string
	switch order.Status {
	case domain.OrderStatusShippedToCarrier:
		subject = fmt.Sprintf("Siparişiniz kargoya verildi: %s", order.Number)
		body = fmt.Sprintf("%s numaralı siparişiniz kargoya verildi.", order.Number)
		if order.Shipment.TrackingNumber != "" {
			body += fmt.Sprintf(" Takip no: %s", order.Shipment.TrackingNumber)
		}
	case domain.OrderStatusDelivered:
		subject = fmt.Sprintf("Siparişiniz teslim edildi: %s", order.Number)
		body = fmt.Sprintf("%s numaralı siparişiniz teslim edildi.", order.Number)
	default:
		return
	}

	s.notifier.EmailAsync(ctx, notifications.EmailMessage{
		To:      order.CustomerEmail,
		ToName:  order.ShippingAddress.FullName,
		Subject: subject,
		Text:    body,
	})
	if phone := strings.TrimSpace(order.ShippingAddress.Phone); phone != "" {
		s.notifier.SMSAsync(ctx, notifications.SMSMessage{To: phone, Body: body})
	}
}

func transitionAllowed(from, to domain.OrderStatus) bool {
	for _, allowed := range orderStateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// computeOrderTotals sums line totals and applies the flat VAT rounded to two
// decimal places.
func computeOrderTotals(items []domain.OrderItem) domain.OrderTotals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	tax := subtotal.Mul(orderTaxRate).Round(2)
	return domain.OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
