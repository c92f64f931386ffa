package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ayurkart/checkout/internal/domain/coupon"
	"github.com/ayurkart/checkout/internal/domain/pricing"
	"github.com/ayurkart/checkout/internal/domain/product"
	"github.com/ayurkart/checkout/internal/domain/stock"
	"github.com/ayurkart/checkout/internal/events"
	"github.com/ayurkart/checkout/internal/payment"
)

// Currency is the only currency the store trades in.
const Currency = "INR"

const maxNotesLen = 500

// Sentinel errors for order orchestration.
var (
	ErrEmptyItems                = errors.New("items required")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
)

// ValidationError indicates a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidTransitionError indicates an administrative status update that the
// state machine forbids.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// ItemRequest is one requested line of a cart.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// CreateOrderRequest is the input for both checkout variants.
type CreateOrderRequest struct {
	CustomerEmail   string
	Items           []ItemRequest
	ShippingAddress ShippingAddress
	CouponCode      string
	Notes           string
}

// CreateOrderResult is the outcome of a successful checkout.
// PaymentIntentID is empty for cash-on-delivery orders.
type CreateOrderResult struct {
	Order           *Order
	PaymentIntentID string
}

// ConfirmPaymentRequest is the gateway's confirmation callback payload.
type ConfirmPaymentRequest struct {
	IntentID  string
	PaymentID string
	Signature string
}

// Service orchestrates checkout: it is the only component whose logic spans
// stock, pricing, coupons, the payment gateway, and the order store.
type Service struct {
	products product.Repository
	stock    stock.Ledger
	coupons  coupon.Ledger
	orders   Repository
	gateway  payment.Gateway
	events   events.Publisher
	policy   pricing.Policy
	now      func() time.Time
}

// NewService creates a Service with the required collaborators.
func NewService(
	products product.Repository,
	ledger stock.Ledger,
	coupons coupon.Ledger,
	orders Repository,
	gateway payment.Gateway,
	publisher events.Publisher,
	policy pricing.Policy,
) *Service {
	return &Service{
		products: products,
		stock:    ledger,
		coupons:  coupons,
		orders:   orders,
		gateway:  gateway,
		events:   publisher,
		policy:   policy,
		now:      time.Now,
	}
}

// CreateOrder runs the online-payment checkout: availability check (advisory,
// no stock mutation), price/name snapshot, pricing, optional coupon, persist
// as pending, then a gateway intent sized to the total in paise. Stock is
// only decremented later, when the payment confirmation arrives.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	o, err := s.buildOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	o.Status = StatusPending
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	intentID, err := s.gateway.CreateIntent(ctx, payment.CreateIntentRequest{
		AmountMinor: toMinorUnit(o.TotalAmount),
		Currency:    Currency,
		ReceiptID:   o.ID,
		Notes: map[string]string{
			"order_id":       o.ID,
			"customer_email": o.CustomerEmail,
		},
	})
	if err != nil {
		// The pending order stays; retrying checkout is safe.
		return nil, errors.Wrap(err, "create payment intent")
	}

	if err := s.orders.SetPaymentIntent(ctx, o.ID, intentID); err != nil {
		return nil, errors.Wrap(err, "store payment intent")
	}
	o.PaymentIntentID = intentID

	s.publish(ctx, events.OrderCreated, o)

	return &CreateOrderResult{Order: o, PaymentIntentID: intentID}, nil
}

// CreateCODOrder runs the cash-on-delivery checkout. There is no asynchronous
// payment event to wait for, so the order is persisted as confirmed and stock
// is committed immediately. The decrement runs first: it re-validates
// availability atomically, so a lost race surfaces as InsufficientStock with
// no order created.
func (s *Service) CreateCODOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	o, err := s.buildOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o.Status = StatusConfirmed
	o.ConfirmedAt = &now

	items := toStockItems(o.Items)
	if err := s.stock.Decrement(ctx, items); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		// The decrement already committed; put the units back.
		if rerr := s.stock.Restock(ctx, items); rerr != nil {
			zctx.From(ctx).Error("restock after failed order insert",
				zap.String("order_id", o.ID), zap.Error(rerr))
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.commitCouponUsage(ctx, o)
	s.publish(ctx, events.OrderConfirmed, o)

	return &CreateOrderResult{Order: o}, nil
}

// ConfirmPayment processes the gateway's asynchronous confirmation callback.
// Nothing is mutated until the signature verifies. The callback may be
// delivered more than once: the processed-payment marker guarantees stock and
// coupon usage are committed at most once per (intent, payment) pair.
func (s *Service) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*Order, error) {
	if req.IntentID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, &ValidationError{Field: "payment", Message: "intent id, payment id and signature are required"}
	}

	if !s.gateway.VerifySignature(req.IntentID, req.PaymentID, req.Signature) {
		return nil, ErrPaymentVerificationFailed
	}

	o, err := s.orders.GetByIntentID(ctx, req.IntentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find order by intent")
	}

	now := s.now()
	applied, err := s.orders.ConfirmPayment(ctx, o.ID, req.IntentID, req.PaymentID, now)
	if err != nil {
		return nil, errors.Wrap(err, "confirm payment")
	}
	if !applied {
		// Duplicate delivery: acknowledge without repeating side effects.
		zctx.From(ctx).Info("duplicate payment confirmation ignored",
			zap.String("order_id", o.ID), zap.String("intent_id", req.IntentID))
		return o, nil
	}

	o.Status = StatusConfirmed
	o.PaymentStatus = PaymentCompleted
	o.PaymentID = req.PaymentID
	o.ConfirmedAt = &now

	// Checkout only checked stock, it did not reserve it, so the decrement
	// can lose a race here. The marker row means a redelivered callback
	// would skip this step, so returning an error would lose the decrement
	// for good. Whatever the failure, the customer has already paid: flag
	// the order for manual reconciliation and acknowledge the callback.
	if err := s.stock.Decrement(ctx, toStockItems(o.Items)); err != nil {
		if ferr := s.orders.FlagForReview(ctx, o.ID); ferr != nil {
			zctx.From(ctx).Error("flag order for review",
				zap.String("order_id", o.ID), zap.Error(ferr))
		}
		o.NeedsReview = true
		zctx.From(ctx).Error("confirmed order is unfulfillable, flagged for reconciliation",
			zap.String("order_id", o.ID), zap.Error(err))
		return o, nil
	}

	s.commitCouponUsage(ctx, o)
	s.publish(ctx, events.OrderConfirmed, o)

	return o, nil
}

// UpdateStatus applies an administrative status transition. It never touches
// pricing or stock. Shipping requires a tracking number and stamps the
// shipped timestamp; delivery stamps the delivered timestamp; a refund also
// marks the payment refunded.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status, trackingNumber string) (*Order, error) {
	if !next.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", next)}
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}

	if !o.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}

	now := s.now()
	upd := StatusUpdate{Status: next, TrackingNumber: trackingNumber}

	switch next {
	case StatusConfirmed:
		upd.ConfirmedAt = &now
		o.ConfirmedAt = &now
	case StatusShipped:
		if trackingNumber == "" {
			return nil, &ValidationError{Field: "tracking_number", Message: "required to mark an order shipped"}
		}
		upd.ShippedAt = &now
		o.ShippedAt = &now
	case StatusDelivered:
		upd.DeliveredAt = &now
		o.DeliveredAt = &now
	case StatusRefunded:
		ps := PaymentRefunded
		upd.PaymentStatus = &ps
		o.PaymentStatus = ps
	}

	if err := s.orders.UpdateStatus(ctx, orderID, upd); err != nil {
		return nil, errors.Wrap(err, "update status")
	}

	o.Status = next
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	o.UpdatedAt = now

	s.publish(ctx, events.OrderUpdated, o)

	return o, nil
}

// GetOrder returns a single order by its id.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// ListOrdersByEmail returns all orders of a customer, newest first.
func (s *Service) ListOrdersByEmail(ctx context.Context, email string) ([]Order, error) {
	orders, err := s.orders.ListByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// buildOrder runs the shared steps of both checkout variants: availability
// check, catalog snapshot, pricing, and the coupon fold. It does not persist
// and has no side effects.
func (s *Service) buildOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	stockItems := make([]stock.Item, len(req.Items))
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		stockItems[i] = stock.Item{ProductID: item.ProductID, Quantity: item.Quantity}
		ids[i] = item.ProductID
	}

	if err := s.stock.CheckAvailability(ctx, stockItems); err != nil {
		return nil, err
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	orderItems := make([]Item, len(req.Items))
	priceItems := make([]pricing.Item, len(req.Items))
	for i, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			// The availability check already covers existence; this guards
			// against the product disappearing between the two reads.
			return nil, &stock.InsufficientStockError{Shortages: []stock.Shortage{
				{ProductID: item.ProductID, Reason: stock.ReasonNotFound},
			}}
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		orderItems[i] = Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   p.Price,
			LineTotal:   p.Price.Mul(qty).Round(2),
		}
		priceItems[i] = pricing.Item{UnitPrice: p.Price, Quantity: item.Quantity}
	}

	subtotal := pricing.Subtotal(priceItems)
	discount := s.resolveDiscount(ctx, req.CouponCode, subtotal)
	quote := s.policy.Compute(priceItems, discount)

	now := s.now()
	addr := req.ShippingAddress
	if addr.Country == "" {
		addr.Country = "India"
	}

	return &Order{
		ID:              uuid.New().String(),
		CustomerEmail:   req.CustomerEmail,
		Items:           orderItems,
		ShippingAddress: addr,
		Subtotal:        quote.Subtotal,
		DiscountAmount:  quote.Discount,
		ShippingCost:    quote.ShippingCost,
		TaxAmount:       quote.TaxAmount,
		TotalAmount:     quote.Total,
		CouponCode:      req.CouponCode,
		PaymentStatus:   PaymentPending,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// resolveDiscount validates the coupon and computes its discount. A coupon
// failure degrades to zero discount rather than aborting checkout; the
// reason is logged for the storefront to surface separately if it wants to.
func (s *Service) resolveDiscount(ctx context.Context, code string, subtotal decimal.Decimal) decimal.Decimal {
	if code == "" {
		return decimal.Zero
	}

	rule, err := s.coupons.Validate(ctx, code, subtotal)
	if err != nil {
		zctx.From(ctx).Info("coupon rejected, order proceeds without discount",
			zap.String("code", code), zap.Error(err))
		return decimal.Zero
	}

	return coupon.ComputeDiscount(rule, subtotal)
}

// commitCouponUsage counts one redemption for orders that committed a
// discount. Failures do not unwind the order; an undercounted redemption
// only means the code stays usable slightly longer, so it is logged and
// left alone.
func (s *Service) commitCouponUsage(ctx context.Context, o *Order) {
	if o.CouponCode == "" || !o.DiscountAmount.IsPositive() {
		return
	}
	if err := s.coupons.IncrementUsage(ctx, o.CouponCode); err != nil {
		zctx.From(ctx).Error("increment coupon usage",
			zap.String("order_id", o.ID), zap.String("code", o.CouponCode), zap.Error(err))
	}
}

// publish emits an order event. Publishing is best-effort and never fails
// the operation that triggered it.
func (s *Service) publish(ctx context.Context, typ string, o *Order) {
	ev := events.OrderEvent{
		Type:          typ,
		OrderID:       o.ID,
		CustomerEmail: o.CustomerEmail,
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount,
		OccurredAt:    s.now(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		zctx.From(ctx).Warn("publish order event",
			zap.String("order_id", o.ID), zap.String("type", typ), zap.Error(err))
	}
}

// validateRequest rejects malformed checkout input before any I/O happens.
func validateRequest(req *CreateOrderRequest) error {
	if req.CustomerEmail == "" {
		return &ValidationError{Field: "customer_email", Message: "required"}
	}
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return &ValidationError{Field: "items", Message: "product id required"}
		}
		if item.Quantity <= 0 {
			return &InvalidQuantityError{ProductID: item.ProductID}
		}
	}
	if len(req.Notes) > maxNotesLen {
		return &ValidationError{Field: "notes", Message: fmt.Sprintf("must be at most %d characters", maxNotesLen)}
	}

	addr := req.ShippingAddress
	switch {
	case addr.FullName == "":
		return &ValidationError{Field: "shipping_address.full_name", Message: "required"}
	case addr.Phone == "":
		return &ValidationError{Field: "shipping_address.phone", Message: "required"}
	case addr.AddressLine1 == "":
		return &ValidationError{Field: "shipping_address.address_line_1", Message: "required"}
	case addr.City == "":
		return &ValidationError{Field: "shipping_address.city", Message: "required"}
	case addr.State == "":
		return &ValidationError{Field: "shipping_address.state", Message: "required"}
	case addr.PostalCode == "":
		return &ValidationError{Field: "shipping_address.postal_code", Message: "required"}
	}

	return nil
}

// toMinorUnit converts a 2dp amount to the smallest currency unit (paise).
func toMinorUnit(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

func toStockItems(items []Item) []stock.Item {
	out := make([]stock.Item, len(items))
	for i, item := range items {
		out[i] = stock.Item{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return out
}
