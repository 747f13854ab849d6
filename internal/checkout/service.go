package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/internal/cart"
	"github.com/graybeam/storefront-backend/internal/orders"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/logger"
	"github.com/graybeam/storefront-backend/pkg/outbox"
	"github.com/graybeam/storefront-backend/pkg/square"
	"github.com/graybeam/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SubmitInput carries everything checkout needs beyond the cart itself.
type SubmitInput struct {
	Email               string        `json:"email"`
	ShippingAddress     types.Address `json:"shipping_address"`
	SourceID            string        `json:"source_id"`
	ExpectedCartVersion *int64        `json:"expected_cart_version"`
}

// Service prices carts and turns them into paid orders.
type Service interface {
	Quote(ctx context.Context, userID uuid.UUID) (*QuoteDTO, error)
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*orders.OrderDTO, error)
	RetryPayment(ctx context.Context, userID, orderID uuid.UUID, sourceID string) (*orders.OrderDTO, error)
}

// ServiceParams wires the checkout service dependencies.
type ServiceParams struct {
	Tx       txRunner
	CartRepo cart.CartRepository
	Orders   orders.OrdersRepository
	Payments square.PaymentCreator
	Pricing  *Pricing
	Outbox   eventEmitter
	Logger   *logger.Logger
}

type service struct {
	tx       txRunner
	cartRepo cart.CartRepository
	orders   orders.OrdersRepository
	payments square.PaymentCreator
	pricing  *Pricing
	outbox   eventEmitter
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repository is required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repository is required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment provider is required")
	}
	if params.Pricing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pricing is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		tx:       params.Tx,
		cartRepo: params.CartRepo,
		orders:   params.Orders,
		payments: params.Payments,
		pricing:  params.Pricing,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

// Quote prices the caller's current cart without touching it.
func (s *service) Quote(ctx context.Context, userID uuid.UUID) (*QuoteDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out")
	}

	var snapshot cart.Snapshot
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		snapshot, err = cart.LoadUserSnapshot(ctx, tx, s.cartRepo, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(snapshot.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return newQuoteDTO(snapshot, s.pricing.Quote(snapshot.SubtotalCents)), nil
}

// Submit places the order. The order row is written in pending_payment with
// its payment idempotency key before the provider is called, so a crash
// between charge and persistence can be reconciled against Square instead
// of double charging. On capture the order moves to pending, the placed
// event is queued, and the cart is emptied, all in one transaction. On a
// declined card the order is parked in payment_failed and the cart is left
// exactly as it was.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a contact email is required")
	}
	if strings.TrimSpace(input.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a payment source is required")
	}
	address := input.ShippingAddress.Normalized()
	if missing := address.Validate(); missing != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		snapshot, err := cart.LoadUserSnapshot(ctx, tx, s.cartRepo, userID)
		if err != nil {
			return err
		}
		if len(snapshot.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		if input.ExpectedCartVersion != nil && snapshot.Version != *input.ExpectedCartVersion {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently").
				WithDetails(map[string]any{"current_version": snapshot.Version})
		}

		totals := s.pricing.Quote(snapshot.SubtotalCents)
		order, err = s.orders.WithTx(tx).Create(ctx, &models.Order{
			UserID:                userID,
			Email:                 email,
			Status:                enums.OrderStatusPendingPayment,
			Currency:              enums.CurrencyUSD,
			ShippingAddress:       &address,
			SubtotalCents:         totals.SubtotalCents,
			ShippingCents:         totals.ShippingCents,
			TaxCents:              totals.TaxCents,
			TotalCents:            totals.TotalCents,
			PaymentIdempotencyKey: uuid.NewString(),
			Items:                 orderLines(snapshot),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.capturePayment(ctx, order, input.SourceID, true)
}

// RetryPayment charges a parked payment_failed order again with a fresh
// card source. Each attempt gets its own idempotency key, persisted before
// the charge, because Square rejects a reused key when the request differs.
func (s *service) RetryPayment(ctx context.Context, userID, orderID uuid.UUID, sourceID string) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if strings.TrimSpace(sourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a payment source is required")
	}

	order, err := s.orders.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	switch order.Status {
	case enums.OrderStatusPendingPayment, enums.OrderStatusPaymentFailed:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status})
	}

	key := uuid.NewString()
	err = s.orders.UpdateFields(ctx, order.ID, map[string]any{
		"payment_idempotency_key": key,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: rotate payment key")
	}
	order.PaymentIdempotencyKey = key

	return s.capturePayment(ctx, order, sourceID, false)
}

// capturePayment runs the Square charge and lands the order in its terminal
// state for this attempt. clearCart distinguishes a first submit (the cart
// holds exactly what was ordered) from a retry, where the cart may have
// moved on since the original attempt.
func (s *service) capturePayment(ctx context.Context, order *models.Order, sourceID string, clearCart bool) (*orders.OrderDTO, error) {
	payment, payErr := s.payments.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    int64(order.TotalCents),
		Currency:       string(order.Currency),
		LocationID:     s.payments.LocationID(),
		SourceID:       sourceID,
		IdempotencyKey: order.PaymentIdempotencyKey,
		ReferenceID:    fmt.Sprintf("%d", order.OrderNumber),
		Note:           fmt.Sprintf("storefront order %d", order.OrderNumber),
	})
	if payErr != nil {
		if err := s.markPaymentFailed(ctx, order, payErr); err != nil {
			return nil, err
		}
		return nil, payErr
	}

	return s.markPaid(ctx, order, payment, clearCart)
}

func (s *service) markPaid(ctx context.Context, order *models.Order, payment *sq.Payment, clearCart bool) (*orders.OrderDTO, error) {
	paymentRef := stringValue(payment.GetID())
	now := time.Now().UTC()

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txOrders := s.orders.WithTx(tx)
		err := txOrders.UpdateFields(ctx, order.ID, map[string]any{
			"status":                 enums.OrderStatusPending,
			"paid_at":                now,
			"payment_ref":            paymentRef,
			"payment_failure_reason": nil,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark order paid")
		}

		if clearCart {
			_, err = cart.ApplyUserMutation(ctx, tx, s.cartRepo, order.UserID, nil, func(snap *cart.Snapshot) error {
				snap.Clear()
				return nil
			})
			if err != nil {
				return err
			}
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID},
			Data: orderPlacedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Email:       order.Email,
				TotalCents:  order.TotalCents,
				PaymentRef:  paymentRef,
			},
			Version: 1,
		})
		if err != nil {
			return err
		}

		placed, err = txOrders.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     placed.ID.String(),
		"order_number": placed.OrderNumber,
		"total_cents":  placed.TotalCents,
	})
	s.logg.Info(logCtx, "order placed")

	dto := orders.NewOrderDTO(*placed)
	return &dto, nil
}

func (s *service) markPaymentFailed(ctx context.Context, order *models.Order, payErr error) error {
	reason := failureReason(payErr)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		err := s.orders.WithTx(tx).UpdateFields(ctx, order.ID, map[string]any{
			"status":                 enums.OrderStatusPaymentFailed,
			"payment_failure_reason": reason,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark payment failed")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID},
			Data: orderPaymentFailedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Reason:      reason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	})
	s.logg.Warn(logCtx, "order payment failed")
	return nil
}

func orderLines(snapshot cart.Snapshot) []models.OrderLineItem {
	lines := make([]models.OrderLineItem, len(snapshot.Items))
	for i, item := range snapshot.Items {
		productID := item.ProductID
		lines[i] = models.OrderLineItem{
			ProductID:      &productID,
			Name:           item.Name,
			Category:       item.Category,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Quantity,
			TotalCents:     item.UnitPriceCents * item.Quantity,
		}
	}
	return lines
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	if err != nil {
		return err.Error()
	}
	return "payment declined"
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

type orderPlacedEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber int64     `json:"orderNumber"`
	Email       string    `json:"email"`
	TotalCents  int       `json:"totalCents"`
	PaymentRef  string    `json:"paymentRef"`
}

type orderPaymentFailedEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber int64     `json:"orderNumber"`
	Reason      string    `json:"reason"`
}
