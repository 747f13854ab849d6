package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/enums"
	"github.com/graybeam/storefront-backend/pkg/logger"
	"github.com/graybeam/storefront-backend/pkg/mailer"
	"github.com/graybeam/storefront-backend/pkg/outbox"
)

const orderMailConsumer = "order-mail"

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type idempotencyManager interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer watches order events and mails customers about them.
type Consumer struct {
	orders       orderLoader
	mail         mailer.Mailer
	subscription *pubsub.Subscriber
	idempotency  idempotencyManager
	logg         *logger.Logger
}

// NewConsumer builds an order mail consumer. The subscription may be nil
// when the consumer is only driven through Process.
func NewConsumer(orders orderLoader, mail mailer.Mailer, subscription *pubsub.Subscriber, manager idempotencyManager, logg *logger.Logger) (*Consumer, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders loader required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		orders:       orders,
		mail:         mail,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("order subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		eventType := enums.OutboxEventType(msg.Attributes["event_type"])
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"message_id": msg.ID,
			"event_type": string(eventType),
		})

		var envelope outbox.PayloadEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			c.logg.Error(logCtx, "failed to decode envelope", err)
			msg.Ack()
			return
		}

		if err := c.Process(logCtx, eventType, envelope); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process handles one decoded event. Errors mean the event should be
// redelivered; nil means it is done (handled or deliberately skipped).
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	switch eventType {
	case enums.EventOrderPlaced, enums.EventOrderStateChanged, enums.EventOrderPaymentFailed:
	default:
		c.logg.Info(ctx, "skipping non-mail event")
		return nil
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(ctx, "invalid event id", err)
		return nil
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderMailConsumer, eventID)
	if err != nil {
		c.logg.Error(ctx, "idempotency check failed", err)
		return err
	}
	if already {
		c.logg.Info(ctx, "event already processed")
		return nil
	}

	if err := c.handle(ctx, eventType, envelope); err != nil {
		c.logg.Error(ctx, "order mail handling failed", err)
		_ = c.idempotency.Delete(ctx, orderMailConsumer, eventID)
		return err
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	switch eventType {
	case enums.EventOrderPlaced:
		var payload orderPlacedPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse order_placed payload: %w", err)
		}
		return c.sendConfirmation(ctx, payload.OrderID)
	case enums.EventOrderStateChanged:
		var payload orderStateChangedPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse order_state_changed payload: %w", err)
		}
		return c.sendStatusUpdate(ctx, payload)
	case enums.EventOrderPaymentFailed:
		var payload orderPaymentFailedPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse order_payment_failed payload: %w", err)
		}
		return c.sendPaymentFailed(ctx, payload)
	}
	return nil
}

func (c *Consumer) sendConfirmation(ctx context.Context, orderID uuid.UUID) error {
	order, ok, err := c.loadOrder(ctx, orderID)
	if err != nil || !ok {
		return err
	}
	if err := c.mail.Send(ctx, orderConfirmationMessage(order)); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithField(ctx, "order_number", order.OrderNumber), "order confirmation sent")
	return nil
}

func (c *Consumer) sendStatusUpdate(ctx context.Context, payload orderStateChangedPayload) error {
	// Customers only hear about fulfillment milestones. Internal hops like
	// payment_failed -> pending_payment stay quiet.
	switch payload.To {
	case enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCanceled:
	default:
		return nil
	}
	order, ok, err := c.loadOrder(ctx, payload.OrderID)
	if err != nil || !ok {
		return err
	}
	if err := c.mail.Send(ctx, orderStatusMessage(order, payload.To)); err != nil {
		return err
	}
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"order_number": order.OrderNumber,
		"status":       string(payload.To),
	})
	c.logg.Info(logCtx, "order status mail sent")
	return nil
}

func (c *Consumer) sendPaymentFailed(ctx context.Context, payload orderPaymentFailedPayload) error {
	order, ok, err := c.loadOrder(ctx, payload.OrderID)
	if err != nil || !ok {
		return err
	}
	if err := c.mail.Send(ctx, paymentFailedMessage(order, payload.Reason)); err != nil {
		return err
	}
	c.logg.Info(c.logg.WithField(ctx, "order_number", order.OrderNumber), "payment failure mail sent")
	return nil
}

// loadOrder treats a missing row as a skip, not a retry. A deleted order
// redelivers forever otherwise.
func (c *Consumer) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, bool, error) {
	order, err := c.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logg.Warn(c.logg.WithField(ctx, "order_id", orderID.String()), "order missing, dropping mail event")
			return nil, false, nil
		}
		return nil, false, err
	}
	return order, true, nil
}

type orderPlacedPayload struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber int64     `json:"orderNumber"`
	Email       string    `json:"email"`
	TotalCents  int       `json:"totalCents"`
	PaymentRef  string    `json:"paymentRef"`
}

type orderStateChangedPayload struct {
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber int64             `json:"orderNumber"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

type orderPaymentFailedPayload struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber int64     `json:"orderNumber"`
	Reason      string    `json:"reason"`
}
