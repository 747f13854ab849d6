package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/graybeam/storefront-backend/pkg/enums"
	pkgerrors "github.com/graybeam/storefront-backend/pkg/errors"
	"github.com/graybeam/storefront-backend/pkg/logger"
	"github.com/graybeam/storefront-backend/pkg/outbox"
	"github.com/graybeam/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes order history and lifecycle operations.
type Service interface {
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderPageDTO, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, params ListParams) (*OrderPageDTO, error)
	Transition(ctx context.Context, actorID, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)
}

// ServiceParams wires the orders service dependencies.
type ServiceParams struct {
	Repo   OrdersRepository
	Tx     txRunner
	Outbox eventEmitter
	Logger *logger.Logger
}

type service struct {
	repo   OrdersRepository
	tx     txRunner
	outbox eventEmitter
	logg   *logger.Logger
}

// NewService builds the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders repository is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
	}, nil
}

// GetForUser returns the order only when the caller owns it.
func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id are required")
	}
	order, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

// ListForUser returns the caller's orders newest first.
func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderPageDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, nextCursor, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return &OrderPageDTO{Items: NewOrderDTOs(rows), NextCursor: nextCursor}, nil
}

// Get returns any order regardless of owner. Admin surface only.
func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

// List returns orders across all customers. Admin surface only.
func (s *service) List(ctx context.Context, params ListParams) (*OrderPageDTO, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	rows, nextCursor, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return &OrderPageDTO{Items: NewOrderDTOs(rows), NextCursor: nextCursor}, nil
}

// Transition moves the order to the next lifecycle status. Illegal moves
// are rejected against the transition table, and shipped/delivered stamps
// are written alongside the status in the same update.
func (s *service) Transition(ctx context.Context, actorID, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	var updated *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
		}

		if !order.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal order status transition").
				WithDetails(map[string]any{"from": order.Status, "to": next})
		}

		now := time.Now().UTC()
		fields := map[string]any{"status": next}
		switch next {
		case enums.OrderStatusShipped:
			fields["shipped_at"] = now
		case enums.OrderStatusDelivered:
			fields["delivered_at"] = now
		}
		if err := txRepo.UpdateFields(ctx, order.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
		}

		var actor *outbox.ActorRef
		if actorID != uuid.Nil {
			actor = &outbox.ActorRef{UserID: actorID}
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: orderStateChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        order.Status,
				To:          next,
			},
			Version: 1,
		})
		if err != nil {
			return err
		}

		refreshed, err := txRepo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload order")
		}
		dto := NewOrderDTO(*refreshed)
		updated = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": orderID.String(),
		"status":   string(next),
	})
	s.logg.Info(logCtx, "order status changed")
	return updated, nil
}

type orderStateChangedEvent struct {
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber int64             `json:"orderNumber"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}
