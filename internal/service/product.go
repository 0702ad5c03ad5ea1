package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/events"
	"github.com/verzog/merchant/internal/production"
)

// ProductStore is the persistence surface of delivered instances.
type ProductStore interface {
	Product(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) error
	SoftDeleteProduct(ctx context.Context, id int64) error
	RestoreProduct(ctx context.Context, id int64) error
	HardDeleteProduct(ctx context.Context, id int64) error
	CreateProductEvent(ctx context.Context, event *domain.ProductEvent) error
}

// ProductService manages delivered instances after production: seat
// assignment and the delete, restore, destroy lifecycle.
type ProductService struct {
	store      ProductStore
	production *production.Controller
	events     events.Publisher
	logger     zerolog.Logger
}

// NewProductService wires the product lifecycle service.
func NewProductService(store ProductStore, controller *production.Controller, publisher events.Publisher, logger zerolog.Logger) *ProductService {
	return &ProductService{
		store:      store,
		production: controller,
		events:     publisher,
		logger:     logger.With().Str("component", "products").Logger(),
	}
}

// AssignSeat binds an instance to an account through its handler and
// persists the updated instance state.
func (s *ProductService) AssignSeat(ctx context.Context, catalogID, productID, accountID int64) (*domain.Product, error) {
	product, err := s.store.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status == domain.ProductStatusDeleted {
		return nil, ErrProductDeleted
	}
	if err := s.production.AssignSeat(ctx, catalogID, product, accountID); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// ReleaseSeat unbinds an instance through its handler and persists the
// updated instance state.
func (s *ProductService) ReleaseSeat(ctx context.Context, catalogID, productID int64) (*domain.Product, error) {
	product, err := s.store.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.production.ReleaseSeat(ctx, catalogID, product); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// SoftDelete retires an instance while keeping it restorable.
func (s *ProductService) SoftDelete(ctx context.Context, productID, actor int64) error {
	product, err := s.store.Product(ctx, productID)
	if err != nil {
		return err
	}
	if product.Status == domain.ProductStatusDeleted {
		return ErrProductDeleted
	}
	if err := s.store.SoftDeleteProduct(ctx, productID); err != nil {
		return err
	}
	return s.recordLifecycle(ctx, product, domain.ProductEventDeleted, actor)
}

// Restore brings a soft deleted instance back to life.
func (s *ProductService) Restore(ctx context.Context, productID, actor int64) error {
	product, err := s.store.Product(ctx, productID)
	if err != nil {
		return err
	}
	if product.Status != domain.ProductStatusDeleted {
		return ErrProductNotDeleted
	}
	if err := s.store.RestoreProduct(ctx, productID); err != nil {
		return err
	}
	return s.recordLifecycle(ctx, product, domain.ProductEventRestored, actor)
}

// Destroy removes a soft deleted instance permanently. Live instances
// must be soft deleted first.
func (s *ProductService) Destroy(ctx context.Context, productID, actor int64) error {
	product, err := s.store.Product(ctx, productID)
	if err != nil {
		return err
	}
	if product.Status != domain.ProductStatusDeleted {
		return ErrProductNotDeleted
	}
	if err := s.store.HardDeleteProduct(ctx, productID); err != nil {
		return err
	}
	// No stored event here: product_events cascades with the row, so a
	// DESTROYED entry would vanish the moment it was written. The bus
	// and the log are the record.
	s.announceLifecycle(product, domain.ProductEventDestroyed, actor)
	return nil
}

func (s *ProductService) recordLifecycle(ctx context.Context, product *domain.Product, eventType domain.ProductEventType, actor int64) error {
	if err := s.store.CreateProductEvent(ctx, &domain.ProductEvent{
		ProductID: product.ID,
		Type:      eventType,
		Actor:     actor,
	}); err != nil {
		return err
	}
	s.announceLifecycle(product, eventType, actor)
	return nil
}

func (s *ProductService) announceLifecycle(product *domain.Product, eventType domain.ProductEventType, actor int64) {
	_ = s.events.Publish(events.SubjectProductChanged, events.ProductEventPayload{
		ProductID:  product.ID,
		ItemCode:   product.ItemCode,
		Reference:  product.Reference,
		Event:      string(eventType),
		OccurredAt: time.Now().UTC(),
	})
	s.logger.Info().
		Int64("product_id", product.ID).
		Str("event", string(eventType)).
		Int64("actor", actor).
		Msg("product lifecycle event")
}
