package production

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/catalog"
	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/events"
	"github.com/verzog/merchant/internal/telemetry"
)

// Store is the persistence surface the controller needs.
type Store interface {
	Customer(ctx context.Context, id int64) (*domain.Customer, error)
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	CreateProductEvent(ctx context.Context, event *domain.ProductEvent) error
	SetItemProduced(ctx context.Context, itemID int64) error
	SetItemProductionError(ctx context.Context, itemID int64, message string) error
}

// Controller dispatches bill lines to their production handlers and
// records delivered instances.
type Controller struct {
	registry *Registry
	catalog  *catalog.Resolver
	store    Store
	events   events.Publisher
	logger   zerolog.Logger
}

// NewController wires the production pipeline.
func NewController(registry *Registry, resolver *catalog.Resolver, store Store, publisher events.Publisher, logger zerolog.Logger) *Controller {
	return &Controller{
		registry: registry,
		catalog:  resolver,
		store:    store,
		events:   publisher,
		logger:   logger.With().Str("component", "production").Logger(),
	}
}

// ItemFeedback pairs a bill line with what its handler said.
type ItemFeedback struct {
	ItemCode string
	Feedback Feedback
}

// Result summarizes one postpay production run.
type Result struct {
	// Produced lists the created product instances.
	Produced []domain.Product
	// Feedback collects per-line handler messages.
	Feedback []ItemFeedback
	// Failed maps item codes to the failure that stopped their line.
	Failed map[string]string
}

// Complete reports whether every line produced.
func (r *Result) Complete() bool {
	return len(r.Failed) == 0
}

// RunPrepay runs the placement-time pass: handlers only look and
// report, nothing irreversible happens. A failing handler is logged
// and skipped so one bad item never blocks order placement.
func (c *Controller) RunPrepay(ctx context.Context, bill *domain.Bill) ([]ItemFeedback, error) {
	customer, err := c.store.Customer(ctx, bill.CustomerID)
	if err != nil {
		return nil, err
	}

	var feedback []ItemFeedback
	for i := range bill.Items {
		item := &bill.Items[i]
		handler, pctx, err := c.resolve(ctx, bill, item, customer)
		if err != nil || handler == nil {
			continue
		}
		fb, err := handler.ProducePrepay(ctx, pctx)
		if err != nil {
			c.logger.Warn().Err(err).
				Str("item", item.ItemCode).
				Int64("bill_id", bill.ID).
				Msg("prepay handler failed")
			continue
		}
		if fb != nil {
			feedback = append(feedback, ItemFeedback{ItemCode: item.ItemCode, Feedback: *fb})
		}
	}
	return feedback, nil
}

// RunPostpay produces every unfulfilled product line of a paid bill.
// A line failure is recorded against the line and does not stop the
// others; the caller inspects Result.Complete to decide the bill's
// final status.
func (c *Controller) RunPostpay(ctx context.Context, bill *domain.Bill) (*Result, error) {
	customer, err := c.store.Customer(ctx, bill.CustomerID)
	if err != nil {
		return nil, err
	}

	result := &Result{Failed: make(map[string]string)}
	for i := range bill.Items {
		item := &bill.Items[i]
		if item.Type != domain.BillItemProduct || item.Produced {
			continue
		}

		handler, pctx, err := c.resolve(ctx, bill, item, customer)
		if err != nil {
			c.failItem(ctx, result, item, err)
			continue
		}
		if handler == nil {
			// Items without a handler deliver nothing but still count
			// as fulfilled.
			if err := c.store.SetItemProduced(ctx, item.ID); err != nil {
				return nil, err
			}
			item.Produced = true
			continue
		}

		start := time.Now()
		products, fb, err := handler.ProducePostpay(ctx, pctx)
		if telemetry.Business != nil {
			telemetry.Business.ProductionDuration.WithLabelValues(handler.Name()).
				Observe(time.Since(start).Seconds())
		}
		if err != nil {
			if telemetry.Business != nil {
				telemetry.Business.ProductionFailures.WithLabelValues(handler.Name()).Inc()
			}
			c.failItem(ctx, result, item, err)
			continue
		}

		if err := c.recordProducts(ctx, handler.Name(), item, products, result); err != nil {
			return nil, err
		}
		if err := c.store.SetItemProduced(ctx, item.ID); err != nil {
			return nil, err
		}
		item.Produced = true
		if fb != nil {
			result.Feedback = append(result.Feedback, ItemFeedback{ItemCode: item.ItemCode, Feedback: *fb})
		}
	}

	if telemetry.Business != nil {
		outcome := "complete"
		if !result.Complete() {
			outcome = "partial"
			if len(result.Produced) == 0 {
				outcome = "failed"
			}
		}
		telemetry.Business.ProductionRuns.WithLabelValues(outcome).Inc()
	}
	return result, nil
}

// resolve finds the handler and builds the handler context for one
// line. A nil handler with nil error means the item needs no
// production.
func (c *Controller) resolve(ctx context.Context, bill *domain.Bill, item *domain.BillItem, customer *domain.Customer) (Handler, *Context, error) {
	ci, err := c.catalog.Item(ctx, bill.CatalogID, item.ItemCode)
	if err != nil {
		return nil, nil, err
	}
	name := ci.HandlerName()
	if name == "" {
		return nil, nil, nil
	}
	handler, err := c.registry.Get(name)
	if err != nil {
		return nil, nil, err
	}
	return handler, &Context{
		Bill:        bill,
		Item:        item,
		CatalogItem: ci,
		Customer:    customer,
		Params:      ci.DecodedHandlerParams(),
	}, nil
}

// recordProducts persists handler output with its creation events and
// publishes them.
func (c *Controller) recordProducts(ctx context.Context, handlerName string, item *domain.BillItem, products []domain.Product, result *Result) error {
	for _, product := range products {
		product.BillItemID = item.ID
		created, err := c.store.CreateProduct(ctx, &product)
		if err != nil {
			return err
		}
		event := &domain.ProductEvent{
			ProductID: created.ID,
			Type:      domain.ProductEventCreated,
			Detail:    "produced for bill item " + item.ItemCode,
		}
		if err := c.store.CreateProductEvent(ctx, event); err != nil {
			return err
		}
		_ = c.events.Publish(events.SubjectProductCreated, events.ProductEventPayload{
			ProductID:  created.ID,
			BillItemID: item.ID,
			ItemCode:   created.ItemCode,
			Reference:  created.Reference,
			Event:      string(domain.ProductEventCreated),
			OccurredAt: time.Now().UTC(),
		})
		if telemetry.Business != nil {
			telemetry.Business.ProductsCreated.WithLabelValues(handlerName).Inc()
		}
		result.Produced = append(result.Produced, *created)
	}
	return nil
}

func (c *Controller) failItem(ctx context.Context, result *Result, item *domain.BillItem, cause error) {
	c.logger.Error().Err(cause).
		Str("item", item.ItemCode).
		Int64("bill_item_id", item.ID).
		Msg("production failed for bill line")
	result.Failed[item.ItemCode] = cause.Error()
	if err := c.store.SetItemProductionError(ctx, item.ID, cause.Error()); err != nil {
		c.logger.Error().Err(err).Int64("bill_item_id", item.ID).
			Msg("could not record production error")
	}
}

// ValidateCatalog runs every item's handler checks and collects the
// findings. Items naming an unregistered handler get an error entry.
func (c *Controller) ValidateCatalog(ctx context.Context, catalogID int64) (*ValidationReport, error) {
	items, err := c.catalog.Items(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	report := NewValidationReport()
	for i := range items {
		item := &items[i]
		name := item.HandlerName()
		if name == "" {
			report.AddMessage(item.Code, "no production handler, item delivers nothing")
			continue
		}
		handler, err := c.registry.Get(name)
		if err != nil {
			report.AddError(item.Code, "unknown production handler "+name)
			continue
		}
		handler.Validate(ctx, item, report)
	}
	return report, nil
}

// AssignSeat dispatches a seat assignment to the product's handler and
// records the event.
func (c *Controller) AssignSeat(ctx context.Context, catalogID int64, product *domain.Product, accountID int64) error {
	handler, err := c.handlerFor(ctx, catalogID, product)
	if err != nil {
		return err
	}
	if err := handler.AssignSeat(ctx, product, accountID); err != nil {
		return err
	}
	return c.recordSeatEvent(ctx, product, domain.ProductEventAssigned, accountID)
}

// ReleaseSeat dispatches a seat release to the product's handler and
// records the event.
func (c *Controller) ReleaseSeat(ctx context.Context, catalogID int64, product *domain.Product) error {
	handler, err := c.handlerFor(ctx, catalogID, product)
	if err != nil {
		return err
	}
	if err := handler.ReleaseSeat(ctx, product); err != nil {
		return err
	}
	return c.recordSeatEvent(ctx, product, domain.ProductEventReleased, 0)
}

func (c *Controller) handlerFor(ctx context.Context, catalogID int64, product *domain.Product) (Handler, error) {
	ci, err := c.catalog.Item(ctx, catalogID, product.ItemCode)
	if err != nil {
		return nil, err
	}
	name := ci.HandlerName()
	if name == "" {
		return nil, domain.Errorf(domain.EINVALID, "production.handler",
			"item %q has no production handler", product.ItemCode)
	}
	return c.registry.Get(name)
}

func (c *Controller) recordSeatEvent(ctx context.Context, product *domain.Product, eventType domain.ProductEventType, actor int64) error {
	event := &domain.ProductEvent{
		ProductID: product.ID,
		Type:      eventType,
		Actor:     actor,
	}
	if err := c.store.CreateProductEvent(ctx, event); err != nil {
		return err
	}
	_ = c.events.Publish(events.SubjectProductChanged, events.ProductEventPayload{
		ProductID:  product.ID,
		ItemCode:   product.ItemCode,
		Reference:  product.Reference,
		Event:      string(eventType),
		OccurredAt: time.Now().UTC(),
	})
	return nil
}
