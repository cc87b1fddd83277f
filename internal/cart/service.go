package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"petcare-be/internal/catalog"
	"petcare-be/internal/logger"
	"petcare-be/internal/metrics"

	"go.uber.org/zap"
)

// AddItemInput identifies what to add. Price and provider details are always
// read from the catalog, never from the client.
type AddItemInput struct {
	Type        LineType
	ID          string
	Quantity    int
	ServiceData *ServiceData
}

// Service is the cart store: every mutation goes through the Reducer and the
// result is persisted before it is returned.
type Service interface {
	Get(ctx context.Context, owner string) (State, error)
	AddItem(ctx context.Context, owner string, in AddItemInput) (State, error)
	RemoveItem(ctx context.Context, owner, id string) (State, error)
	UpdateQuantity(ctx context.Context, owner, id string, quantity int) (State, error)
	Clear(ctx context.Context, owner string) (State, error)
	ItemCount(ctx context.Context, owner string) (int, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	reducer Reducer
}

func NewService(repo Repository, catalogRepo catalog.Repository, reducer Reducer) Service {
	return &service{repo: repo, catalog: catalogRepo, reducer: reducer}
}

func (s *service) Get(ctx context.Context, owner string) (State, error) {
	if owner == "" {
		return State{}, ErrOwnerRequired
	}
	return s.load(ctx, owner)
}

func (s *service) AddItem(ctx context.Context, owner string, in AddItemInput) (State, error) {
	if owner == "" {
		return State{}, ErrOwnerRequired
	}

	line, err := s.buildLine(ctx, in)
	if err != nil {
		return State{}, err
	}

	return s.dispatch(ctx, owner, AddItem{Line: line})
}

func (s *service) RemoveItem(ctx context.Context, owner, id string) (State, error) {
	if owner == "" {
		return State{}, ErrOwnerRequired
	}
	return s.dispatch(ctx, owner, RemoveItem{ID: id})
}

func (s *service) UpdateQuantity(ctx context.Context, owner, id string, quantity int) (State, error) {
	if owner == "" {
		return State{}, ErrOwnerRequired
	}
	return s.dispatch(ctx, owner, UpdateQuantity{ID: id, Quantity: quantity})
}

func (s *service) Clear(ctx context.Context, owner string) (State, error) {
	if owner == "" {
		return State{}, ErrOwnerRequired
	}

	if err := s.repo.Delete(ctx, owner); err != nil {
		return State{}, err
	}
	metrics.CartMutations.WithLabelValues(ClearCart{}.Name()).Inc()

	return s.reducer.Apply(Empty(), ClearCart{}), nil
}

func (s *service) ItemCount(ctx context.Context, owner string) (int, error) {
	state, err := s.Get(ctx, owner)
	if err != nil {
		return 0, err
	}
	return state.ItemCount(), nil
}

// load treats a corrupt document as an empty cart; the next save overwrites it.
func (s *service) load(ctx context.Context, owner string) (State, error) {
	state, err := s.repo.Load(ctx, owner)
	if errors.Is(err, ErrCorruptCart) {
		logger.ForLayer(ctx, "service", "load").Warn("discarding malformed cart",
			zap.String("owner", owner),
			zap.Error(err),
		)
		metrics.CartLoadFailures.Inc()
		return Empty(), nil
	}
	if err != nil {
		return State{}, err
	}

	// totals are derived, so recompute in case the fee policy changed since the save
	return s.reducer.Recalculate(state.Items), nil
}

func (s *service) dispatch(ctx context.Context, owner string, action Action) (State, error) {
	log := logger.ForLayer(ctx, "service", "dispatch").With(
		zap.String("owner", owner),
		zap.String("action", action.Name()),
	)

	state, err := s.load(ctx, owner)
	if err != nil {
		log.Error("failed to load cart", zap.Error(err))
		return State{}, err
	}

	next := s.reducer.Apply(state, action)

	if err := s.repo.Save(ctx, owner, next); err != nil {
		log.Error("failed to save cart", zap.Error(err))
		return State{}, err
	}

	metrics.CartMutations.WithLabelValues(action.Name()).Inc()
	log.Debug("cart updated",
		zap.Int("lines", len(next.Items)),
		zap.String("grand_total", next.GrandTotal.String()),
	)

	return next, nil
}

func (s *service) buildLine(ctx context.Context, in AddItemInput) (Line, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, ErrItemIDRequired
	}

	var (
		offering *catalog.Offering
		err      error
	)
	switch in.Type {
	case LineTypeProduct:
		offering, err = s.catalog.GetProduct(ctx, id)
	case LineTypeService:
		if err := validateBooking(in.ServiceData); err != nil {
			return nil, err
		}
		offering, err = s.catalog.GetService(ctx, id)
	default:
		return nil, ErrInvalidLineType
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrOfferingNotFound
	}
	if err != nil {
		return nil, err
	}

	item := LineItem{
		ID:           offering.ID,
		Name:         offering.Name,
		Description:  offering.Description.String,
		ImageURL:     offering.ImageURL.String,
		Price:        offering.Price,
		Currency:     offering.Currency,
		Quantity:     in.Quantity,
		ProviderID:   offering.ProviderID,
		ProviderName: offering.ProviderName,
		HasDelivery:  offering.HasDelivery,
		HasPickup:    offering.HasPickup,
		DeliveryFee:  offering.DeliveryFee,
	}

	if in.Type == LineTypeProduct {
		return ProductLine{LineItem: item}, nil
	}

	booking := *in.ServiceData
	booking.ServiceID = offering.ID
	return ServiceLine{LineItem: item, Booking: booking}, nil
}

func validateBooking(b *ServiceData) error {
	if b == nil || strings.TrimSpace(b.AppointmentDate) == "" || strings.TrimSpace(b.TimeSlotID) == "" {
		return ErrMissingServiceData
	}
	if _, err := time.Parse(time.DateOnly, b.AppointmentDate); err != nil {
		return ErrInvalidAppointment
	}
	return nil
}
