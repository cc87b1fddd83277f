package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"petcare-be/internal/cart"
	"petcare-be/internal/events"
	"petcare-be/internal/logger"
	"petcare-be/internal/metrics"
	"petcare-be/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("petcare-be/internal/order")

const maxOrderNumberAttempts = 3

// CartClearer empties a cart after its order is persisted. cart.Service
// satisfies it.
type CartClearer interface {
	Clear(ctx context.Context, owner string) (cart.State, error)
}

type SubmitRequest struct {
	CartOwner      string
	Cart           cart.State
	Delivery       DeliveryForm
	IdempotencyKey string
}

type SubmitResult struct {
	Order              *Order
	Items              []OrderItem
	Appointments       []ServiceAppointment
	AppointmentsFailed bool
	// Replayed is set when the key already had a complete order and nothing
	// was written.
	Replayed bool
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	// GetOrder returns an order of the signed-in user; other users' orders are
	// reported as not found.
	GetOrder(ctx context.Context, number string) (*Order, []OrderItem, error)
	AttemptStatus(ctx context.Context, key string) (Attempt, error)
}

type service struct {
	repo        Repository
	tracker     AttemptTracker
	carts       CartClearer
	publisher   events.Publisher
	callTimeout time.Duration
	orderNumber func() string
}

func NewService(repo Repository, tracker AttemptTracker, carts CartClearer, publisher events.Publisher, callTimeout time.Duration) Service {
	return &service{
		repo:        repo,
		tracker:     tracker,
		carts:       carts,
		publisher:   publisher,
		callTimeout: callTimeout,
		orderNumber: utils.GenerateOrderNumber,
	}
}

// Submit turns a cart into an order, its items and its service appointments.
// The writes run one after another and are not atomic: a header without items
// can remain after ErrOrderItemsCreationFailed, and a failed appointment write
// is reported in the result instead of failing the checkout. Resubmitting with
// the same key finishes a header left without items. The cart is only cleared
// once the items are stored.
func (s *service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "order.Submit")
	defer span.End()

	log := logger.ForLayer(ctx, "service", "Submit")

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		metrics.CheckoutSubmissions.WithLabelValues("unauthenticated").Inc()
		return nil, ErrAuthenticationRequired
	}

	form := req.Delivery.Normalize()
	if verr := Validate(form, req.Cart); verr != nil {
		log.Info("checkout rejected", zap.Uint("user_id", userID), zap.Any("fields", verr.Fields))
		metrics.CheckoutSubmissions.WithLabelValues("validation_error").Inc()
		return nil, verr
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}

	log = log.With(zap.Uint("user_id", userID), zap.String("idempotency_key", key))
	span.SetAttributes(
		attribute.String("checkout.idempotency_key", key),
		attribute.Int("checkout.lines", len(req.Cart.Items)),
	)

	// the client leaving the page must not abort a half-written order
	ctx = context.WithoutCancel(ctx)

	// a header stored without items belongs to an attempt that failed midway
	var unfinished *Order
	res, err := s.replay(ctx, userID, key)
	switch {
	case err == nil && res.Replayed:
		log.Info("replaying existing order", zap.String("order_number", res.Order.OrderNumber))
		metrics.CheckoutSubmissions.WithLabelValues("replayed").Inc()
		return res, nil
	case err == nil:
		unfinished = res.Order
	case !errors.Is(err, ErrOrderNotFound):
		log.Warn("idempotency lookup failed", zap.Error(err))
	}

	if err := s.tracker.Begin(ctx, key); err != nil {
		if errors.Is(err, ErrSubmissionInProgress) {
			metrics.CheckoutSubmissions.WithLabelValues("in_progress").Inc()
			return nil, err
		}
		log.Warn("attempt tracker unavailable, continuing unguarded", zap.Error(err))
	}

	email := utils.GetUserEmailFromContext(ctx)
	if unfinished != nil {
		res, err = s.resume(ctx, unfinished, req.Cart, form, email)
	} else {
		res, err = s.persist(ctx, userID, email, req.Cart, form, key)
	}
	if err != nil {
		if !errors.Is(err, ErrSubmissionInProgress) {
			if ferr := s.tracker.Fail(ctx, key); ferr != nil {
				log.Warn("failed to record checkout failure", zap.Error(ferr))
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CheckoutSubmissions.WithLabelValues(resultLabel(err)).Inc()
		log.Error("checkout failed", zap.Error(err))
		return nil, err
	}

	if err := s.tracker.Succeed(ctx, key, res.Order.OrderNumber); err != nil {
		log.Warn("failed to record checkout success", zap.Error(err))
	}

	if res.Replayed {
		metrics.CheckoutSubmissions.WithLabelValues("replayed").Inc()
		return res, nil
	}

	if _, err := s.carts.Clear(ctx, req.CartOwner); err != nil {
		log.Error("order stored but cart not cleared",
			zap.String("order_number", res.Order.OrderNumber),
			zap.Error(err),
		)
	}

	s.publish(ctx, res)

	metrics.CheckoutSubmissions.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.String("order.number", res.Order.OrderNumber))
	log.Info("checkout completed",
		zap.String("order_number", res.Order.OrderNumber),
		zap.Int("items", len(res.Items)),
		zap.Int("appointments", len(res.Appointments)),
		zap.Bool("appointments_failed", res.AppointmentsFailed),
	)

	return res, nil
}

func (s *service) persist(ctx context.Context, userID uint, email string, st cart.State, form DeliveryForm, key string) (*SubmitResult, error) {
	o := &Order{
		ID:              uuid.New(),
		ClientID:        userID,
		Subtotal:        st.Total,
		DeliveryFee:     st.DeliveryFee,
		TotalAmount:     st.GrandTotal,
		Currency:        st.Items[0].Item().Currency,
		Status:          StatusConfirmed,
		PaymentMethod:   form.PaymentMethod,
		PaymentStatus:   PaymentCompleted,
		DeliveryName:    form.FullName,
		DeliveryPhone:   form.Phone,
		DeliveryAddress: form.Address,
		DeliveryCity:    form.City,
		DeliveryNotes:   form.Notes,
		IdempotencyKey:  key,
	}

	var err error
	for i := 0; i < maxOrderNumberAttempts; i++ {
		o.OrderNumber = s.orderNumber()
		err = s.call(ctx, "create_order", func(ctx context.Context) error {
			return s.repo.CreateOrder(ctx, o)
		})
		if !errors.Is(err, ErrDuplicateOrderNumber) {
			break
		}
	}
	switch {
	case errors.Is(err, ErrDuplicateKey):
		// a concurrent attempt with the same key won the insert
		res, rerr := s.replay(ctx, userID, key)
		if rerr != nil {
			return nil, fmt.Errorf("%w: %w", ErrOrderCreationFailed, rerr)
		}
		if !res.Replayed {
			// the winner is still writing its items
			return nil, ErrSubmissionInProgress
		}
		return res, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrOrderCreationFailed, err)
	}

	return s.complete(ctx, o, st, form, email)
}

// resume finishes an order whose header an earlier attempt stored before its
// items failed. The cart must still price to the stored header.
func (s *service) resume(ctx context.Context, o *Order, st cart.State, form DeliveryForm, email string) (*SubmitResult, error) {
	log := logger.ForLayer(ctx, "service", "resume").With(zap.String("order_number", o.OrderNumber))

	if o.Currency != st.Items[0].Item().Currency || !o.TotalAmount.Equal(st.GrandTotal) {
		log.Info("cart changed since the interrupted checkout",
			zap.String("stored_total", o.TotalAmount.String()),
			zap.String("cart_total", st.GrandTotal.String()),
		)
		return nil, &ValidationError{Fields: map[string]string{
			"cart": "changed since the interrupted checkout, start a new one",
		}}
	}

	log.Info("resuming order stored without items")
	return s.complete(ctx, o, st, form, email)
}

// complete writes the items and appointments of a stored order header.
func (s *service) complete(ctx context.Context, o *Order, st cart.State, form DeliveryForm, email string) (*SubmitResult, error) {
	log := logger.ForLayer(ctx, "service", "complete")

	var items []OrderItem
	err := s.call(ctx, "create_order_items", func(ctx context.Context) error {
		var cerr error
		items, cerr = s.repo.CreateOrderItems(ctx, buildItems(o.ID, st))
		return cerr
	})
	if err != nil {
		log.Error("order header stored without items",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrOrderItemsCreationFailed, err)
	}

	res := &SubmitResult{Order: o, Items: items}

	appts := buildAppointments(o, items, st, form, email)
	if len(appts) == 0 {
		return res, nil
	}

	err = s.call(ctx, "create_appointments", func(ctx context.Context) error {
		var cerr error
		res.Appointments, cerr = s.repo.CreateAppointments(ctx, appts)
		return cerr
	})
	if err != nil {
		log.Error("order kept without its appointments",
			zap.String("order_number", o.OrderNumber),
			zap.Error(fmt.Errorf("%w: %w", ErrAppointmentCreationFailed, err)),
		)
		metrics.AppointmentFailures.Inc()
		res.Appointments = nil
		res.AppointmentsFailed = true
	}

	return res, nil
}

func (s *service) replay(ctx context.Context, userID uint, key string) (*SubmitResult, error) {
	var o *Order
	err := s.call(ctx, "lookup_order", func(ctx context.Context) error {
		var gerr error
		o, gerr = s.repo.GetOrderByIdempotencyKey(ctx, userID, key)
		return gerr
	})
	if err != nil {
		return nil, err
	}

	var items []OrderItem
	err = s.call(ctx, "list_order_items", func(ctx context.Context) error {
		var lerr error
		items, lerr = s.repo.ListOrderItems(ctx, o.ID)
		return lerr
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &SubmitResult{Order: o}, nil
	}

	var appts []ServiceAppointment
	err = s.call(ctx, "list_appointments", func(ctx context.Context) error {
		var lerr error
		appts, lerr = s.repo.ListAppointments(ctx, o.ID)
		return lerr
	})
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		Order:              o,
		Items:              items,
		Appointments:       appts,
		AppointmentsFailed: len(appts) < countServiceItems(items),
		Replayed:           true,
	}, nil
}

func countServiceItems(items []OrderItem) int {
	n := 0
	for _, it := range items {
		if it.ItemType == string(cart.LineTypeService) {
			n++
		}
	}
	return n
}

func (s *service) publish(ctx context.Context, res *SubmitResult) {
	providers := []string{}
	seen := map[string]bool{}
	for _, it := range res.Items {
		if !seen[it.ProviderID] {
			seen[it.ProviderID] = true
			providers = append(providers, it.ProviderID)
		}
	}

	evt := events.OrderCreated{
		OrderID:            res.Order.ID.String(),
		OrderNumber:        res.Order.OrderNumber,
		ClientID:           res.Order.ClientID,
		ProviderIDs:        providers,
		TotalAmount:        res.Order.TotalAmount,
		Currency:           res.Order.Currency,
		ItemCount:          len(res.Items),
		AppointmentCount:   len(res.Appointments),
		AppointmentsFailed: res.AppointmentsFailed,
		CreatedAt:          res.Order.CreatedAt,
	}

	err := s.call(ctx, "publish_event", func(ctx context.Context) error {
		return s.publisher.PublishOrderCreated(ctx, evt)
	})
	if err != nil {
		logger.ForLayer(ctx, "service", "publish").Warn("order.created not published",
			zap.String("order_number", evt.OrderNumber),
			zap.Error(err),
		)
	}
}

// call runs one remote step under its own deadline, traced and timed.
func (s *service) call(ctx context.Context, step string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "order."+step)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	timer := metrics.StartTimer()
	err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	timer.ObserveStep(step, err)

	if err != nil && !errors.Is(err, ErrOrderNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *service) GetOrder(ctx context.Context, number string) (*Order, []OrderItem, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, nil, ErrAuthenticationRequired
	}

	o, err := s.repo.GetOrderByNumber(ctx, number)
	if err != nil {
		return nil, nil, err
	}
	if o.ClientID != userID {
		logger.ForLayer(ctx, "service", "GetOrder").Warn("order requested by another user",
			zap.Uint("user_id", userID),
			zap.String("order_number", number),
		)
		return nil, nil, ErrOrderNotFound
	}

	items, err := s.repo.ListOrderItems(ctx, o.ID)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

func (s *service) AttemptStatus(ctx context.Context, key string) (Attempt, error) {
	return s.tracker.Status(ctx, key)
}

func buildItems(orderID uuid.UUID, st cart.State) []OrderItem {
	items := make([]OrderItem, 0, len(st.Items))
	for _, l := range st.Items {
		li := l.Item()
		items = append(items, OrderItem{
			OrderID:     orderID,
			ItemType:    string(l.Type()),
			ItemID:      li.ID,
			ProviderID:  li.ProviderID,
			Name:        li.Name,
			Quantity:    li.Quantity,
			UnitPrice:   li.Price,
			TotalPrice:  li.Subtotal(),
			Currency:    li.Currency,
			HasDelivery: li.HasDelivery,
			HasPickup:   li.HasPickup,
			DeliveryFee: deliveryFeeOf(li),
		})
	}
	return items
}

func deliveryFeeOf(li cart.LineItem) decimal.Decimal {
	if !li.HasDelivery {
		return decimal.Zero
	}
	return li.DeliveryFee
}

// buildAppointments creates one pending appointment per service line. Contact
// fields left empty on the booking fall back to the delivery form and account.
func buildAppointments(o *Order, items []OrderItem, st cart.State, form DeliveryForm, email string) []ServiceAppointment {
	itemIDs := make(map[string]uuid.UUID, len(items))
	for _, it := range items {
		itemIDs[it.ItemID] = it.ID
	}

	var out []ServiceAppointment
	for _, sl := range st.ServiceLines() {
		b := sl.Booking
		out = append(out, ServiceAppointment{
			OrderID:         o.ID,
			OrderItemID:     itemIDs[sl.ID],
			ClientID:        o.ClientID,
			ProviderID:      sl.ProviderID,
			ServiceID:       firstNonEmpty(b.ServiceID, sl.ID),
			AppointmentDate: b.AppointmentDate,
			TimeSlotID:      b.TimeSlotID,
			ClientName:      firstNonEmpty(b.ClientName, form.FullName),
			ClientPhone:     firstNonEmpty(b.ClientPhone, form.Phone),
			ClientEmail:     firstNonEmpty(b.ClientEmail, email),
			Notes:           b.Notes,
			Status:          AppointmentPending,
		})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrSubmissionInProgress):
		return "in_progress"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrOrderItemsCreationFailed):
		return "items_failed"
	case errors.Is(err, ErrOrderCreationFailed):
		return "order_failed"
	default:
		return "error"
	}
}
