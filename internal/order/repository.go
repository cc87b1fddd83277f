package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"petcare-be/internal/logger"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Repository writes the three checkout tables. The writes are separate
// statements; a failure in a later one leaves the earlier rows in place.
type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	CreateOrderItems(ctx context.Context, items []OrderItem) ([]OrderItem, error)
	CreateAppointments(ctx context.Context, appts []ServiceAppointment) ([]ServiceAppointment, error)
	GetOrderByIdempotencyKey(ctx context.Context, clientID uint, key string) (*Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
	ListAppointments(ctx context.Context, orderID uuid.UUID) ([]ServiceAppointment, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const (
	orderColumns = `id, order_number, client_id, subtotal, delivery_fee, total_amount,
		currency, status, payment_method, payment_status,
		delivery_name, delivery_phone, delivery_address, delivery_city, delivery_notes,
		idempotency_key, created_at, updated_at`

	orderItemColumns = `id, order_id, item_type, item_id, provider_id, name, quantity,
		unit_price, total_price, currency, has_delivery, has_pickup, delivery_fee`

	appointmentColumns = `id, order_id, order_item_id, client_id, provider_id, service_id,
		to_char(appointment_date, 'YYYY-MM-DD') AS appointment_date, time_slot_id,
		client_name, client_phone, client_email, notes, status`

	uniqueViolation = "23505"

	idempotencyConstraint = "orders_idempotency_key_key"
	orderNumberConstraint = "orders_order_number_key"
)

func (r *repository) CreateOrder(ctx context.Context, o *Order) error {
	log := logger.ForLayer(ctx, "repository", "CreateOrder").With(
		zap.String("order_number", o.OrderNumber),
	)

	query := `
		INSERT INTO orders (
			id, order_number, client_id, subtotal, delivery_fee, total_amount,
			currency, status, payment_method, payment_status,
			delivery_name, delivery_phone, delivery_address, delivery_city, delivery_notes,
			idempotency_key
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING ` + orderColumns

	row := r.db.QueryRowxContext(ctx, query,
		o.ID, o.OrderNumber, o.ClientID, o.Subtotal, o.DeliveryFee, o.TotalAmount,
		o.Currency, o.Status, o.PaymentMethod, o.PaymentStatus,
		o.DeliveryName, o.DeliveryPhone, o.DeliveryAddress, o.DeliveryCity, o.DeliveryNotes,
		o.IdempotencyKey,
	)
	if err := row.StructScan(o); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			switch pqErr.Constraint {
			case idempotencyConstraint:
				return ErrDuplicateKey
			case orderNumberConstraint:
				return ErrDuplicateOrderNumber
			}
		}
		log.Error("failed to insert order", zap.Error(err))
		return fmt.Errorf("insert order: %w", err)
	}

	log.Info("order created", zap.String("order_id", o.ID.String()))
	return nil
}

// CreateOrderItems inserts every item in one statement and returns them with
// the ids assigned by the database.
func (r *repository) CreateOrderItems(ctx context.Context, items []OrderItem) ([]OrderItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	log := logger.ForLayer(ctx, "repository", "CreateOrderItems")

	const cols = 12
	values := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*cols)
	for i, it := range items {
		values = append(values, placeholders(i*cols, cols))
		args = append(args,
			it.OrderID, it.ItemType, it.ItemID, it.ProviderID, it.Name, it.Quantity,
			it.UnitPrice, it.TotalPrice, it.Currency, it.HasDelivery, it.HasPickup, it.DeliveryFee,
		)
	}

	query := `
		INSERT INTO order_items (
			order_id, item_type, item_id, provider_id, name, quantity,
			unit_price, total_price, currency, has_delivery, has_pickup, delivery_fee
		) VALUES ` + strings.Join(values, ",") + `
		RETURNING id, item_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to insert order items", zap.Error(err))
		return nil, fmt.Errorf("insert order items: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]uuid.UUID, len(items))
	for rows.Next() {
		var (
			id     uuid.UUID
			itemID string
		)
		if err := rows.Scan(&id, &itemID); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		ids[itemID] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	out := make([]OrderItem, len(items))
	for i, it := range items {
		id, ok := ids[it.ItemID]
		if !ok {
			return nil, fmt.Errorf("insert order items: no id returned for %q", it.ItemID)
		}
		it.ID = id
		out[i] = it
	}

	log.Info("order items created", zap.Int("count", len(out)))
	return out, nil
}

func (r *repository) CreateAppointments(ctx context.Context, appts []ServiceAppointment) ([]ServiceAppointment, error) {
	if len(appts) == 0 {
		return nil, nil
	}
	log := logger.ForLayer(ctx, "repository", "CreateAppointments")

	const cols = 12
	values := make([]string, 0, len(appts))
	args := make([]any, 0, len(appts)*cols)
	for i, a := range appts {
		values = append(values, placeholders(i*cols, cols))
		args = append(args,
			a.OrderID, a.OrderItemID, a.ClientID, a.ProviderID, a.ServiceID,
			a.AppointmentDate, a.TimeSlotID, a.ClientName, a.ClientPhone, a.ClientEmail,
			a.Notes, a.Status,
		)
	}

	query := `
		INSERT INTO service_appointments (
			order_id, order_item_id, client_id, provider_id, service_id,
			appointment_date, time_slot_id, client_name, client_phone, client_email,
			notes, status
		) VALUES ` + strings.Join(values, ",") + `
		RETURNING id, order_item_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to insert appointments", zap.Error(err))
		return nil, fmt.Errorf("insert appointments: %w", err)
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]uuid.UUID, len(appts))
	for rows.Next() {
		var id, orderItemID uuid.UUID
		if err := rows.Scan(&id, &orderItemID); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		ids[orderItemID] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insert appointments: %w", err)
	}

	out := make([]ServiceAppointment, len(appts))
	for i, a := range appts {
		id, ok := ids[a.OrderItemID]
		if !ok {
			return nil, fmt.Errorf("insert appointments: no id returned for item %s", a.OrderItemID)
		}
		a.ID = id
		out[i] = a
	}

	log.Info("appointments created", zap.Int("count", len(out)))
	return out, nil
}

func (r *repository) GetOrderByIdempotencyKey(ctx context.Context, clientID uint, key string) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o,
		`SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1 AND client_id = $2`,
		key, clientID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order by idempotency key: %w", err)
	}
	return &o, nil
}

func (r *repository) GetOrderByNumber(ctx context.Context, number string) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`,
		number,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order by number: %w", err)
	}
	return &o, nil
}

func (r *repository) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	items := []OrderItem{}
	err := r.db.SelectContext(ctx, &items,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return items, nil
}

func (r *repository) ListAppointments(ctx context.Context, orderID uuid.UUID) ([]ServiceAppointment, error) {
	appts := []ServiceAppointment{}
	err := r.db.SelectContext(ctx, &appts,
		`SELECT `+appointmentColumns+` FROM service_appointments WHERE order_id = $1 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// placeholders renders ($n+1,...,$n+count).
func placeholders(offset, count int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 1; i <= count; i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "$%d", offset+i)
	}
	b.WriteByte(')')
	return b.String()
}
