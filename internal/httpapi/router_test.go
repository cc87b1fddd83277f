package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"petcare-be/internal/auth"
	"petcare-be/internal/cart"
	"petcare-be/internal/catalog"
	"petcare-be/internal/order"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// --- Mocks ---

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetProduct(ctx context.Context, id string) (*catalog.Offering, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Offering), args.Error(1)
}

func (m *MockCatalog) GetService(ctx context.Context, id string) (*catalog.Offering, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Offering), args.Error(1)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Submit(ctx context.Context, req order.SubmitRequest) (*order.SubmitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.SubmitResult), args.Error(1)
}

func (m *MockOrders) GetOrder(ctx context.Context, number string) (*order.Order, []order.OrderItem, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*order.Order), args.Get(1).([]order.OrderItem), args.Error(2)
}

func (m *MockOrders) AttemptStatus(ctx context.Context, key string) (order.Attempt, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(order.Attempt), args.Error(1)
}

// --- Helpers ---

type testServer struct {
	handler http.Handler
	catalog *MockCatalog
	orders  *MockOrders
	redis   *miniredis.Miniredis
	carts   cart.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cat := new(MockCatalog)
	orders := new(MockOrders)
	carts := cart.NewService(cart.NewRedisRepository(client, time.Hour), cat, cart.Reducer{FeePolicy: cart.FeePerProvider})

	h := NewRouter(Deps{
		Carts:          carts,
		Orders:         orders,
		JWTSecret:      testSecret,
		AllowedOrigin:  "http://localhost:3000",
		RequestTimeout: time.Second,
		Checks: map[string]HealthCheck{
			"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
	})

	return &testServer{handler: h, catalog: cat, orders: orders, redis: mr, carts: carts}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, userID uint) map[string]string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, userID, "ana@pets.gt", "client", time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

func croquetas() *catalog.Offering {
	return &catalog.Offering{
		ID:           "p1",
		Kind:         catalog.KindProduct,
		Name:         "Croquetas 2kg",
		Price:        decimal.RequireFromString("25.99"),
		Currency:     "GTQ",
		ProviderID:   "prov-1",
		ProviderName: "PetShop Zona 10",
		HasDelivery:  true,
		DeliveryFee:  decimal.RequireFromString("20"),
	}
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// --- Tests ---

func TestCartRoutes_GuestFlow(t *testing.T) {
	s := newTestServer(t)
	s.catalog.On("GetProduct", mock.Anything, "p1").Return(croquetas(), nil)
	guest := map[string]string{"X-Cart-ID": uuid.NewString()}

	w := s.do(t, http.MethodPost, "/cart/items", AddItemRequest{Type: cart.LineTypeProduct, ID: "p1", Quantity: 2}, guest)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	res := decodeBody[CartResponse](t, w)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Q.51.98", res.FormattedTotal)
	assert.Equal(t, "Q.20.00", res.FormattedDeliveryFee)
	assert.Equal(t, "Q.71.98", res.FormattedGrandTotal)
	assert.Equal(t, "Q.25.99", res.Items[0].FormattedPrice)
	assert.Equal(t, 2, res.ItemCount)

	w = s.do(t, http.MethodGet, "/cart/count", nil, guest)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decodeBody[map[string]int](t, w)["count"])

	w = s.do(t, http.MethodPatch, "/cart/items/p1", UpdateQuantityRequest{Quantity: 5}, guest)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decodeBody[CartResponse](t, w).Items[0].Quantity)

	w = s.do(t, http.MethodPatch, "/cart/items/p1", UpdateQuantityRequest{Quantity: 0}, guest)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[CartResponse](t, w).Items)

	w = s.do(t, http.MethodPost, "/cart/items", AddItemRequest{Type: cart.LineTypeProduct, ID: "p1"}, guest)
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodDelete, "/cart/items/p1", nil, guest)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[CartResponse](t, w).Items)

	w = s.do(t, http.MethodPost, "/cart/items", AddItemRequest{Type: cart.LineTypeProduct, ID: "p1"}, guest)
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodDelete, "/cart", nil, guest)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Q.0.00", decodeBody[CartResponse](t, w).FormattedGrandTotal)
}

func TestCartRoutes_NewGuestGetsCartID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/cart", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := uuid.Parse(w.Header().Get("X-Cart-ID"))
	assert.NoError(t, err)
	res := decodeBody[CartResponse](t, w)
	assert.NotNil(t, res.Items)
	assert.Equal(t, "GTQ", res.Currency)
}

func TestCartRoutes_Errors(t *testing.T) {
	s := newTestServer(t)
	s.catalog.On("GetProduct", mock.Anything, "ghost").Return(nil, catalog.ErrNotFound)

	w := s.do(t, http.MethodPost, "/cart/items", AddItemRequest{Type: cart.LineTypeProduct, ID: "ghost"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/cart/items", AddItemRequest{Type: cart.LineTypeService, ID: "svc-1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeBody[ErrorResponse](t, w).Code)

	w = s.do(t, http.MethodPost, "/cart/items", map[string]any{"id": "p1", "price": 0.01}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "client-supplied price must be rejected")

	w = s.do(t, http.MethodPost, "/cart/items", AddItemRequest{Type: cart.LineTypeProduct, ID: "p1", Quantity: 500}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/cart", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.redis.Close()
	w = s.do(t, http.MethodGet, "/cart", nil, bearer(t, 9))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCheckoutRoute(t *testing.T) {
	form := order.DeliveryForm{FullName: "Ana", Phone: "5555", Address: "Zona 10", City: "Guatemala"}

	t.Run("Success", func(t *testing.T) {
		s := newTestServer(t)
		s.catalog.On("GetProduct", mock.Anything, "p1").Return(croquetas(), nil)
		user := bearer(t, 9)
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/cart/items", AddItemRequest{Type: cart.LineTypeProduct, ID: "p1"}, user).Code)

		o := &order.Order{
			ID:          uuid.New(),
			OrderNumber:   "ORD-123456-AB1",
			Status:        order.StatusConfirmed,
			TotalAmount:   decimal.RequireFromString("45.99"),
			Currency:      "GTQ",
			PaymentMethod: order.PaymentTransfer,
		}
		s.orders.On("Submit", mock.Anything, mock.MatchedBy(func(req order.SubmitRequest) bool {
			return req.CartOwner == "user:9" &&
				req.IdempotencyKey == "key-1" &&
				len(req.Cart.Items) == 1 &&
				req.Delivery.FullName == "Ana"
		})).Return(&order.SubmitResult{Order: o, Items: make([]order.OrderItem, 1)}, nil)

		headers := bearer(t, 9)
		headers["Idempotency-Key"] = "key-1"
		w := s.do(t, http.MethodPost, "/checkout", form, headers)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		res := decodeBody[CheckoutResponse](t, w)
		assert.Equal(t, "ORD-123456-AB1", res.OrderNumber)
		assert.Equal(t, "Q.45.99", res.FormattedTotal)
		assert.Equal(t, "key-1", res.IdempotencyKey)
		assert.False(t, res.AppointmentsFailed)
		assert.Equal(t, "transfer", res.PaymentMethod)
		require.NotEmpty(t, res.PaymentSteps)
		assert.Contains(t, strings.Join(res.PaymentSteps, " "), "ORD-123456-AB1")
		s.orders.AssertExpectations(t)
	})

	t.Run("ReplayIs200", func(t *testing.T) {
		s := newTestServer(t)
		o := &order.Order{ID: uuid.New(), OrderNumber: "ORD-1", Currency: "GTQ"}
		s.orders.On("Submit", mock.Anything, mock.Anything).Return(&order.SubmitResult{Order: o, Replayed: true}, nil)

		w := s.do(t, http.MethodPost, "/checkout", form, bearer(t, 9))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeBody[CheckoutResponse](t, w).Replayed)
		assert.NotEmpty(t, w.Header().Get("Idempotency-Key"))
	})

	t.Run("Anonymous", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/checkout", form, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		s.orders.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	errCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"Validation", &order.ValidationError{Fields: map[string]string{"full_name": "is required"}}, http.StatusBadRequest, "validation_error"},
		{"InProgress", order.ErrSubmissionInProgress, http.StatusConflict, "submission_in_progress"},
		{"Timeout", errors.Join(order.ErrOrderCreationFailed, order.ErrTimeout), http.StatusGatewayTimeout, "timeout"},
		{"OrderFailed", order.ErrOrderCreationFailed, http.StatusBadGateway, "order_failed"},
		{"ItemsFailed", order.ErrOrderItemsCreationFailed, http.StatusBadGateway, "order_failed"},
		{"Unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			s.orders.On("Submit", mock.Anything, mock.Anything).Return(nil, tc.err)

			w := s.do(t, http.MethodPost, "/checkout", form, bearer(t, 9))
			assert.Equal(t, tc.status, w.Code)
			body := decodeBody[ErrorResponse](t, w)
			assert.Equal(t, tc.code, body.Code)
			if tc.code == "validation_error" {
				assert.Contains(t, body.Fields, "full_name")
			}
		})
	}
}

func TestOrderAndAttemptRoutes(t *testing.T) {
	s := newTestServer(t)
	o := &order.Order{ID: uuid.New(), OrderNumber: "ORD-1", ClientID: 9, TotalAmount: decimal.RequireFromString("10"), Currency: "USD"}
	s.orders.On("GetOrder", mock.Anything, "ORD-1").Return(o, []order.OrderItem{{ItemID: "p1"}}, nil)
	s.orders.On("GetOrder", mock.Anything, "ORD-404").Return(nil, nil, order.ErrOrderNotFound)
	s.orders.On("AttemptStatus", mock.Anything, "key-1").Return(order.Attempt{Key: "key-1", Status: order.AttemptSubmitting}, nil)

	w := s.do(t, http.MethodGet, "/orders/ORD-1", nil, bearer(t, 9))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.Equal(t, "ORD-1", body["order_number"])
	assert.Equal(t, "$10.00", body["formatted_total"])

	w = s.do(t, http.MethodGet, "/orders/ORD-404", nil, bearer(t, 9))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/checkout/attempts/key-1", nil, bearer(t, 9))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.AttemptSubmitting, decodeBody[order.Attempt](t, w).Status)

	w = s.do(t, http.MethodGet, "/checkout/attempts/key-1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "up", decodeBody[map[string]string](t, w)["redis"])

	w = s.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.redis.Close()
	w = s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodOptions, "/checkout", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
