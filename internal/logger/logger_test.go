package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	// Save original logger to restore later
	originalLog := log
	defer func() { log = originalLog }()

	t.Run("Production", func(t *testing.T) {
		Init("production")
		assert.NotNil(t, log)
	})

	t.Run("Development", func(t *testing.T) {
		Init("development")
		assert.NotNil(t, log)
	})

	t.Run("BaseFields", func(t *testing.T) {
		core, observed := observer.New(zapcore.InfoLevel)
		origOptions := buildOptions
		defer func() { buildOptions = origOptions }()
		buildOptions = append(append([]zap.Option{}, origOptions...),
			zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }),
		)

		Init("production", zap.String("version", "1.4.0"))
		L().Info("server starting")

		fields := observed.TakeAll()[0].ContextMap()
		assert.Equal(t, "petcare-be", fields["service"])
		assert.Equal(t, "1.4.0", fields["version"])
	})
}

func TestL(t *testing.T) {
	// Save original logger
	originalLog := log
	defer func() { log = originalLog }()

	// Force nil to test lazy initialization
	log = nil
	os.Setenv("APP_ENV", "test")

	l := L()
	assert.NotNil(t, l)
	assert.NotNil(t, log)
}

func TestContextFunctions(t *testing.T) {
	ctx := context.Background()
	reqID := "checkout-request-123"

	t.Run("WithRequestID", func(t *testing.T) {
		newCtx := WithRequestID(ctx, reqID)
		assert.NotEqual(t, ctx, newCtx)

		// Verify the value is stored with the correct key
		val := newCtx.Value(requestIDKey)
		assert.Equal(t, reqID, val)
	})

	t.Run("RequestIDFrom", func(t *testing.T) {
		// Case 1: Context has Request ID
		ctxWithID := WithRequestID(ctx, reqID)
		extractedID := RequestIDFrom(ctxWithID)
		assert.Equal(t, reqID, extractedID)

		// Case 2: Context does not have Request ID
		emptyID := RequestIDFrom(ctx)
		assert.Equal(t, "", emptyID)
	})
}

func TestFromCtx(t *testing.T) {
	// Create an observer to verify logs
	core, observed := observer.New(zapcore.InfoLevel)
	obsLogger := zap.New(core)

	// Swap the global logger with our observer logger
	originalLog := log
	log = obsLogger
	defer func() { log = originalLog }()

	t.Run("WithRequestID", func(t *testing.T) {
		reqID := "req-abc-123"
		ctx := WithRequestID(context.Background(), reqID)

		// Get logger from context
		l := FromCtx(ctx)
		l.Info("test message with id")

		// Verify log output
		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		assert.Equal(t, "test message with id", logs[0].Message)

		// Verify request_id field is present
		fields := logs[0].ContextMap()
		assert.Equal(t, reqID, fields["request_id"])
	})

	t.Run("WithoutRequestID", func(t *testing.T) {
		ctx := context.Background()

		// Get logger from context
		l := FromCtx(ctx)
		l.Info("test message without id")

		// Verify log output
		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		assert.Equal(t, "test message without id", logs[0].Message)

		// Verify request_id field is NOT present
		fields := logs[0].ContextMap()
		_, ok := fields["request_id"]
		assert.False(t, ok)
	})

	t.Run("WithSpan", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    trace.TraceID{0x01, 0x02},
			SpanID:     trace.SpanID{0x03},
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		FromCtx(ctx).Info("traced")

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		fields := logs[0].ContextMap()
		assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
		assert.Equal(t, sc.SpanID().String(), fields["span_id"])
	})
}

func TestSync(t *testing.T) {
	// Just ensure it doesn't panic.
	assert.NotPanics(t, func() {
		Sync()
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify Request ID is injected into context
		rid := RequestIDFrom(r.Context())
		assert.NotEmpty(t, rid)
	})

	handler := RequestIDMiddleware(nextHandler)

	t.Run("Generates ID when missing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("Preserves existing ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		existingID := "test-id-123"
		req.Header.Set("X-Request-ID", existingID)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, existingID, w.Header().Get("X-Request-ID"))
	})
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		status  int
		level   zapcore.Level
		message string
	}{
		{"CartItemAdded", http.MethodPost, "/cart/items", http.StatusCreated, zapcore.InfoLevel, "incoming request"},
		{"CheckoutInProgress", http.MethodPost, "/checkout", http.StatusConflict, zapcore.WarnLevel, "request rejected"},
		{"CheckoutTimedOut", http.MethodPost, "/checkout", http.StatusGatewayTimeout, zapcore.ErrorLevel, "request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, observed := observer.New(zapcore.InfoLevel)
			defer Replace(zap.New(core))()

			handler := RequestIDMiddleware(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"ok":true}`))
			})))
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("X-Request-ID", "checkout-req-7")

			handler.ServeHTTP(httptest.NewRecorder(), req)

			logs := observed.TakeAll()
			assert.Len(t, logs, 1)
			assert.Equal(t, tt.message, logs[0].Message)
			assert.Equal(t, tt.level, logs[0].Level)

			fields := logs[0].ContextMap()
			assert.Equal(t, tt.path, fields["path"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, int64(len(`{"ok":true}`)), fields["bytes"])
			assert.Equal(t, "checkout-req-7", fields["request_id"])
		})
	}
}

func TestForLayer(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	defer restore()

	ctx := WithRequestID(context.Background(), "req-1")
	ForLayer(ctx, "service", "Submit").Info("checkout started")

	logs := observed.TakeAll()
	assert.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "service", fields["layer"])
	assert.Equal(t, "Submit", fields["method"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestReplace(t *testing.T) {
	original := L()
	replacement := zap.NewNop()

	restore := Replace(replacement)
	assert.Same(t, replacement, L())

	restore()
	assert.Same(t, original, L())
}
