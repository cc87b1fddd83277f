package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petcare",
		Subsystem: "cart",
		Name:      "mutations_total",
		Help:      "Cart actions applied, by action.",
	}, []string{"action"})

	CartLoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "petcare",
		Subsystem: "cart",
		Name:      "load_failures_total",
		Help:      "Persisted carts that could not be decoded and were reset to empty.",
	})

	CheckoutSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petcare",
		Subsystem: "checkout",
		Name:      "submissions_total",
		Help:      "Checkout submissions by terminal result.",
	}, []string{"result"})

	CheckoutStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "petcare",
		Subsystem: "checkout",
		Name:      "step_duration_seconds",
		Help:      "Latency of each remote write in a checkout.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"step", "outcome"})

	AppointmentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "petcare",
		Subsystem: "checkout",
		Name:      "appointment_failures_total",
		Help:      "Orders persisted whose service appointments could not be written.",
	})
)

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveStep records the elapsed time of a checkout step.
func (t *Timer) ObserveStep(step string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CheckoutStepDuration.WithLabelValues(step, outcome).Observe(t.Duration().Seconds())
}
