package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/switchboard-simulator/model"
)

// SwitchboardCollector bundles Prometheus metrics for the exchange core and
// implements the session's MetricsRecorder interface.
type SwitchboardCollector struct {
	gatherer prometheus.Gatherer

	CallsReceived prometheus.Counter
	CallsResolved *prometheus.CounterVec
	CallsAnswered prometheus.Counter
	CallsDropped  prometheus.Counter
	WaitDurations prometheus.Histogram

	ActiveCalls      prometheus.Gauge
	PendingEvents    prometheus.Gauge
	SecondsRemaining prometheus.Gauge
}

// NewSwitchboardCollector registers exchange Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewSwitchboardCollector(reg prometheus.Registerer) (*SwitchboardCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	received, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exchange_calls_received_total",
		Help: "Total number of calls placed on the board.",
	}), "exchange_calls_received_total")
	if err != nil {
		return nil, err
	}

	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_calls_resolved_total",
		Help: "Total number of resolved calls, labeled by outcome.",
	}, []string{"outcome"})
	resolved, err = registerCounterVec(reg, resolved, "exchange_calls_resolved_total")
	if err != nil {
		return nil, err
	}

	answered, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exchange_calls_answered_total",
		Help: "Total number of calls answered by an operator.",
	}), "exchange_calls_answered_total")
	if err != nil {
		return nil, err
	}

	dropped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exchange_calls_dropped_total",
		Help: "Total number of calls dropped by an unplugged cable.",
	}), "exchange_calls_dropped_total")
	if err != nil {
		return nil, err
	}

	waits := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "exchange_call_wait_seconds",
		Help:    "Time callers waited between placing a call and being connected.",
		Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
	})
	waits, err = registerHistogram(reg, waits, "exchange_call_wait_seconds")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "exchange_active_calls",
		Help: "Number of calls currently live on the board.",
	}), "exchange_active_calls")
	if err != nil {
		return nil, err
	}

	pending, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "exchange_scheduler_events_pending",
		Help: "Number of live events queued in the session scheduler.",
	}), "exchange_scheduler_events_pending")
	if err != nil {
		return nil, err
	}

	remaining, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "exchange_session_seconds_remaining",
		Help: "Seconds left in the current session.",
	}), "exchange_session_seconds_remaining")
	if err != nil {
		return nil, err
	}

	return &SwitchboardCollector{
		gatherer:         gatherer,
		CallsReceived:    received,
		CallsResolved:    resolved,
		CallsAnswered:    answered,
		CallsDropped:     dropped,
		WaitDurations:    waits,
		ActiveCalls:      active,
		PendingEvents:    pending,
		SecondsRemaining: remaining,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SwitchboardCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// CallReceived counts a newly placed call.
func (c *SwitchboardCollector) CallReceived() {
	if c == nil || c.CallsReceived == nil {
		return
	}
	c.CallsReceived.Inc()
}

// CallResolved records a terminal call: outcome counter, answered/dropped
// detail, and the caller's wait time for connected calls.
func (c *SwitchboardCollector) CallResolved(record model.CallRecord) {
	if c == nil {
		return
	}
	if c.CallsResolved != nil {
		c.CallsResolved.WithLabelValues(outcomeLabel(record.Outcome)).Inc()
	}
	if record.Answered && c.CallsAnswered != nil {
		c.CallsAnswered.Inc()
	}
	if record.Dropped && c.CallsDropped != nil {
		c.CallsDropped.Inc()
	}
	if record.Connected && c.WaitDurations != nil {
		c.WaitDurations.Observe(record.WaitTime.Seconds())
	}
}

// SetActiveCalls updates the live-call gauge.
func (c *SwitchboardCollector) SetActiveCalls(n int) {
	if c == nil || c.ActiveCalls == nil {
		return
	}
	c.ActiveCalls.Set(float64(n))
}

// SetPendingEvents updates the scheduler queue depth gauge.
func (c *SwitchboardCollector) SetPendingEvents(n int) {
	if c == nil || c.PendingEvents == nil {
		return
	}
	c.PendingEvents.Set(float64(n))
}

// SetSecondsRemaining updates the countdown gauge.
func (c *SwitchboardCollector) SetSecondsRemaining(n int) {
	if c == nil || c.SecondsRemaining == nil {
		return
	}
	c.SecondsRemaining.Set(float64(n))
}

func outcomeLabel(o model.Outcome) string {
	switch o {
	case model.OutcomeSucceeded:
		return "succeeded"
	case model.OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
