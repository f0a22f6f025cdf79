package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth event labels.
const (
	AuthSignUp          = "signup"
	AuthSignIn          = "signin"
	AuthSignInFailed    = "signin_failed"
	AuthSignInThrottled = "signin_throttled"
	AuthResetRequested  = "reset_requested"
	AuthResetCompleted  = "reset_completed"
)

var authEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "认证相关事件总数。",
	},
	[]string{"event"},
)

// RecordAuthEvent counts one credential event.
func RecordAuthEvent(event string) {
	authEventsTotal.WithLabelValues(event).Inc()
}
