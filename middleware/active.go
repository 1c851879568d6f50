package middleware

import (
	"net/http"
	"sync/atomic"
)

// Switch is a concurrency-safe on/off flag for a handler surface.
// The zero value is active.
type Switch struct {
	disabled atomic.Bool
}

// Activate turns the gated surface back on.
func (s *Switch) Activate() {
	s.disabled.Store(false)
}

// Deactivate turns the gated surface off.
func (s *Switch) Deactivate() {
	s.disabled.Store(true)
}

// Active reports whether the gated surface is on.
func (s *Switch) Active() bool {
	return !s.disabled.Load()
}

// ActiveGate serves gated while the switch is active and delegates every
// request to next otherwise, as if the gated surface were not mounted.
func ActiveGate(sw *Switch, gated http.Handler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sw.Active() {
			next.ServeHTTP(w, r)
			return
		}
		gated.ServeHTTP(w, r)
	})
}
