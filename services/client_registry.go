package services

import (
	"sync"
	"time"

	"github.com/blogem/github-login/models"
)

// ClientRegistry interface defines client configuration bookkeeping.
// The registry is the sole owner of the config list; callers get pointers
// into it only for the duration of a single operation.
type ClientRegistry interface {
	Add(config *models.ClientConfig)
	Remove(config *models.ClientConfig)
	SweepExpired()
	Find(appID string) *models.ClientConfig
	Consume(appID string) *models.ClientConfig
	All() []*models.ClientConfig
	Snapshot() []models.ClientConfig
	Restore(configs []models.ClientConfig)
}

// clientRegistry implements ClientRegistry with an insertion-ordered list.
// All read-then-mutate sequences run under one mutex hold so the one-time
// consumption guarantee survives concurrent callbacks.
type clientRegistry struct {
	mu      sync.Mutex
	configs []*models.ClientConfig
}

// NewClientRegistry creates an empty client registry
func NewClientRegistry() ClientRegistry {
	return &clientRegistry{}
}

// Add appends a client configuration. Duplicate app_ids are not rejected;
// Find returns the earliest-registered match.
func (r *clientRegistry) Add(config *models.ClientConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, config)
}

// Remove removes a client configuration by identity. No-op if absent.
func (r *clientRegistry) Remove(config *models.ClientConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(config)
}

func (r *clientRegistry) removeLocked(config *models.ClientConfig) {
	kept := r.configs[:0]
	for _, c := range r.configs {
		if c != config {
			kept = append(kept, c)
		}
	}
	r.configs = kept
}

// SweepExpired removes every temporary configuration whose expiration has
// passed. Configs without an expiration are never swept.
func (r *clientRegistry) SweepExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(time.Now())
}

func (r *clientRegistry) sweepLocked(now time.Time) {
	kept := r.configs[:0]
	for _, c := range r.configs {
		if !c.Expired(now) {
			kept = append(kept, c)
		}
	}
	r.configs = kept
}

// Find returns the first configuration registered under appID, or nil.
// Every lookup sweeps expired configs first, so an expired config can
// never be returned and is purged as a side effect.
func (r *clientRegistry) Find(appID string) *models.ClientConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(appID)
}

func (r *clientRegistry) findLocked(appID string) *models.ClientConfig {
	r.sweepLocked(time.Now())
	for _, c := range r.configs {
		if c.AppID == appID {
			return c
		}
	}
	return nil
}

// Consume looks up appID and, if the config is one-time, removes it in the
// same critical section. The returned config remains valid for the calling
// request; at most one concurrent caller can receive a given one-time
// config, every other caller sees nil.
func (r *clientRegistry) Consume(appID string) *models.ClientConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	config := r.findLocked(appID)
	if config != nil && config.OneTime {
		r.removeLocked(config)
	}
	return config
}

// All returns the live configurations in insertion order, after a sweep.
func (r *clientRegistry) All() []*models.ClientConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(time.Now())
	out := make([]*models.ClientConfig, len(r.configs))
	copy(out, r.configs)
	return out
}

// Snapshot returns a verbatim value copy of the list for persistence
// hand-off. No sweep: the snapshot mirrors the list as-is.
func (r *clientRegistry) Snapshot() []models.ClientConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ClientConfig, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, *c)
	}
	return out
}

// Restore replaces the list with the given configurations, verbatim.
func (r *clientRegistry) Restore(configs []models.ClientConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = make([]*models.ClientConfig, 0, len(configs))
	for i := range configs {
		config := configs[i]
		r.configs = append(r.configs, &config)
	}
}
