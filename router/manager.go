// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/comnsense/lib/clock"
	"github.com/bureau-foundation/comnsense/lib/document"
	"github.com/bureau-foundation/comnsense/lib/fabric"
)

// ManagerConfig carries everything a Router needs except its id.
type ManagerConfig struct {
	Hub             *fabric.Hub
	UpstreamAddress string
	Host            document.Host
	Identity        document.Identity
	PollInterval    time.Duration
	DialTimeout     time.Duration
	Clock           clock.Clock
	Logger          *slog.Logger
	Metrics         *Metrics
}

// Manager owns the routers of a process, at most one live router per
// document id.
type Manager struct {
	config ManagerConfig
	logger *slog.Logger

	mu      sync.Mutex
	workers map[string]*worker
	wg      sync.WaitGroup
}

type worker struct {
	router    *Router
	cancel    context.CancelFunc
	cancelled bool
	done      chan struct{}

	// err is written before done is closed.
	err error
}

func (w *worker) exited() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// NewManager returns a manager with no routers.
func NewManager(config ManagerConfig) *Manager {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = NewMetrics(nil)
	}
	return &Manager{
		config:  config,
		logger:  config.Logger,
		workers: make(map[string]*worker),
	}
}

// EnsureRunning starts a router for id unless a live, uncancelled one
// is already registered. A router that has exited or been cancelled is
// replaced; a cancelled one may still be draining while its
// replacement starts. It returns once the new router is subscribed to
// the hub and reports whether a router was started.
func (m *Manager) EnsureRunning(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.workers[id]; ok && !existing.cancelled && !existing.exited() {
		return false, nil
	}

	r, err := New(Config{
		ID:              id,
		Hub:             m.config.Hub,
		UpstreamAddress: m.config.UpstreamAddress,
		Host:            m.config.Host,
		Identity:        m.config.Identity,
		PollInterval:    m.config.PollInterval,
		DialTimeout:     m.config.DialTimeout,
		Clock:           m.config.Clock,
		Logger:          m.config.Logger,
		Metrics:         m.config.Metrics,
	})
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{router: r, cancel: cancel, done: make(chan struct{})}
	m.workers[id] = w

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(w.done)
		defer cancel()
		w.err = r.Run(ctx)
		if w.err != nil {
			m.logger.Error("router exited", "document", id, "error", w.err)
		}
	}()

	// Events published after EnsureRunning returns reach the router.
	select {
	case <-r.Ready():
	case <-w.done:
	}
	return true, nil
}

// Cancel signals the router for id to stop. It does not wait. It
// reports whether a router was registered.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok {
		return false
	}
	w.cancelled = true
	w.cancel()
	return true
}

// JoinAll waits for every router started so far to exit. It cancels
// nothing.
func (m *Manager) JoinAll() {
	m.wg.Wait()
}

// Shutdown cancels every router and waits for all of them.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, w := range m.workers {
		w.cancelled = true
		w.cancel()
	}
	m.mu.Unlock()
	m.JoinAll()
}

// Running returns the ids whose registered router has not exited,
// sorted.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, w := range m.workers {
		if !w.exited() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// State returns the state of the router registered for id.
func (m *Manager) State(id string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok {
		return Idle, false
	}
	return w.router.State(), true
}

// Err returns the error the router registered for id exited with. It
// is nil while the router runs and after a clean exit.
func (m *Manager) Err(id string) error {
	m.mu.Lock()
	w, ok := m.workers[id]
	m.mu.Unlock()
	if !ok || !w.exited() {
		return nil
	}
	return w.err
}

// Done returns a channel closed when the router registered for id
// exits.
func (m *Manager) Done(id string) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok {
		return nil, errors.New("router: no router registered for " + id)
	}
	return w.done, nil
}
