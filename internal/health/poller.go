package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"opagate/internal/domain"
	"opagate/pkg/platform/sentinel"
)

// Checker produces a fresh SystemStatus.
type Checker interface {
	Check(ctx context.Context) domain.SystemStatus
}

// Poller re-checks system status on a fixed interval and on demand, and
// keeps the latest result in a StatusStore.
type Poller struct {
	checker  Checker
	store    StatusStore
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// refreshMu serializes polls so the store only moves forward.
	refreshMu sync.Mutex
}

// NewPoller creates a stopped poller. A nil store keeps status in memory.
func NewPoller(checker Checker, store StatusStore, interval time.Duration, logger *slog.Logger) *Poller {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		checker:  checker,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Start polls once immediately and then every interval until Stop or ctx is
// cancelled. Starting a running poller returns sentinel.ErrAlreadyRunning.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return sentinel.ErrAlreadyRunning
	}
	if p.interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
	return nil
}

// Stop cancels polling and waits for an in-flight poll to finish. It is safe
// to call on a stopped poller.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh polls now, stores the result and returns it. The poll outlives a
// cancelled ctx; each probe is bounded by its own timeout instead.
func (p *Poller) Refresh(ctx context.Context) domain.SystemStatus {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	status := p.checker.Check(ctx)
	if err := p.store.Save(ctx, status); err != nil {
		p.logger.WarnContext(ctx, "failed to store system status", "error", err)
	}
	return status
}

// Latest returns the stored status, polling first when nothing is stored or
// the store cannot be read.
func (p *Poller) Latest(ctx context.Context) domain.SystemStatus {
	status, err := p.store.Load(ctx)
	if err == nil {
		return status
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		p.logger.WarnContext(ctx, "failed to load system status", "error", err)
	}
	return p.Refresh(ctx)
}
