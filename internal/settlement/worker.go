package settlement

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically expires settlement requests whose attestation window
// elapsed. Only started when governance configured a non-zero TTL.
type Sweeper struct {
	service  *Service
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger

	stopOnce sync.Once
	done     chan struct{}
	finished chan struct{}
}

// NewSweeper builds a sweeper checking every interval for requests older
// than ttl. A zero interval defaults to one tenth of the TTL, floored at a
// second.
func NewSweeper(service *Service, ttl, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = ttl / 10
		if interval < time.Second {
			interval = time.Second
		}
	}
	return &Sweeper{
		service:  service,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Run blocks sweeping until Stop is called. Callers start it in a goroutine.
func (s *Sweeper) Run() {
	defer close(s.finished)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			expired, err := s.service.ExpireStale(ctx, time.Now().UTC().Add(-s.ttl))
			cancel()
			if err != nil {
				s.logger.Error("settlement expiry sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				s.logger.Info("expired stale settlement requests", "count", expired)
			}
		}
	}
}

// Stop halts the sweeper and waits for the in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	<-s.finished
}
