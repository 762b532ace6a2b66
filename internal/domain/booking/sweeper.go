package booking

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically cancels bookings left unpaid past their timeout.
type Sweeper struct {
	bookings *Service
	log      logrus.FieldLogger
	interval time.Duration
	batch    int

	stopCh  chan struct{}
	done    chan struct{}
	started atomic.Bool
	once    sync.Once
}

func NewSweeper(bookings *Service, log logrus.FieldLogger, interval time.Duration, batch int) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		bookings: bookings,
		log:      log,
		interval: interval,
		batch:    batch,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.log.WithField("interval", s.interval.String()).Info("starting booking timeout sweeper")
	go s.run()
}

// Stop halts the sweeper and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
		if s.started.Load() {
			<-s.done
		}
		s.log.Info("booking timeout sweeper stopped")
	})
}

func (s *Sweeper) run() {
	defer close(s.done)

	s.RunOnce(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single pass and returns the number of cancelled bookings.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	n, err := s.bookings.ExpireUnpaid(ctx, s.batch)
	if err != nil {
		s.log.WithError(err).Error("failed to sweep expired bookings")
		return 0
	}
	if n > 0 {
		s.log.WithField("count", n).Info("expired bookings cancelled")
	}
	return n
}
