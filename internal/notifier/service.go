package notifier

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pmojobs/internal/metrics"
	"pmojobs/pkg/logx"
)

// Service is an async notification pipeline: bounded queue, one delivery
// worker, rate limiting, per-channel outcome counters. Safe for concurrent
// use.
type Service struct {
	mu sync.Mutex

	log     logx.Logger
	ms      *metrics.Store
	senders []Sender

	cfg     Config
	limiter *rate.Limiter

	queue     chan Notification
	accepting bool
	stopCh    chan struct{}
	workerWG  sync.WaitGroup
}

func New(cfg Config, ms *metrics.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log, ms: ms}
	s.applyLocked(cfg)
	return s
}

// Register adds a delivery channel. Call before Start.
func (s *Service) Register(snd Sender) {
	s.mu.Lock()
	s.senders = append(s.senders, snd)
	s.mu.Unlock()
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.queue = make(chan Notification, s.cfg.QueueSize)
	s.accepting = true

	stopCh := s.stopCh
	queue := s.queue
	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		s.worker(ctx, stopCh, queue)
	}()
	s.log.Info("notifier started", logx.Int("channels", len(s.senders)))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	stopCh := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()

	close(stopCh)

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Notify queues a notification for delivery on every channel.
func (s *Service) Notify(n Notification) error {
	s.mu.Lock()
	if !s.cfg.Enabled {
		s.mu.Unlock()
		return ErrDisabled
	}
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	s.mu.Unlock()

	select {
	case q <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case n := <-queue:
			s.deliver(ctx, n)
		}
	}
}

func (s *Service) deliver(ctx context.Context, n Notification) {
	s.mu.Lock()
	senders := append([]Sender(nil), s.senders...)
	limiter := s.limiter
	s.mu.Unlock()

	for _, snd := range senders {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := snd.Send(sctx, n)
		cancel()
		if s.ms != nil {
			s.ms.RecordNotification(snd.Name(), err == nil)
		}
		if err != nil {
			s.log.Warn("notification delivery failed",
				logx.String("channel", snd.Name()),
				logx.String("subject", n.Subject),
				logx.Err(err))
		}
	}
}
