package workflow

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Scanner triggers the periodic timeout sweep that escalates overdue
// workflows. It is the engine's only cancellation mechanism for a stalled
// workflow.
type Scanner struct {
	svc      *Service
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
}

func NewScanner(svc *Service, interval time.Duration) *Scanner {
	if interval < time.Minute { // defensive floor
		interval = time.Minute
	}
	return &Scanner{svc: svc, interval: interval, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
}

func (s *Scanner) Start() {
	if s.started {
		return
	}
	s.started = true
	go s.loop()
}

func (s *Scanner) Stop() {
	if !s.started {
		return
	}
	close(s.stopCh)
	<-s.doneCh
}

func (s *Scanner) loop() {
	initial := time.NewTimer(5 * time.Second)
	ticker := time.NewTicker(s.interval)
	defer func() { ticker.Stop(); close(s.doneCh) }()
	for {
		select {
		case <-s.stopCh:
			return
		case <-initial.C:
			s.runOnce()
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Scanner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	res, err := s.svc.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("workflow sweep failed")
		return
	}
	if res.Escalated > 0 || res.Reminded > 0 {
		log.Info().
			Int("escalated", res.Escalated).
			Int("reminded", res.Reminded).
			Msg("workflow sweep finished")
	}
}
