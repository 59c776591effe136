package reconciliation

import (
	"context"
	"log"
	"time"
)

// Scheduler triggers one reconciliation run per day for the previous
// calendar day. A failed run is logged and the scheduler keeps going; it is
// never allowed to crash the process.
type Scheduler struct {
	svc Service
	// RunAtHour is the local hour of day the run fires (default 2).
	RunAtHour int
}

func NewScheduler(svc Service) *Scheduler {
	return &Scheduler{svc: svc, RunAtHour: 2}
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		next := s.nextRun(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.runOnce(ctx)
	}
}

func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.RunAtHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduled reconciliation panicked: %v", r)
		}
	}()

	yesterday := time.Now().AddDate(0, 0, -1)
	if _, err := s.svc.Run(ctx, yesterday); err != nil {
		log.Printf("scheduled reconciliation failed for %s: %v",
			yesterday.Format(DateLayout), err)
		return
	}
	log.Printf("scheduled reconciliation completed for %s", yesterday.Format(DateLayout))
}
