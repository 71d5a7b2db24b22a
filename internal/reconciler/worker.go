package reconciler

import (
	"context"
	"errors"
	"log"
	"time"
)

// Worker periodically scans for events whose window has closed with fines
// still unprocessed and reconciles them. This replaces the original design's
// reliance on a client happening to open the right screen.
type Worker struct {
	rec      *Reconciler
	interval time.Duration
}

func NewWorker(rec *Reconciler, interval time.Duration) *Worker {
	return &Worker{rec: rec, interval: interval}
}

// Run ticks until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	events, err := w.rec.events.UnprocessedEvents(ctx)
	if err != nil {
		log.Printf("reconcile scan failed: %v", err)
		return
	}

	now := w.rec.now()
	for _, event := range events {
		if !w.rec.Due(event, now) {
			continue
		}
		created, err := w.rec.Run(ctx, event)
		switch {
		case errors.Is(err, ErrReconciling):
			// Someone else is on it.
		case err != nil:
			log.Printf("reconcile event %s failed after %d fines: %v", event.ID.Hex(), created, err)
		default:
			log.Printf("event %s reconciled, %d absentee fines assessed", event.ID.Hex(), created)
		}
	}
}
