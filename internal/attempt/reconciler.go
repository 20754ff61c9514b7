package attempt

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper drives the deadline sweep until the context is cancelled.
// The due-time lives on the attempt record, not in process memory, so a
// restart picks overdue attempts back up on the next tick.
func (s *Service) RunSweeper(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepOverdue(ctx)
		}
	}
}

// SweepOverdue force-finishes every started attempt whose deadline has
// passed, grading an empty answer list. Finishing is idempotent against a
// user who submitted just before the sweep saw the record, and failures are
// logged and skipped so one bad record never stalls the rest.
func (s *Service) SweepOverdue(ctx context.Context) {
	overdue, err := s.store.ListOverdue(ctx, s.now())
	if err != nil {
		slog.ErrorContext(ctx, "attempt: sweep: list overdue failed", "error", err)
		return
	}

	for _, rec := range overdue {
		q, err := s.getUnblockedQuiz(ctx, rec.QuizID)
		if err != nil {
			slog.ErrorContext(ctx, "attempt: sweep: quiz lookup failed",
				"quiz_id", rec.QuizID, "user_id", rec.UserID, "error", err)
			continue
		}

		rec := rec
		if _, err := s.finish(ctx, q, &rec, nil); err != nil {
			slog.ErrorContext(ctx, "attempt: sweep: auto-submit failed",
				"quiz_id", rec.QuizID, "user_id", rec.UserID, "error", err)
			continue
		}

		slog.InfoContext(ctx, "attempt: sweep: auto-submitted expired attempt",
			"quiz_id", rec.QuizID, "user_id", rec.UserID)
	}
}
