package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

// Service maintains one best-score leaderboard per quiz in a redis sorted
// set, fed by finished attempts.
type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(domain.EventNameAttemptFinished, func(ctx context.Context, e event.Event) error {
		return s.RecordScore(ctx, e.(domain.EventAttemptFinished))
	})

	return s
}

type GetLeaderboardRequest struct {
	QuizID int64
}

// GetLeaderboard returns the quiz's leaderboard, best score first.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.getLeaderboardKey(req.QuizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("leaderboard not found: quiz=%d", req.QuizID))
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			Username: z.Member.(string),
			Score:    z.Score,
		})
	}

	return &domain.Leaderboard{
		QuizID:  req.QuizID,
		Entries: entries,
	}, nil
}

// RecordScore keeps the user's best score for the quiz. ZAdd GT leaves the
// member untouched when a retake scored lower.
func (s *Service) RecordScore(ctx context.Context, e domain.EventAttemptFinished) error {
	a := e.Attempt

	if err := s.redis.ZAddGT(ctx, s.getLeaderboardKey(a.QuizID), redis.Z{
		Score:  a.Score.InexactFloat64(),
		Member: a.UserName,
	}).Err(); err != nil {
		return fmt.Errorf("record score: %w", err)
	}

	return s.schedulePublishLeaderboard(ctx, a)
}

// schedulePublishLeaderboard publishes the leaderboard changes after a certain interval.
// Many attempts can finish in a short time, so instead of publishing on every
// change the first writer within the interval wins and publishes for all.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, a domain.Attempt) error {
	// SetNX is a simple way to prevent multiple instances of the service
	// from publishing the same leaderboard.
	ok, err := s.redis.SetNX(ctx, s.getLeaderboardTimeKey(a.QuizID), a.UpdateTime.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return s.publishLeaderboard(ctx, a)
}

func (s *Service) publishLeaderboard(ctx context.Context, a domain.Attempt) error {
	l, err := s.GetLeaderboard(ctx, GetLeaderboardRequest{
		QuizID: a.QuizID,
	})
	if err != nil {
		return fmt.Errorf("get leaderboard failed: quiz=%d: %w", a.QuizID, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return s.redis.Set(ctx, s.getLeaderboardTimeKey(a.QuizID), a.UpdateTime.UnixMilli(), publishInterval).Err()
}

func (s *Service) getLeaderboardKey(quizID int64) string {
	return fmt.Sprintf("%s:%d:leaderboard", s.prefix, quizID)
}

func (s *Service) getLeaderboardTimeKey(quizID int64) string {
	return fmt.Sprintf("%s:%d:time", s.prefix, quizID)
}
