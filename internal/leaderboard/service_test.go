package leaderboard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/event"
	"github.com/rastercell/lms-api/internal/leaderboard"
)

func TestService_RecordScore(t *testing.T) {
	s := makeService(t)

	err := s.RecordScore(context.Background(), domain.EventAttemptFinished{
		Attempt: domain.Attempt{
			QuizID:     1001,
			UserID:     "id-1",
			UserName:   "u1",
			Score:      decimal.NewFromFloat(75.5),
			UpdateTime: time.Now(),
		},
	})
	require.NoError(t, err)

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{
		QuizID: 1001,
	})
	require.NoError(t, err)

	want := &domain.Leaderboard{
		QuizID: 1001,
		Entries: []domain.LeaderboardEntry{
			{Username: "u1", Score: 75.5},
		},
	}
	require.Equal(t, want, resp)
}

func TestService_RecordScore_KeepsBest(t *testing.T) {
	s := makeService(t)

	for _, score := range []float64{80, 60} {
		err := s.RecordScore(context.Background(), domain.EventAttemptFinished{
			Attempt: domain.Attempt{
				QuizID:     1001,
				UserName:   "u1",
				Score:      decimal.NewFromFloat(score),
				UpdateTime: time.Now(),
			},
		})
		require.NoError(t, err)
	}

	resp, err := s.GetLeaderboard(context.Background(), leaderboard.GetLeaderboardRequest{
		QuizID: 1001,
	})
	require.NoError(t, err)
	require.Equal(t, []domain.LeaderboardEntry{{Username: "u1", Score: 80}}, resp.Entries)
}

func TestService_PublishLeaderboardUpdated(t *testing.T) {
	type (
		inputs struct {
			receivedEvents []domain.EventAttemptFinished
		}

		outputs struct {
			publishedEvents []domain.EventLeaderboardUpdated
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should publish correct event leaderboard.updated after receiving attempt.finished": {
			arrange: func() inputs {
				return inputs{
					receivedEvents: []domain.EventAttemptFinished{
						{
							Attempt: domain.Attempt{
								QuizID:     1001,
								UserName:   "u1",
								Score:      decimal.NewFromFloat(50),
								UpdateTime: time.Now(),
							},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.publishedEvents, 1, "should receive 1 leaderboard updated event")
				require.Equal(t, domain.Leaderboard{
					QuizID: 1001,
					Entries: []domain.LeaderboardEntry{
						{Username: "u1", Score: 50},
					},
				}, out.publishedEvents[0].Leaderboard)
			},
		},

		"should publish 2 events leaderboard.updated after receiving events attempt.finished for 2 different quizzes": {
			arrange: func() inputs {
				return inputs{
					receivedEvents: []domain.EventAttemptFinished{
						{
							Attempt: domain.Attempt{
								QuizID:     1001,
								UserName:   "u1",
								Score:      decimal.NewFromFloat(50),
								UpdateTime: time.Now(),
							},
						},
						{
							Attempt: domain.Attempt{
								QuizID:     1002,
								UserName:   "u2",
								Score:      decimal.NewFromFloat(100),
								UpdateTime: time.Now(),
							},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.publishedEvents, 2, "should receive 2 leaderboard updated event")
			},
		},

		"should publish 1 event leaderboard.updated after receiving events attempt.finished for the same quiz within the publish interval": {
			arrange: func() inputs {
				return inputs{
					receivedEvents: []domain.EventAttemptFinished{
						{
							Attempt: domain.Attempt{
								QuizID:     1001,
								UserName:   "u1",
								Score:      decimal.NewFromFloat(50),
								UpdateTime: time.Now(),
							},
						},
						{
							Attempt: domain.Attempt{
								QuizID:     1001,
								UserName:   "u2",
								Score:      decimal.NewFromFloat(100),
								UpdateTime: time.Now(),
							},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Len(t, out.publishedEvents, 1, "should receive 1 leaderboard updated event")
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in, out := tt.arrange(), outputs{}

			eb := event.NewBus()

			var mu sync.Mutex
			eb.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
				mu.Lock()
				out.publishedEvents = append(out.publishedEvents, e.(domain.EventLeaderboardUpdated))
				mu.Unlock()
				return nil
			})

			s := makeService(t,
				withEventBus(eb),
			)

			for _, e := range in.receivedEvents {
				err := s.RecordScore(context.Background(), e)
				require.NoError(t, err)
			}

			eb.Stop()

			tt.assert(t, out)
		})
	}
}

func makeService(t *testing.T, opts ...options) *leaderboard.Service {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	c := leaderboard.Config{
		EventBus: event.NewBus(),
		Redis:    rc,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return leaderboard.NewService(c)
}

type options func(c *leaderboard.Config)

func withEventBus(eb *event.Bus) options {
	return func(c *leaderboard.Config) {
		c.EventBus = eb
	}
}
