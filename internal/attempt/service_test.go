package attempt_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rastercell/lms-api/internal/attempt"
	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/event"
)

type fakeCatalog struct {
	quizzes map[int64]domain.Quiz
}

func (c *fakeCatalog) GetByQuizID(_ context.Context, quizID int64) (*domain.Quiz, error) {
	q, ok := c.quizzes[quizID]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("Quiz not found! It may have been deleted, moved, or the ID may be incorrect."))
	}
	return &q, nil
}

type attemptKey struct {
	quizID int64
	userID string
}

type fakeStore struct {
	mu   sync.Mutex
	recs map[attemptKey]domain.Attempt
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[attemptKey]domain.Attempt{}}
}

func (s *fakeStore) Get(_ context.Context, quizID int64, userID string) (*domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[attemptKey{quizID, userID}]
	if !ok {
		return nil, attempt.ErrNotFound
	}
	return &rec, nil
}

func (s *fakeStore) StartConditional(_ context.Context, a domain.Attempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := attemptKey{a.QuizID, a.UserID}
	if rec, ok := s.recs[k]; ok {
		if rec.IsStarted || rec.IsFinished || rec.IsBlocked || !rec.IsEligible {
			return false, nil
		}
	}

	s.recs[k] = a
	return true, nil
}

func (s *fakeStore) PutFinished(_ context.Context, a domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recs[attemptKey{a.QuizID, a.UserID}] = a
	return nil
}

func (s *fakeStore) ListOverdue(_ context.Context, now time.Time) ([]domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var overdue []domain.Attempt
	for _, rec := range s.recs {
		if rec.IsStarted && !rec.IsFinished && !rec.Deadline.After(now) {
			overdue = append(overdue, rec)
		}
	}
	return overdue, nil
}

func (s *fakeStore) put(a domain.Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[attemptKey{a.QuizID, a.UserID}] = a
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testQuiz = domain.Quiz{
	ID:           "quiz-1",
	QuizID:       1001,
	Title:        "Basics",
	NumQuestions: 2,
	TimeLimit:    300,
	PassGrade:    decimal.NewFromInt(50),
	Questions: []domain.Question{
		{QuestionID: "q1", Question: "First?", Options: []string{"A", "B"}, Answer: "A"},
		{QuestionID: "q2", Question: "Second?", Options: []string{"A", "B"}, Answer: "B"},
	},
	Status: domain.StatusActive,
}

type fixture struct {
	service *attempt.Service
	store   *fakeStore
	catalog *fakeCatalog
	clock   *clock
	bus     *event.Bus
}

func makeFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   newFakeStore(),
		catalog: &fakeCatalog{quizzes: map[int64]domain.Quiz{testQuiz.QuizID: testQuiz}},
		clock:   &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		bus:     event.NewBus(),
	}

	f.service = attempt.NewService(attempt.Config{
		Catalog:  f.catalog,
		Store:    f.store,
		EventBus: f.bus,
		Now:      f.clock.Now,
	})

	return f
}

func TestService_StartAttempt(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh start returns quiz without answers", func(t *testing.T) {
		f := makeFixture(t)

		q, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1", UserName: "alice"})
		require.NoError(t, err)

		require.Equal(t, int64(300), q.TimeLimit)
		require.Len(t, q.Questions, 2)
		for _, question := range q.Questions {
			require.Empty(t, question.Answer, "correct answers must not leak to the taker")
		}

		rec, err := f.store.Get(ctx, 1001, "u1")
		require.NoError(t, err)
		require.True(t, rec.IsStarted)
		require.False(t, rec.IsFinished)
		require.Equal(t, f.clock.Now().Add(300*time.Second), rec.Deadline)
	})

	t.Run("resume returns remaining time", func(t *testing.T) {
		f := makeFixture(t)

		_, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1"})
		require.NoError(t, err)

		f.clock.Advance(100 * time.Second)

		q, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1"})
		require.NoError(t, err)
		require.Equal(t, int64(200), q.TimeLimit, "countdown resumes from where it left off")
	})

	t.Run("resume past the deadline force-finishes with an empty grade", func(t *testing.T) {
		f := makeFixture(t)

		_, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1"})
		require.NoError(t, err)

		f.clock.Advance(301 * time.Second)

		_, err = f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1"})
		require.Error(t, err)
		require.Equal(t, errors.CodeDeadlineExceeded, errors.Convert(err).Code)

		rec, err := f.store.Get(ctx, 1001, "u1")
		require.NoError(t, err)
		require.True(t, rec.IsFinished)
		require.True(t, rec.Score.IsZero())
		require.Equal(t, domain.AttemptStatusFailed, rec.Status)
	})

	t.Run("blocked quiz is refused", func(t *testing.T) {
		f := makeFixture(t)

		blocked := testQuiz
		blocked.QuizID = 1002
		blocked.Status = domain.StatusBlocked
		f.catalog.quizzes[1002] = blocked

		_, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1002, UserID: "u1"})
		require.Error(t, err)
		require.Equal(t, errors.CodePermissionDenied, errors.Convert(err).Code)
	})

	t.Run("blocked record is refused", func(t *testing.T) {
		f := makeFixture(t)

		f.store.put(domain.Attempt{QuizID: 1001, UserID: "u1", IsEligible: true, IsBlocked: true})

		_, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1"})
		require.Error(t, err)
		require.Equal(t, errors.CodePermissionDenied, errors.Convert(err).Code)
	})

	t.Run("finished attempt cannot restart", func(t *testing.T) {
		f := makeFixture(t)

		f.store.put(domain.Attempt{QuizID: 1001, UserID: "u1", IsEligible: true, IsStarted: true, IsFinished: true})

		_, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1"})
		require.Error(t, err)
		require.Equal(t, errors.CodeFailedPrecondition, errors.Convert(err).Code)
	})

	t.Run("ineligible record cannot start", func(t *testing.T) {
		f := makeFixture(t)

		f.store.put(domain.Attempt{QuizID: 1001, UserID: "u1", IsEligible: false})

		_, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1"})
		require.Error(t, err)
		require.Equal(t, errors.CodeFailedPrecondition, errors.Convert(err).Code)
	})
}

func TestService_SubmitAttempt(t *testing.T) {
	ctx := context.Background()

	t.Run("grades and persists the finished record", func(t *testing.T) {
		f := makeFixture(t)

		_, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1", UserName: "alice"})
		require.NoError(t, err)

		res, err := f.service.SubmitAttempt(ctx, attempt.SubmitAttemptRequest{
			QuizID: 1001, UserID: "u1", UserName: "alice",
			Answers: []domain.Answer{
				{Question: "q1", Answer: "A"},
				{Question: "q2", Answer: "A"},
			},
		})
		require.NoError(t, err)

		require.True(t, decimal.NewFromInt(50).Equal(res.Score))
		require.True(t, res.IsPassed)

		rec, err := f.store.Get(ctx, 1001, "u1")
		require.NoError(t, err)
		require.True(t, rec.IsFinished)
		require.Equal(t, domain.AttemptStatusPassed, rec.Status)
		require.Equal(t, "alice", rec.UserName)
	})

	t.Run("submit without start still finishes", func(t *testing.T) {
		f := makeFixture(t)

		res, err := f.service.SubmitAttempt(ctx, attempt.SubmitAttemptRequest{
			QuizID: 1001, UserID: "u1",
			Answers: []domain.Answer{{Question: "q1", Answer: "A"}},
		})
		require.NoError(t, err)
		require.True(t, decimal.NewFromInt(50).Equal(res.Score))

		rec, err := f.store.Get(ctx, 1001, "u1")
		require.NoError(t, err)
		require.True(t, rec.IsStarted)
		require.True(t, rec.IsFinished)
	})

	t.Run("repeated submit overwrites with the last grade", func(t *testing.T) {
		f := makeFixture(t)

		_, err := f.service.SubmitAttempt(ctx, attempt.SubmitAttemptRequest{
			QuizID: 1001, UserID: "u1",
			Answers: []domain.Answer{
				{Question: "q1", Answer: "A"},
				{Question: "q2", Answer: "B"},
			},
		})
		require.NoError(t, err)

		res, err := f.service.SubmitAttempt(ctx, attempt.SubmitAttemptRequest{
			QuizID: 1001, UserID: "u1",
			Answers: []domain.Answer{{Question: "q1", Answer: "B"}},
		})
		require.NoError(t, err)
		require.True(t, res.Score.IsZero())

		rec, err := f.store.Get(ctx, 1001, "u1")
		require.NoError(t, err)
		require.True(t, rec.Score.IsZero())
		require.Equal(t, domain.AttemptStatusFailed, rec.Status)
	})

	t.Run("publishes attempt.finished", func(t *testing.T) {
		f := makeFixture(t)

		var mu sync.Mutex
		var got []domain.EventAttemptFinished
		f.bus.Subscribe(domain.EventNameAttemptFinished, func(_ context.Context, e event.Event) error {
			mu.Lock()
			got = append(got, e.(domain.EventAttemptFinished))
			mu.Unlock()
			return nil
		})

		_, err := f.service.SubmitAttempt(ctx, attempt.SubmitAttemptRequest{
			QuizID: 1001, UserID: "u1", UserName: "alice",
			Answers: []domain.Answer{{Question: "q1", Answer: "A"}},
		})
		require.NoError(t, err)

		f.bus.Stop()

		require.Len(t, got, 1)
		require.Equal(t, "alice", got[0].Attempt.UserName)
		require.True(t, got[0].Attempt.IsFinished)
	})
}

func TestService_CheckCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("no record", func(t *testing.T) {
		f := makeFixture(t)

		res, err := f.service.CheckCompletion(ctx, attempt.CheckCompletionRequest{QuizID: 1001, UserID: "u1"})
		require.NoError(t, err)
		require.False(t, res.IsStarted)
		require.False(t, res.IsFinished)
		require.Nil(t, res.Result)
	})

	t.Run("started but not finished", func(t *testing.T) {
		f := makeFixture(t)

		_, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1"})
		require.NoError(t, err)

		res, err := f.service.CheckCompletion(ctx, attempt.CheckCompletionRequest{QuizID: 1001, UserID: "u1"})
		require.NoError(t, err)
		require.True(t, res.IsStarted)
		require.False(t, res.IsFinished)
	})

	t.Run("finished rederives the same grade", func(t *testing.T) {
		f := makeFixture(t)

		submitted, err := f.service.SubmitAttempt(ctx, attempt.SubmitAttemptRequest{
			QuizID: 1001, UserID: "u1",
			Answers: []domain.Answer{{Question: "q2", Answer: "B"}},
		})
		require.NoError(t, err)

		res, err := f.service.CheckCompletion(ctx, attempt.CheckCompletionRequest{QuizID: 1001, UserID: "u1"})
		require.NoError(t, err)
		require.True(t, res.IsFinished)
		require.NotNil(t, res.Result)
		require.True(t, submitted.Score.Equal(res.Result.Score))
		require.Equal(t, submitted.IsPassed, res.Result.IsPassed)
	})
}

func TestService_SweepOverdue(t *testing.T) {
	ctx := context.Background()

	t.Run("finishes overdue attempts and leaves the rest", func(t *testing.T) {
		f := makeFixture(t)

		_, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "late"})
		require.NoError(t, err)

		f.clock.Advance(200 * time.Second)

		_, err = f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "ontime"})
		require.NoError(t, err)

		f.clock.Advance(150 * time.Second)
		f.service.SweepOverdue(ctx)

		late, err := f.store.Get(ctx, 1001, "late")
		require.NoError(t, err)
		require.True(t, late.IsFinished)
		require.True(t, late.Score.IsZero())

		ontime, err := f.store.Get(ctx, 1001, "ontime")
		require.NoError(t, err)
		require.False(t, ontime.IsFinished)
	})

	t.Run("submit after auto-finish overwrites the empty grade", func(t *testing.T) {
		f := makeFixture(t)

		_, err := f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1"})
		require.NoError(t, err)

		f.clock.Advance(301 * time.Second)
		f.service.SweepOverdue(ctx)

		res, err := f.service.SubmitAttempt(ctx, attempt.SubmitAttemptRequest{
			QuizID: 1001, UserID: "u1",
			Answers: []domain.Answer{
				{Question: "q1", Answer: "A"},
				{Question: "q2", Answer: "B"},
			},
		})
		require.NoError(t, err)
		require.True(t, decimal.NewFromInt(100).Equal(res.Score))

		rec, err := f.store.Get(ctx, 1001, "u1")
		require.NoError(t, err)
		require.Equal(t, domain.AttemptStatusPassed, rec.Status)
	})

	t.Run("sweep is a no-op on finished attempts", func(t *testing.T) {
		f := makeFixture(t)

		_, err := f.service.SubmitAttempt(ctx, attempt.SubmitAttemptRequest{
			QuizID: 1001, UserID: "u1",
			Answers: []domain.Answer{{Question: "q1", Answer: "A"}},
		})
		require.NoError(t, err)

		before, err := f.store.Get(ctx, 1001, "u1")
		require.NoError(t, err)

		f.clock.Advance(time.Hour)
		f.service.SweepOverdue(ctx)

		after, err := f.store.Get(ctx, 1001, "u1")
		require.NoError(t, err)
		require.Equal(t, before, after)
	})
}

func TestService_ConcurrentStart(t *testing.T) {
	ctx := context.Background()
	f := makeFixture(t)

	const n = 8

	var wg sync.WaitGroup
	results := make([]*domain.Quiz, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.service.StartAttempt(ctx, attempt.StartAttemptRequest{QuizID: 1001, UserID: "u1"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "racing starts must all resolve to the single started attempt")
		require.NotNil(t, results[i])
	}

	rec, err := f.store.Get(ctx, 1001, "u1")
	require.NoError(t, err)
	require.True(t, rec.IsStarted)
	require.False(t, rec.IsFinished)
}
