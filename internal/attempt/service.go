package attempt

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/event"
)

// Catalog is the quiz lookup the state machine depends on. It returns the
// full definition, correct answers and Blocked status included; the state
// machine decides what a caller may see.
type Catalog interface {
	GetByQuizID(ctx context.Context, quizID int64) (*domain.Quiz, error)
}

type Config struct {
	Catalog  Catalog
	Store    Store
	EventBus *event.Bus

	// Now is the clock; defaults to time.Now. Tests pin it.
	Now func() time.Time

	// SweepInterval is how often the deadline sweep runs.
	SweepInterval time.Duration
}

// Service is the attempt state machine: NotStarted -> Started -> Finished,
// Finished terminal. Every transition is a single conditional write in the
// store, so concurrent operations on one (quiz, user) pair serialize.
type Service struct {
	catalog  Catalog
	store    Store
	eb       *event.Bus
	now      func() time.Time
	interval time.Duration
}

func NewService(c Config) *Service {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	interval := c.SweepInterval
	if interval == 0 {
		interval = 5 * time.Second
	}

	return &Service{
		catalog:  c.Catalog,
		store:    c.Store,
		eb:       c.EventBus,
		now:      now,
		interval: interval,
	}
}

type StartAttemptRequest struct {
	QuizID   int64
	UserID   string
	UserName string
}

// StartAttempt begins or resumes an attempt and returns the quiz content
// with correct answers stripped. On resume the returned time limit is the
// remaining time, not the original, so a reloaded client counts down from
// the right place. A resume past the deadline force-finishes the attempt
// with no answers and fails with a deadline error.
func (s *Service) StartAttempt(ctx context.Context, req StartAttemptRequest) (*domain.Quiz, error) {
	q, err := s.getUnblockedQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	rec, err := s.getOrDefault(ctx, req)
	if err != nil {
		return nil, err
	}

	if rec.IsBlocked {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("Quiz is Blocked for the user."))
	}

	if rec.IsStarted && !rec.IsFinished {
		return s.resume(ctx, q, rec)
	}

	if !rec.IsStarted && rec.IsEligible {
		now := s.now()
		started := domain.Attempt{
			QuizID:     req.QuizID,
			UserID:     req.UserID,
			UserName:   req.UserName,
			IsEligible: true,
			IsStarted:  true,
			StartDate:  now,
			Deadline:   now.Add(time.Duration(q.TimeLimit) * time.Second),
			Status:     domain.AttemptStatusActive,
			UpdateTime: now,
		}

		ok, err := s.store.StartConditional(ctx, started)
		if err != nil {
			return nil, errors.Internal(err)
		}

		if !ok {
			// Lost the race against a concurrent start; the winner's
			// record is authoritative, resume off it.
			rec, err = s.store.Get(ctx, req.QuizID, req.UserID)
			if err != nil {
				return nil, errors.Internal(err)
			}
			if rec.IsStarted && !rec.IsFinished {
				return s.resume(ctx, q, rec)
			}
			return nil, errUnableToStart()
		}

		return redact(q, q.TimeLimit), nil
	}

	return nil, errUnableToStart()
}

func (s *Service) resume(ctx context.Context, q *domain.Quiz, rec *domain.Attempt) (*domain.Quiz, error) {
	limit := time.Duration(q.TimeLimit) * time.Second
	elapsed := s.now().Sub(rec.StartDate)

	if elapsed >= limit {
		if _, err := s.finish(ctx, q, rec, nil); err != nil {
			return nil, errors.Internal(err)
		}
		return nil, errors.New(errors.CodeDeadlineExceeded,
			errors.WithMessagef("Quiz time is expired! Please refresh after a while."))
	}

	return redact(q, int64((limit-elapsed)/time.Second)), nil
}

type SubmitAttemptRequest struct {
	QuizID   int64
	UserID   string
	UserName string
	Answers  []domain.Answer
}

// SubmitAttempt grades the answers and finishes the attempt. Submitting is
// accepted whether or not the attempt was ever started, and a repeated
// submit overwrites the finished record with a fresh grade: grading is pure,
// so the record always reflects the last write.
func (s *Service) SubmitAttempt(ctx context.Context, req SubmitAttemptRequest) (*domain.GradingResult, error) {
	q, err := s.getUnblockedQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	rec, err := s.getOrDefault(ctx, StartAttemptRequest{QuizID: req.QuizID, UserID: req.UserID, UserName: req.UserName})
	if err != nil {
		return nil, err
	}

	res, err := s.finish(ctx, q, rec, req.Answers)
	if err != nil {
		return nil, errors.Internal(err)
	}

	return res, nil
}

type CheckCompletionRequest struct {
	QuizID int64
	UserID string
}

type CheckCompletionResponse struct {
	IsFinished bool
	IsStarted  bool
	Result     *domain.GradingResult
}

// CheckCompletion reports the attempt's state. For a finished attempt the
// grading result is re-derived from the stored answers and the quiz's
// questions; grading is deterministic, so this matches what submission
// produced.
func (s *Service) CheckCompletion(ctx context.Context, req CheckCompletionRequest) (*CheckCompletionResponse, error) {
	q, err := s.getUnblockedQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, req.QuizID, req.UserID)
	if stderrors.Is(err, ErrNotFound) {
		return &CheckCompletionResponse{}, nil
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	if rec.IsFinished {
		res := Grade(q.Questions, rec.Answers, q.PassGrade)
		return &CheckCompletionResponse{
			IsFinished: true,
			IsStarted:  true,
			Result:     &res,
		}, nil
	}

	if rec.IsStarted {
		return &CheckCompletionResponse{IsStarted: true}, nil
	}

	return &CheckCompletionResponse{}, nil
}

// finish grades and writes the terminal state, then announces it. The write
// is a plain overwrite: a submit racing the deadline sweep is resolved by
// whichever lands last, and both produce a consistent graded record.
func (s *Service) finish(ctx context.Context, q *domain.Quiz, rec *domain.Attempt, answers []domain.Answer) (*domain.GradingResult, error) {
	res := Grade(q.Questions, answers, q.PassGrade)
	now := s.now()

	status := domain.AttemptStatusFailed
	if res.IsPassed {
		status = domain.AttemptStatusPassed
	}

	startDate := rec.StartDate
	if startDate.IsZero() {
		startDate = now
	}

	fin := domain.Attempt{
		QuizID:     q.QuizID,
		UserID:     rec.UserID,
		UserName:   rec.UserName,
		IsEligible: rec.IsEligible,
		IsStarted:  true,
		StartDate:  startDate,
		Deadline:   rec.Deadline,
		IsFinished: true,
		FinishDate: now,
		Score:      res.Score,
		IsPassed:   res.IsPassed,
		Answers:    answers,
		Status:     status,
		UpdateTime: now,
	}

	if err := s.store.PutFinished(ctx, fin); err != nil {
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventAttemptFinished{Attempt: fin})

	return &res, nil
}

func (s *Service) getUnblockedQuiz(ctx context.Context, quizID int64) (*domain.Quiz, error) {
	q, err := s.catalog.GetByQuizID(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if q.Status == domain.StatusBlocked {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("This quiz is blocked! It is no longer accessible by users."))
	}

	return q, nil
}

func (s *Service) getOrDefault(ctx context.Context, req StartAttemptRequest) (*domain.Attempt, error) {
	rec, err := s.store.Get(ctx, req.QuizID, req.UserID)
	if stderrors.Is(err, ErrNotFound) {
		return &domain.Attempt{
			QuizID:     req.QuizID,
			UserID:     req.UserID,
			UserName:   req.UserName,
			IsEligible: true,
			Status:     domain.AttemptStatusActive,
		}, nil
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	if rec.UserName == "" {
		rec.UserName = req.UserName
	}

	return rec, nil
}

func errUnableToStart() error {
	return errors.New(errors.CodeFailedPrecondition,
		errors.WithMessagef("Unable to start Quiz."))
}

// redact strips the correct answers and swaps the time limit for what the
// caller has left.
func redact(q *domain.Quiz, remainingSeconds int64) *domain.Quiz {
	out := *q
	out.TimeLimit = remainingSeconds
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Answer = ""
		out.Questions[i] = question
	}
	return &out
}
