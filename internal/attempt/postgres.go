package attempt

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rastercell/lms-api/internal/domain"
)

// PostgresStore persists attempt records in the quiz_attempts table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const attemptColumns = `
quiz_id, user_id, user_name, is_eligible, is_blocked, unblock_date,
is_started, start_date, deadline, is_finished, finish_date,
score, is_passed, answers, status, update_time`

func (s *PostgresStore) Get(ctx context.Context, quizID int64, userID string) (*domain.Attempt, error) {
	stmt := `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE quiz_id = $1 AND user_id = $2;`

	rows, err := s.db.Query(ctx, stmt, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("attempt: get: %w", err)
	}

	a, err := pgx.CollectOneRow(rows, scanAttempt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("attempt: get: %w", err)
	}

	return &a, nil
}

// StartConditional writes the started state only when the stored record, if
// any, is still startable. The WHERE clause on the conflict update is what
// serializes racing starts: the loser updates zero rows.
func (s *PostgresStore) StartConditional(ctx context.Context, a domain.Attempt) (bool, error) {
	const stmt = `
INSERT INTO quiz_attempts (` + attemptColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (quiz_id, user_id) DO UPDATE SET
	user_name   = EXCLUDED.user_name,
	is_started  = TRUE,
	start_date  = EXCLUDED.start_date,
	deadline    = EXCLUDED.deadline,
	is_finished = FALSE,
	status      = EXCLUDED.status,
	update_time = EXCLUDED.update_time
WHERE quiz_attempts.is_started = FALSE
  AND quiz_attempts.is_finished = FALSE
  AND quiz_attempts.is_blocked = FALSE
  AND quiz_attempts.is_eligible = TRUE;`

	tag, err := s.db.Exec(ctx, stmt, attemptArgs(a)...)
	if err != nil {
		return false, fmt.Errorf("attempt: start conditional: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// PutFinished overwrites the record with the finished state unconditionally.
func (s *PostgresStore) PutFinished(ctx context.Context, a domain.Attempt) error {
	const stmt = `
INSERT INTO quiz_attempts (` + attemptColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (quiz_id, user_id) DO UPDATE SET
	user_name   = EXCLUDED.user_name,
	is_started  = TRUE,
	start_date  = EXCLUDED.start_date,
	is_finished = TRUE,
	finish_date = EXCLUDED.finish_date,
	score       = EXCLUDED.score,
	is_passed   = EXCLUDED.is_passed,
	answers     = EXCLUDED.answers,
	status      = EXCLUDED.status,
	update_time = EXCLUDED.update_time;`

	if _, err := s.db.Exec(ctx, stmt, attemptArgs(a)...); err != nil {
		return fmt.Errorf("attempt: put finished: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListOverdue(ctx context.Context, now time.Time) ([]domain.Attempt, error) {
	stmt := `
SELECT ` + attemptColumns + `
FROM quiz_attempts
WHERE is_started = TRUE AND is_finished = FALSE AND deadline <= $1;`

	rows, err := s.db.Query(ctx, stmt, now)
	if err != nil {
		return nil, fmt.Errorf("attempt: list overdue: %w", err)
	}

	overdue, err := pgx.CollectRows(rows, scanAttempt)
	if err != nil {
		return nil, fmt.Errorf("attempt: list overdue: %w", err)
	}

	return overdue, nil
}

// ListFinishedQuizIDs returns the quiz ids the user has finished. The quiz
// catalog uses it to decorate listings.
func (s *PostgresStore) ListFinishedQuizIDs(ctx context.Context, userID string) ([]int64, error) {
	const stmt = `SELECT quiz_id FROM quiz_attempts WHERE user_id = $1 AND is_finished = TRUE;`

	rows, err := s.db.Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("attempt: list finished: %w", err)
	}

	ids, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (int64, error) {
		var id int64
		err := r.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("attempt: list finished: %w", err)
	}

	return ids, nil
}

func attemptArgs(a domain.Attempt) []any {
	answers := a.Answers
	if answers == nil {
		answers = []domain.Answer{}
	}

	return []any{
		a.QuizID, a.UserID, a.UserName, a.IsEligible, a.IsBlocked, a.UnblockDate,
		a.IsStarted, a.StartDate, a.Deadline, a.IsFinished, a.FinishDate,
		a.Score, a.IsPassed, answers, a.Status, a.UpdateTime,
	}
}

func scanAttempt(r pgx.CollectableRow) (domain.Attempt, error) {
	var a domain.Attempt
	err := r.Scan(
		&a.QuizID, &a.UserID, &a.UserName, &a.IsEligible, &a.IsBlocked, &a.UnblockDate,
		&a.IsStarted, &a.StartDate, &a.Deadline, &a.IsFinished, &a.FinishDate,
		&a.Score, &a.IsPassed, &a.Answers, &a.Status, &a.UpdateTime,
	)
	if err != nil {
		return domain.Attempt{}, err
	}

	return a, nil
}
