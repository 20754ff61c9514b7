package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sequence names for the public numeric ids handed out to clients.
const (
	NameUser    = "users"
	NameQuiz    = "quizzes"
	NameCourse  = "courses"
	NameArticle = "articles"
	NameVideo   = "videos"
)

type Config struct {
	DB *pgxpool.Pool
}

// Service issues monotonically increasing public ids. Each named sequence
// starts at 1001. The increment is a single atomic statement, so two
// concurrent creates can never be handed the same id.
type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

func (s *Service) Next(ctx context.Context, name string) (int64, error) {
	const stmt = `
INSERT INTO sequences (name, value) VALUES ($1, 1001)
ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
RETURNING value;`

	var next int64
	if err := s.db.QueryRow(ctx, stmt, name).Scan(&next); err != nil {
		return 0, fmt.Errorf("sequence: next %s: %w", name, err)
	}

	return next, nil
}
