package logrec

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
)

type Config struct {
	DB *pgxpool.Pool
}

// Service stores client-reported error payloads verbatim for later triage.
type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

func (s *Service) Record(ctx context.Context, payload json.RawMessage) (*domain.LogEntry, error) {
	e := domain.LogEntry{
		ID:         uuid.New().String(),
		Error:      payload,
		CreateTime: time.Now(),
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO logs (id, error, create_time) VALUES ($1, $2, $3);`,
		e.ID, e.Error, e.CreateTime)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("logrec: record: %w", err))
	}

	return &e, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, error, create_time FROM logs ORDER BY create_time DESC LIMIT $1;`, limit)
	if err != nil {
		return nil, errors.Internal(err)
	}

	entries, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.LogEntry, error) {
		var e domain.LogEntry
		err := r.Scan(&e.ID, &e.Error, &e.CreateTime)
		return e, err
	})
	if err != nil {
		return nil, errors.Internal(err)
	}

	return entries, nil
}
