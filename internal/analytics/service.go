package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
)

type Config struct {
	DB *pgxpool.Pool
}

// Service aggregates the counts behind the user dashboard.
type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

// Dashboard returns platform-wide content totals plus the caller's own
// enrollment and quiz figures.
func (s *Service) Dashboard(ctx context.Context, userID string) (*domain.DashboardSummary, error) {
	const stmt = `
SELECT
	(SELECT COUNT(*) FROM courses  WHERE status <> 'Blocked'),
	(SELECT COUNT(*) FROM quizzes  WHERE status <> 'Blocked'),
	(SELECT COUNT(*) FROM articles WHERE status <> 'Blocked'),
	(SELECT COUNT(*) FROM videos   WHERE status <> 'Blocked'),
	(SELECT COUNT(*) FROM course_enrollments WHERE user_id = $1 AND is_enrolled = TRUE),
	(SELECT COUNT(*) FROM quiz_attempts WHERE user_id = $1 AND is_finished = TRUE),
	(SELECT COUNT(*) FROM quiz_attempts WHERE user_id = $1 AND is_finished = TRUE AND is_passed = TRUE),
	(SELECT COUNT(*) FROM quiz_attempts WHERE user_id = $1 AND is_finished = TRUE AND is_passed = FALSE);`

	var d domain.DashboardSummary
	err := s.db.QueryRow(ctx, stmt, userID).Scan(
		&d.TotalCourses, &d.TotalQuizzes, &d.TotalArticles, &d.TotalVideos,
		&d.EnrolledCourses, &d.AttendedQuizzes, &d.PassedQuizzes, &d.FailedQuizzes,
	)
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &d, nil
}
