package quiz

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rastercell/lms-api/internal/auth"
	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/sequence"
)

const msgNotFound = "Quiz not found! It may have been deleted, moved, or the ID may be incorrect."
const msgBlocked = "This quiz is blocked! It is no longer accessible by users."

// AttemptReader is the slice of attempt storage the catalog needs to mark
// listings as finished for the caller.
type AttemptReader interface {
	ListFinishedQuizIDs(ctx context.Context, userID string) ([]int64, error)
}

type Config struct {
	DB       *pgxpool.Pool
	Sequence *sequence.Service
	Attempts AttemptReader
}

// Service is the quiz catalog: definitions, authoring CRUD and listings.
type Service struct {
	db       *pgxpool.Pool
	seq      *sequence.Service
	attempts AttemptReader
}

func NewService(c Config) *Service {
	return &Service{
		db:       c.DB,
		seq:      c.Sequence,
		attempts: c.Attempts,
	}
}

const quizColumns = `
q.id, q.quiz_id, q.title, q.num_questions, q.time_limit, q.level, q.pass_grade,
q.questions, q.thumbnail, q.instructor, COALESCE(u.name, ''), q.date, q.status`

const quizFrom = ` FROM quizzes q LEFT JOIN users u ON u.id = q.instructor `

// GetByQuizID returns the full definition, answers and Blocked status
// included. The attempt engine grades against this; API routes go through
// GetPublicByQuizID instead.
func (s *Service) GetByQuizID(ctx context.Context, quizID int64) (*domain.Quiz, error) {
	stmt := `SELECT ` + quizColumns + quizFrom + `WHERE q.quiz_id = $1;`

	rows, err := s.db.Query(ctx, stmt, quizID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	q, err := pgx.CollectOneRow(rows, scanQuiz)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &q, nil
}

// GetPublicByQuizID is the user-facing read: blocked quizzes are refused and
// correct answers are stripped.
func (s *Service) GetPublicByQuizID(ctx context.Context, quizID int64) (*domain.Quiz, error) {
	q, err := s.GetByQuizID(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if q.Status == domain.StatusBlocked {
		return nil, errors.New(errors.CodePermissionDenied, errors.WithMessagef(msgBlocked))
	}

	stripAnswers(q)
	return q, nil
}

// GetByID fetches by storage id, answers stripped.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Quiz, error) {
	stmt := `SELECT ` + quizColumns + quizFrom + `WHERE q.id = $1;`

	rows, err := s.db.Query(ctx, stmt, id)
	if err != nil {
		return nil, errors.Internal(err)
	}

	q, err := pgx.CollectOneRow(rows, scanQuiz)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	stripAnswers(&q)
	return &q, nil
}

type CreateQuizRequest struct {
	Title      string
	TimeLimit  int64
	Level      string
	PassGrade  decimal.Decimal
	Questions  []domain.Question
	Thumbnail  string
	Instructor string
	Date       time.Time
}

// Create assigns the next public quiz id and stable question ids, then
// inserts the definition.
func (s *Service) Create(ctx context.Context, req CreateQuizRequest) (*domain.Quiz, error) {
	quizID, err := s.seq.Next(ctx, sequence.NameQuiz)
	if err != nil {
		return nil, errors.Internal(err)
	}

	questions := make([]domain.Question, len(req.Questions))
	for i, q := range req.Questions {
		if q.QuestionID == "" {
			q.QuestionID = uuid.New().String()
		}
		questions[i] = q
	}

	q := domain.Quiz{
		ID:           uuid.New().String(),
		QuizID:       quizID,
		Title:        req.Title,
		NumQuestions: len(questions),
		TimeLimit:    req.TimeLimit,
		Level:        req.Level,
		PassGrade:    req.PassGrade,
		Questions:    questions,
		Thumbnail:    req.Thumbnail,
		Instructor:   req.Instructor,
		Date:         req.Date,
		Status:       domain.StatusActive,
	}

	const stmt = `
INSERT INTO quizzes (id, quiz_id, title, num_questions, time_limit, level, pass_grade, questions, thumbnail, instructor, date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`

	_, err = s.db.Exec(ctx, stmt,
		q.ID, q.QuizID, q.Title, q.NumQuestions, q.TimeLimit, q.Level, q.PassGrade,
		q.Questions, q.Thumbnail, q.Instructor, q.Date, q.Status,
	)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("quiz: create: %w", err))
	}

	return &q, nil
}

type UpdateQuizRequest struct {
	ID        string
	Title     string
	TimeLimit int64
	Level     string
	PassGrade decimal.Decimal
	Questions []domain.Question
	Thumbnail string
	Date      time.Time

	ActorID   string
	ActorRole string
}

// Update replaces the editable fields. Instructors may only touch their own
// quizzes; moderators and up may touch any.
func (s *Service) Update(ctx context.Context, req UpdateQuizRequest) (*domain.Quiz, error) {
	questions := make([]domain.Question, len(req.Questions))
	for i, q := range req.Questions {
		if q.QuestionID == "" {
			q.QuestionID = uuid.New().String()
		}
		questions[i] = q
	}

	stmt := `
UPDATE quizzes SET
	title = $2, num_questions = $3, time_limit = $4, level = $5, pass_grade = $6,
	questions = $7, thumbnail = $8, date = $9, update_time = now()
WHERE id = $1`
	args := []any{req.ID, req.Title, len(questions), req.TimeLimit, req.Level, req.PassGrade, questions, req.Thumbnail, req.Date}

	if req.ActorRole == auth.RoleInstructor {
		stmt += ` AND instructor = $10`
		args = append(args, req.ActorID)
	}

	tag, err := s.db.Exec(ctx, stmt+";", args...)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("quiz: update: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	return s.GetByID(ctx, req.ID)
}

// Block makes the quiz inaccessible to ordinary users. Finished attempts on
// it stay around.
func (s *Service) Block(ctx context.Context, id string) (*domain.Quiz, error) {
	return s.setStatus(ctx, id, domain.StatusBlocked)
}

func (s *Service) Unblock(ctx context.Context, id string) (*domain.Quiz, error) {
	return s.setStatus(ctx, id, domain.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, id, status string) (*domain.Quiz, error) {
	const stmt = `UPDATE quizzes SET status = $2, update_time = now() WHERE id = $1;`

	tag, err := s.db.Exec(ctx, stmt, id, status)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("quiz: set status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	return s.GetByID(ctx, id)
}

type DeleteQuizRequest struct {
	ID        string
	ActorID   string
	ActorRole string
}

// Delete removes the definition. Attempt records referencing it are left in
// place; the orphaning is tolerated.
func (s *Service) Delete(ctx context.Context, req DeleteQuizRequest) (*domain.Quiz, error) {
	q, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.ActorRole == auth.RoleInstructor && q.Instructor != req.ActorID {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM quizzes WHERE id = $1;`, req.ID); err != nil {
		return nil, errors.Internal(fmt.Errorf("quiz: delete: %w", err))
	}

	return q, nil
}

type ListEditorRequest struct {
	ActorID   string
	ActorRole string
}

// ListEditor returns the unblocked quizzes an editor can manage, scoped to
// the instructor's own when the caller is an instructor.
func (s *Service) ListEditor(ctx context.Context, req ListEditorRequest) ([]domain.Quiz, error) {
	stmt := `SELECT ` + quizColumns + quizFrom + `WHERE q.status <> 'Blocked'`
	var args []any

	if req.ActorRole == auth.RoleInstructor {
		stmt += ` AND q.instructor = $1`
		args = append(args, req.ActorID)
	}

	rows, err := s.db.Query(ctx, stmt+` ORDER BY q.quiz_id;`, args...)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanQuiz)
	if err != nil {
		return nil, errors.Internal(err)
	}

	for i := range list {
		stripAnswers(&list[i])
	}

	return list, nil
}

type ListRequest struct {
	Page    int
	PerPage int
	Query   string

	ActorID   string
	ActorRole string
}

// CatalogItem is a listing row: the definition without its questions, plus
// whether the caller already finished it.
type CatalogItem struct {
	domain.Quiz
	IsFinished bool
}

type PaginatedQuizzes struct {
	Data       []CatalogItem
	TotalCount int64
}

// ListCatalog pages through unblocked quizzes for the public catalog,
// questions stripped, title matched case-insensitively against Query.
func (s *Service) ListCatalog(ctx context.Context, req ListRequest) (*PaginatedQuizzes, error) {
	page, perPage := normalizePage(req.Page, req.PerPage)

	stmt := `SELECT ` + quizColumns + quizFrom + `
WHERE q.status <> 'Blocked' AND ($1 = '' OR q.title ~* $1)
ORDER BY q.quiz_id
OFFSET $2 LIMIT $3;`

	rows, err := s.db.Query(ctx, stmt, req.Query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanQuiz)
	if err != nil {
		return nil, errors.Internal(err)
	}

	total, err := s.count(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	finished, err := s.finishedSet(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}

	items := make([]CatalogItem, 0, len(list))
	for _, q := range list {
		q.Questions = nil
		_, done := finished[q.QuizID]
		items = append(items, CatalogItem{Quiz: q, IsFinished: done})
	}

	return &PaginatedQuizzes{Data: items, TotalCount: total}, nil
}

// ListMine pages through the instructor's (or every, for admins) quizzes,
// blocked ones included, for the management list.
func (s *Service) ListMine(ctx context.Context, req ListRequest) (*PaginatedQuizzes, error) {
	page, perPage := normalizePage(req.Page, req.PerPage)

	stmt := `SELECT ` + quizColumns + quizFrom + `
WHERE ($1 = '' OR q.title ~* $1) AND ($2 = '' OR q.instructor = $2)
ORDER BY q.quiz_id
OFFSET $3 LIMIT $4;`

	instructor := ""
	if req.ActorRole == auth.RoleInstructor {
		instructor = req.ActorID
	}

	rows, err := s.db.Query(ctx, stmt, req.Query, instructor, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanQuiz)
	if err != nil {
		return nil, errors.Internal(err)
	}

	total, err := s.count(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	items := make([]CatalogItem, 0, len(list))
	for _, q := range list {
		stripAnswers(&q)
		items = append(items, CatalogItem{Quiz: q})
	}

	return &PaginatedQuizzes{Data: items, TotalCount: total}, nil
}

// ListFinishedByUser pages through only the quizzes the caller has finished.
func (s *Service) ListFinishedByUser(ctx context.Context, req ListRequest) (*PaginatedQuizzes, error) {
	page, perPage := normalizePage(req.Page, req.PerPage)

	ids, err := s.attempts.ListFinishedQuizIDs(ctx, req.ActorID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if len(ids) == 0 {
		return &PaginatedQuizzes{Data: []CatalogItem{}}, nil
	}

	stmt := `SELECT ` + quizColumns + quizFrom + `
WHERE q.quiz_id = ANY($1) AND ($2 = '' OR q.title ~* $2)
ORDER BY q.quiz_id
OFFSET $3 LIMIT $4;`

	rows, err := s.db.Query(ctx, stmt, ids, req.Query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanQuiz)
	if err != nil {
		return nil, errors.Internal(err)
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM quizzes WHERE quiz_id = ANY($1);`, ids).Scan(&total); err != nil {
		return nil, errors.Internal(err)
	}

	items := make([]CatalogItem, 0, len(list))
	for _, q := range list {
		q.Questions = nil
		items = append(items, CatalogItem{Quiz: q, IsFinished: true})
	}

	return &PaginatedQuizzes{Data: items, TotalCount: total}, nil
}

func (s *Service) count(ctx context.Context, query string) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM quizzes WHERE ($1 = '' OR title ~* $1);`, query).Scan(&total)
	if err != nil {
		return 0, errors.Internal(err)
	}
	return total, nil
}

func (s *Service) finishedSet(ctx context.Context, userID string) (map[int64]struct{}, error) {
	if userID == "" {
		return nil, nil
	}

	ids, err := s.attempts.ListFinishedQuizIDs(ctx, userID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 12
	}
	return page, perPage
}

func stripAnswers(q *domain.Quiz) {
	for i := range q.Questions {
		q.Questions[i].Answer = ""
	}
}

func scanQuiz(r pgx.CollectableRow) (domain.Quiz, error) {
	var q domain.Quiz
	err := r.Scan(
		&q.ID, &q.QuizID, &q.Title, &q.NumQuestions, &q.TimeLimit, &q.Level, &q.PassGrade,
		&q.Questions, &q.Thumbnail, &q.Instructor, &q.InstructorName, &q.Date, &q.Status,
	)
	if err != nil {
		return domain.Quiz{}, err
	}

	return q, nil
}
