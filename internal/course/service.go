package course

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rastercell/lms-api/internal/auth"
	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/event"
	"github.com/rastercell/lms-api/internal/sequence"
)

const msgNotFound = "Course not found! It may have been deleted, moved, or the ID may be incorrect."
const msgBlocked = "This course is blocked! It is no longer accessible by users."

type Config struct {
	DB       *pgxpool.Pool
	Sequence *sequence.Service
	EventBus *event.Bus
}

// Service owns courses and their per-user enrollments. A course's index is
// a 2D array of modules referencing articles, quizzes and videos by their
// public ids with a content-type discriminator.
type Service struct {
	db  *pgxpool.Pool
	seq *sequence.Service
	eb  *event.Bus
}

func NewService(c Config) *Service {
	return &Service{
		db:  c.DB,
		seq: c.Sequence,
		eb:  c.EventBus,
	}
}

const courseColumns = `
c.id, c.course_id, c.title, c.num_articles, c.num_videos, c.num_quizzes,
c.instructor, COALESCE(u.name, ''), c.num_students, c.level, c.timeline,
c.course_index, c.thumbnail, c.date, c.status`

const courseFrom = ` FROM courses c LEFT JOIN users u ON u.id = c.instructor `

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	return s.getOne(ctx, `c.id = $1`, id)
}

// Preview returns the course with each module's title resolved but nothing
// else: enough for a landing page shown before enrolling.
func (s *Service) Preview(ctx context.Context, courseID int64) (*domain.Course, error) {
	c, err := s.getUnblocked(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if err := s.resolveTitles(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// GetByCourseID returns the course with module titles resolved and, when the
// caller has an enrollment, each module marked completed according to the
// recorded progress.
func (s *Service) GetByCourseID(ctx context.Context, courseID int64, userID string) (*domain.Course, error) {
	c, err := s.getUnblocked(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if err := s.resolveTitles(ctx, c); err != nil {
		return nil, err
	}

	enr, err := s.getEnrollment(ctx, courseID, userID)
	if err != nil && !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Internal(err)
	}

	if enr != nil {
		// Progress entries are 1-based (weekNo, moduleNo) pairs into the
		// 2D index.
		for _, p := range enr.Progress {
			if !p.IsCompleted {
				continue
			}
			i, j := p.WeekNo-1, p.ModuleNo-1
			if i < 0 || i >= len(c.CourseIndex) || j < 0 || j >= len(c.CourseIndex[i]) {
				continue
			}
			c.CourseIndex[i][j].IsCompleted = true
		}
	}

	return c, nil
}

type CreateCourseRequest struct {
	Title       string
	NumArticles int
	NumVideos   int
	NumQuizzes  int
	Instructor  string
	Level       string
	Timeline    int
	CourseIndex [][]domain.CourseModule
	Thumbnail   string
	Date        time.Time
}

func (s *Service) Create(ctx context.Context, req CreateCourseRequest) (*domain.Course, error) {
	courseID, err := s.seq.Next(ctx, sequence.NameCourse)
	if err != nil {
		return nil, errors.Internal(err)
	}

	c := domain.Course{
		ID:          uuid.New().String(),
		CourseID:    courseID,
		Title:       req.Title,
		NumArticles: req.NumArticles,
		NumVideos:   req.NumVideos,
		NumQuizzes:  req.NumQuizzes,
		Instructor:  req.Instructor,
		Level:       req.Level,
		Timeline:    req.Timeline,
		CourseIndex: req.CourseIndex,
		Thumbnail:   req.Thumbnail,
		Date:        req.Date,
		Status:      domain.StatusActive,
	}

	const stmt = `
INSERT INTO courses (id, course_id, title, num_articles, num_videos, num_quizzes, instructor, num_students, level, timeline, course_index, thumbnail, date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $12, $13);`

	_, err = s.db.Exec(ctx, stmt,
		c.ID, c.CourseID, c.Title, c.NumArticles, c.NumVideos, c.NumQuizzes,
		c.Instructor, c.Level, c.Timeline, c.CourseIndex, c.Thumbnail, c.Date, c.Status,
	)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("course: create: %w", err))
	}

	return &c, nil
}

type EnrollmentStatusResponse struct {
	Course     *domain.Course
	IsEnrolled bool
}

// IsEnrolled reports whether the caller is enrolled; enrolled callers get
// the full decorated course, others the preview.
func (s *Service) IsEnrolled(ctx context.Context, courseID int64, userID string) (*EnrollmentStatusResponse, error) {
	c, err := s.Preview(ctx, courseID)
	if err != nil {
		return nil, err
	}

	enr, err := s.getEnrollment(ctx, courseID, userID)
	if err != nil && !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Internal(err)
	}

	if enr == nil || !enr.IsEnrolled {
		return &EnrollmentStatusResponse{Course: c}, nil
	}

	c, err = s.GetByCourseID(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	return &EnrollmentStatusResponse{Course: c, IsEnrolled: true}, nil
}

// Enroll creates the enrollment and bumps the course's student count. The
// enrollment write is conditional on the record not already being enrolled,
// so a double click cannot enroll twice.
func (s *Service) Enroll(ctx context.Context, courseID int64, userID string) (*domain.Course, error) {
	if _, err := s.getUnblocked(ctx, courseID); err != nil {
		return nil, err
	}

	enr, err := s.getEnrollment(ctx, courseID, userID)
	if err != nil && !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Internal(err)
	}

	if enr != nil {
		if enr.IsBlocked {
			return nil, errors.New(errors.CodePermissionDenied,
				errors.WithMessagef("Course is Blocked for the user."))
		}
		if enr.IsEnrolled {
			return nil, errors.New(errors.CodeFailedPrecondition,
				errors.WithMessagef("Invalid operation! You have already enrolled this course."))
		}
		if !enr.IsEligible {
			return nil, errors.New(errors.CodeFailedPrecondition,
				errors.WithMessagef("Unable to enroll Course."))
		}
	}

	const stmt = `
INSERT INTO course_enrollments (course_id, user_id, is_eligible, is_blocked, is_enrolled, enroll_date, is_finished, progress, status)
VALUES ($1, $2, TRUE, FALSE, TRUE, $3, FALSE, '[]', 'Active')
ON CONFLICT (course_id, user_id) DO UPDATE SET
	is_enrolled = TRUE,
	enroll_date = EXCLUDED.enroll_date,
	is_finished = FALSE,
	progress    = '[]'
WHERE course_enrollments.is_enrolled = FALSE
  AND course_enrollments.is_blocked = FALSE
  AND course_enrollments.is_eligible = TRUE;`

	now := time.Now()
	tag, err := s.db.Exec(ctx, stmt, courseID, userID, now)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("course: enroll: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("Unable to enroll Course."))
	}

	const bump = `UPDATE courses SET num_students = COALESCE(num_students, 0) + 1 WHERE course_id = $1;`
	if _, err := s.db.Exec(ctx, bump, courseID); err != nil {
		return nil, errors.Internal(fmt.Errorf("course: enroll: %w", err))
	}

	s.eb.Publish(ctx, domain.EventCourseEnrolled{Enrollment: domain.Enrollment{
		CourseID:   courseID,
		UserID:     userID,
		IsEligible: true,
		IsEnrolled: true,
		EnrollDate: now,
		Status:     domain.StatusActive,
	}})

	return s.GetByCourseID(ctx, courseID, userID)
}

// UpdateProgress appends one progress entry to the caller's enrollment.
func (s *Service) UpdateProgress(ctx context.Context, courseID int64, userID string, p domain.Progress) (*domain.Enrollment, error) {
	if _, err := s.getUnblocked(ctx, courseID); err != nil {
		return nil, err
	}

	const stmt = `
UPDATE course_enrollments SET progress = progress || $3::jsonb
WHERE course_id = $1 AND user_id = $2;`

	entry := []domain.Progress{p}
	tag, err := s.db.Exec(ctx, stmt, courseID, userID, entry)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("course: update progress: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("Failed to update course progress."))
	}

	enr, err := s.getEnrollment(ctx, courseID, userID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	return enr, nil
}

type UpdateCourseRequest struct {
	ID          string
	Title       string
	NumArticles int
	NumVideos   int
	NumQuizzes  int
	Level       string
	Timeline    int
	CourseIndex [][]domain.CourseModule
	Thumbnail   string
	Date        time.Time

	ActorID   string
	ActorRole string
}

func (s *Service) Update(ctx context.Context, req UpdateCourseRequest) (*domain.Course, error) {
	stmt := `
UPDATE courses SET
	title = $2, num_articles = $3, num_videos = $4, num_quizzes = $5,
	level = $6, timeline = $7, course_index = $8, thumbnail = $9, date = $10
WHERE id = $1`
	args := []any{req.ID, req.Title, req.NumArticles, req.NumVideos, req.NumQuizzes,
		req.Level, req.Timeline, req.CourseIndex, req.Thumbnail, req.Date}

	if req.ActorRole == auth.RoleInstructor {
		stmt += ` AND instructor = $11`
		args = append(args, req.ActorID)
	}

	tag, err := s.db.Exec(ctx, stmt+";", args...)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("course: update: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	return s.GetByID(ctx, req.ID)
}

func (s *Service) Block(ctx context.Context, id string) (*domain.Course, error) {
	return s.setStatus(ctx, id, domain.StatusBlocked)
}

func (s *Service) Unblock(ctx context.Context, id string) (*domain.Course, error) {
	return s.setStatus(ctx, id, domain.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, id, status string) (*domain.Course, error) {
	tag, err := s.db.Exec(ctx, `UPDATE courses SET status = $2 WHERE id = $1;`, id, status)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("course: set status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	return s.GetByID(ctx, id)
}

type DeleteCourseRequest struct {
	ID        string
	ActorID   string
	ActorRole string
}

// Delete removes the course. Enrollments referencing it are left behind.
func (s *Service) Delete(ctx context.Context, req DeleteCourseRequest) (*domain.Course, error) {
	c, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.ActorRole == auth.RoleInstructor && c.Instructor != req.ActorID {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM courses WHERE id = $1;`, req.ID); err != nil {
		return nil, errors.Internal(fmt.Errorf("course: delete: %w", err))
	}

	return c, nil
}

type ListRequest struct {
	Page    int
	PerPage int
	Query   string

	ActorID   string
	ActorRole string
}

type CatalogItem struct {
	domain.Course
	IsEnrolled bool
}

type PaginatedCourses struct {
	Data       []CatalogItem
	TotalCount int64
}

// ListCatalog pages through unblocked courses, index stripped, marking the
// ones the caller is enrolled in.
func (s *Service) ListCatalog(ctx context.Context, req ListRequest) (*PaginatedCourses, error) {
	page, perPage := normalizePage(req.Page, req.PerPage)

	stmt := `SELECT ` + courseColumns + courseFrom + `
WHERE c.status <> 'Blocked' AND ($1 = '' OR c.title ~* $1)
ORDER BY c.course_id
OFFSET $2 LIMIT $3;`

	rows, err := s.db.Query(ctx, stmt, req.Query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanCourse)
	if err != nil {
		return nil, errors.Internal(err)
	}

	total, err := s.count(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.enrolledSet(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}

	items := make([]CatalogItem, 0, len(list))
	for _, c := range list {
		c.CourseIndex = nil
		_, in := enrolled[c.CourseID]
		items = append(items, CatalogItem{Course: c, IsEnrolled: in})
	}

	return &PaginatedCourses{Data: items, TotalCount: total}, nil
}

// ListMine pages through the instructor's (or every, for admins) courses,
// blocked ones included.
func (s *Service) ListMine(ctx context.Context, req ListRequest) (*PaginatedCourses, error) {
	page, perPage := normalizePage(req.Page, req.PerPage)

	stmt := `SELECT ` + courseColumns + courseFrom + `
WHERE ($1 = '' OR c.title ~* $1) AND ($2 = '' OR c.instructor = $2)
ORDER BY c.course_id
OFFSET $3 LIMIT $4;`

	instructor := ""
	if req.ActorRole == auth.RoleInstructor {
		instructor = req.ActorID
	}

	rows, err := s.db.Query(ctx, stmt, req.Query, instructor, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanCourse)
	if err != nil {
		return nil, errors.Internal(err)
	}

	total, err := s.count(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	items := make([]CatalogItem, 0, len(list))
	for _, c := range list {
		items = append(items, CatalogItem{Course: c})
	}

	return &PaginatedCourses{Data: items, TotalCount: total}, nil
}

// ListEnrolledByUser pages through only the courses the caller enrolled in.
func (s *Service) ListEnrolledByUser(ctx context.Context, req ListRequest) (*PaginatedCourses, error) {
	page, perPage := normalizePage(req.Page, req.PerPage)

	ids, err := s.enrolledIDs(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &PaginatedCourses{Data: []CatalogItem{}}, nil
	}

	stmt := `SELECT ` + courseColumns + courseFrom + `
WHERE c.course_id = ANY($1) AND ($2 = '' OR c.title ~* $2)
ORDER BY c.course_id
OFFSET $3 LIMIT $4;`

	rows, err := s.db.Query(ctx, stmt, ids, req.Query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanCourse)
	if err != nil {
		return nil, errors.Internal(err)
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses WHERE course_id = ANY($1);`, ids).Scan(&total); err != nil {
		return nil, errors.Internal(err)
	}

	items := make([]CatalogItem, 0, len(list))
	for _, c := range list {
		c.CourseIndex = nil
		items = append(items, CatalogItem{Course: c, IsEnrolled: true})
	}

	return &PaginatedCourses{Data: items, TotalCount: total}, nil
}

// resolveTitles fills each module's title from the entity its discriminator
// points at. Dangling references keep an empty title instead of failing the
// whole read.
func (s *Service) resolveTitles(ctx context.Context, c *domain.Course) error {
	for i := range c.CourseIndex {
		for j := range c.CourseIndex[i] {
			m := &c.CourseIndex[i][j]

			var stmt string
			switch m.ContentType {
			case domain.ContentTypeArticle:
				stmt = `SELECT title FROM articles WHERE article_id = $1;`
			case domain.ContentTypeQuiz:
				stmt = `SELECT title FROM quizzes WHERE quiz_id = $1;`
			case domain.ContentTypeVideo:
				stmt = `SELECT title FROM videos WHERE video_id = $1;`
			default:
				continue
			}

			var title string
			err := s.db.QueryRow(ctx, stmt, m.ContentID).Scan(&title)
			if stderrors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				return errors.Internal(fmt.Errorf("course: resolve module: %w", err))
			}

			m.Title = title
		}
	}

	return nil
}

func (s *Service) getUnblocked(ctx context.Context, courseID int64) (*domain.Course, error) {
	c, err := s.getOne(ctx, `c.course_id = $1`, courseID)
	if err != nil {
		return nil, err
	}

	if c.Status == domain.StatusBlocked {
		return nil, errors.New(errors.CodePermissionDenied, errors.WithMessagef(msgBlocked))
	}

	return c, nil
}

func (s *Service) getOne(ctx context.Context, where string, arg any) (*domain.Course, error) {
	rows, err := s.db.Query(ctx, `SELECT `+courseColumns+courseFrom+`WHERE `+where+`;`, arg)
	if err != nil {
		return nil, errors.Internal(err)
	}

	c, err := pgx.CollectOneRow(rows, scanCourse)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &c, nil
}

func (s *Service) getEnrollment(ctx context.Context, courseID int64, userID string) (*domain.Enrollment, error) {
	const stmt = `
SELECT course_id, user_id, is_eligible, is_blocked, is_enrolled, enroll_date, is_finished, finish_date, progress, status
FROM course_enrollments
WHERE course_id = $1 AND user_id = $2;`

	var e domain.Enrollment
	err := s.db.QueryRow(ctx, stmt, courseID, userID).Scan(
		&e.CourseID, &e.UserID, &e.IsEligible, &e.IsBlocked, &e.IsEnrolled,
		&e.EnrollDate, &e.IsFinished, &e.FinishDate, &e.Progress, &e.Status,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

func (s *Service) count(ctx context.Context, query string) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses WHERE ($1 = '' OR title ~* $1);`, query).Scan(&total)
	if err != nil {
		return 0, errors.Internal(err)
	}
	return total, nil
}

func (s *Service) enrolledIDs(ctx context.Context, userID string) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT course_id FROM course_enrollments WHERE user_id = $1 AND is_enrolled = TRUE;`, userID)
	if err != nil {
		return nil, errors.Internal(err)
	}

	ids, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (int64, error) {
		var id int64
		err := r.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, errors.Internal(err)
	}

	return ids, nil
}

func (s *Service) enrolledSet(ctx context.Context, userID string) (map[int64]struct{}, error) {
	if userID == "" {
		return nil, nil
	}

	ids, err := s.enrolledIDs(ctx, userID)
	if err != nil {
		return nil, err
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

func scanCourse(r pgx.CollectableRow) (domain.Course, error) {
	var c domain.Course
	err := r.Scan(
		&c.ID, &c.CourseID, &c.Title, &c.NumArticles, &c.NumVideos, &c.NumQuizzes,
		&c.Instructor, &c.InstructorName, &c.NumStudents, &c.Level, &c.Timeline,
		&c.CourseIndex, &c.Thumbnail, &c.Date, &c.Status,
	)
	if err != nil {
		return domain.Course{}, err
	}

	return c, nil
}
