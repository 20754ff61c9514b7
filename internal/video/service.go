package video

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
	"github.com/rastercell/lms-api/internal/sequence"
)

const msgNotFound = "Video not found! It may have been deleted, moved, or the ID may be incorrect."
const msgBlocked = "This video is blocked! It is no longer accessible by users."

type Config struct {
	DB       *pgxpool.Pool
	Sequence *sequence.Service
}

type Service struct {
	db  *pgxpool.Pool
	seq *sequence.Service
}

func NewService(c Config) *Service {
	return &Service{db: c.DB, seq: c.Sequence}
}

const videoColumns = `
v.id, v.video_id, v.title, v.url, v.length_in_seconds, v.lecturer, v.author,
COALESCE(u.name, ''), v.description, v.tags, v.view_count, v.thumbnail, v.published_date, v.status`

const videoFrom = ` FROM videos v LEFT JOIN users u ON u.id = v.author `

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	return s.getOne(ctx, `v.id = $1`, id)
}

// GetByVideoID serves viewers: blocked videos are refused and each read
// counts as a view.
func (s *Service) GetByVideoID(ctx context.Context, videoID int64) (*domain.Video, error) {
	v, err := s.getOne(ctx, `v.video_id = $1`, videoID)
	if err != nil {
		return nil, err
	}

	if v.Status == domain.StatusBlocked {
		return nil, errors.New(errors.CodePermissionDenied, errors.WithMessagef(msgBlocked))
	}

	if _, err := s.db.Exec(ctx, `UPDATE videos SET view_count = view_count + 1 WHERE video_id = $1;`, videoID); err != nil {
		return nil, errors.Internal(fmt.Errorf("video: count view: %w", err))
	}
	v.ViewCount++

	return v, nil
}

type CreateVideoRequest struct {
	Title           string
	URL             string
	LengthInSeconds int64
	Lecturer        string
	Author          string
	Description     string
	Tags            []string
	Thumbnail       string
	PublishedDate   time.Time
}

func (s *Service) Create(ctx context.Context, req CreateVideoRequest) (*domain.Video, error) {
	videoID, err := s.seq.Next(ctx, sequence.NameVideo)
	if err != nil {
		return nil, errors.Internal(err)
	}

	v := domain.Video{
		ID:              uuid.New().String(),
		VideoID:         videoID,
		Title:           req.Title,
		URL:             req.URL,
		LengthInSeconds: req.LengthInSeconds,
		Lecturer:        req.Lecturer,
		Author:          req.Author,
		Description:     req.Description,
		Tags:            req.Tags,
		Thumbnail:       req.Thumbnail,
		PublishedDate:   req.PublishedDate,
		Status:          domain.StatusActive,
	}

	const stmt = `
INSERT INTO videos (id, video_id, title, url, length_in_seconds, lecturer, author, description, tags, view_count, thumbnail, published_date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12);`

	_, err = s.db.Exec(ctx, stmt,
		v.ID, v.VideoID, v.Title, v.URL, v.LengthInSeconds, v.Lecturer, v.Author,
		v.Description, v.Tags, v.Thumbnail, v.PublishedDate, v.Status,
	)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("video: create: %w", err))
	}

	return &v, nil
}

type UpdateVideoRequest struct {
	ID              string
	Title           string
	URL             string
	LengthInSeconds int64
	Lecturer        string
	Description     string
	Tags            []string
	Thumbnail       string
	PublishedDate   time.Time

	ActorID   string
	ActorRole string
}

func (s *Service) Update(ctx context.Context, req UpdateVideoRequest) (*domain.Video, error) {
	stmt := `
UPDATE videos SET
	title = $2, url = $3, length_in_seconds = $4, lecturer = $5,
	description = $6, tags = $7, thumbnail = $8, published_date = $9
WHERE id = $1`
	args := []any{req.ID, req.Title, req.URL, req.LengthInSeconds, req.Lecturer,
		req.Description, req.Tags, req.Thumbnail, req.PublishedDate}

	if req.ActorRole == auth.RoleInstructor {
		stmt += ` AND author = $10`
		args = append(args, req.ActorID)
	}

	tag, err := s.db.Exec(ctx, stmt+";", args...)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("video: update: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	return s.GetByID(ctx, req.ID)
}

func (s *Service) Block(ctx context.Context, id string) (*domain.Video, error) {
	return s.setStatus(ctx, id, domain.StatusBlocked)
}

func (s *Service) Unblock(ctx context.Context, id string) (*domain.Video, error) {
	return s.setStatus(ctx, id, domain.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, id, status string) (*domain.Video, error) {
	tag, err := s.db.Exec(ctx, `UPDATE videos SET status = $2 WHERE id = $1;`, id, status)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("video: set status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	return s.GetByID(ctx, id)
}

type DeleteVideoRequest struct {
	ID        string
	ActorID   string
	ActorRole string
}

func (s *Service) Delete(ctx context.Context, req DeleteVideoRequest) (*domain.Video, error) {
	v, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.ActorRole == auth.RoleInstructor && v.Author != req.ActorID {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM videos WHERE id = $1;`, req.ID); err != nil {
		return nil, errors.Internal(fmt.Errorf("video: delete: %w", err))
	}

	return v, nil
}

type ListRequest struct {
	Page    int
	PerPage int
	Query   string

	ActorID   string
	ActorRole string
}

type PaginatedVideos struct {
	Data       []domain.Video
	TotalCount int64
}

// ListCatalog pages through unblocked videos with the playback url stripped,
// so browsing never leaks a watchable link.
func (s *Service) ListCatalog(ctx context.Context, req ListRequest) (*PaginatedVideos, error) {
	page, perPage := normalizePage(req.Page, req.PerPage)

	stmt := `SELECT ` + videoColumns + videoFrom + `
WHERE v.status <> 'Blocked' AND ($1 = '' OR v.title ~* $1)
ORDER BY v.video_id
OFFSET $2 LIMIT $3;`

	rows, err := s.db.Query(ctx, stmt, req.Query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanVideo)
	if err != nil {
		return nil, errors.Internal(err)
	}

	for i := range list {
		list[i].URL = ""
	}

	total, err := s.count(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	return &PaginatedVideos{Data: list, TotalCount: total}, nil
}

// ListMine pages through the author's (or every, for admins) videos,
// blocked ones included.
func (s *Service) ListMine(ctx context.Context, req ListRequest) (*PaginatedVideos, error) {
	page, perPage := normalizePage(req.Page, req.PerPage)

	stmt := `SELECT ` + videoColumns + videoFrom + `
WHERE ($1 = '' OR v.title ~* $1) AND ($2 = '' OR v.author = $2)
ORDER BY v.video_id
OFFSET $3 LIMIT $4;`

	author := ""
	if req.ActorRole == auth.RoleInstructor {
		author = req.ActorID
	}

	rows, err := s.db.Query(ctx, stmt, req.Query, author, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanVideo)
	if err != nil {
		return nil, errors.Internal(err)
	}

	total, err := s.count(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	return &PaginatedVideos{Data: list, TotalCount: total}, nil
}

func (s *Service) count(ctx context.Context, query string) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM videos WHERE ($1 = '' OR title ~* $1);`, query).Scan(&total)
	if err != nil {
		return 0, errors.Internal(err)
	}
	return total, nil
}

func (s *Service) getOne(ctx context.Context, where string, arg any) (*domain.Video, error) {
	rows, err := s.db.Query(ctx, `SELECT `+videoColumns+videoFrom+`WHERE `+where+`;`, arg)
	if err != nil {
		return nil, errors.Internal(err)
	}

	v, err := pgx.CollectOneRow(rows, scanVideo)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &v, nil
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

func scanVideo(r pgx.CollectableRow) (domain.Video, error) {
	var v domain.Video
	err := r.Scan(
		&v.ID, &v.VideoID, &v.Title, &v.URL, &v.LengthInSeconds, &v.Lecturer,
		&v.Author, &v.AuthorName, &v.Description, &v.Tags, &v.ViewCount,
		&v.Thumbnail, &v.PublishedDate, &v.Status,
	)
	if err != nil {
		return domain.Video{}, err
	}

	return v, nil
}
