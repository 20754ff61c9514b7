package article

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

const msgNotFound = "Article not found! It may have been deleted, moved, or the ID may be incorrect."
const msgBlocked = "This article is blocked! It is no longer accessible by users."

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

const articleColumns = `
a.id, a.article_id, a.title, a.content, a.thumbnail, a.author, COALESCE(u.name, ''), a.date, a.status`

const articleFrom = ` FROM articles a LEFT JOIN users u ON u.id = a.author `

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	return s.getOne(ctx, `a.id = $1`, id)
}

// GetByArticleID serves readers; blocked articles are refused.
func (s *Service) GetByArticleID(ctx context.Context, articleID int64) (*domain.Article, error) {
	a, err := s.getOne(ctx, `a.article_id = $1`, articleID)
	if err != nil {
		return nil, err
	}

	if a.Status == domain.StatusBlocked {
		return nil, errors.New(errors.CodePermissionDenied, errors.WithMessagef(msgBlocked))
	}

	return a, nil
}

type CreateArticleRequest struct {
	Title     string
	Content   string
	Thumbnail string
	Author    string
	Date      time.Time
}

func (s *Service) Create(ctx context.Context, req CreateArticleRequest) (*domain.Article, error) {
	articleID, err := s.seq.Next(ctx, sequence.NameArticle)
	if err != nil {
		return nil, errors.Internal(err)
	}

	a := domain.Article{
		ID:        uuid.New().String(),
		ArticleID: articleID,
		Title:     req.Title,
		Content:   req.Content,
		Thumbnail: req.Thumbnail,
		Author:    req.Author,
		Date:      req.Date,
		Status:    domain.StatusActive,
	}

	const stmt = `
INSERT INTO articles (id, article_id, title, content, thumbnail, author, date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err = s.db.Exec(ctx, stmt, a.ID, a.ArticleID, a.Title, a.Content, a.Thumbnail, a.Author, a.Date, a.Status)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("article: create: %w", err))
	}

	return &a, nil
}

type UpdateArticleRequest struct {
	ID        string
	Title     string
	Content   string
	Thumbnail string
	Date      time.Time

	ActorID   string
	ActorRole string
}

func (s *Service) Update(ctx context.Context, req UpdateArticleRequest) (*domain.Article, error) {
	stmt := `UPDATE articles SET title = $2, content = $3, thumbnail = $4, date = $5 WHERE id = $1`
	args := []any{req.ID, req.Title, req.Content, req.Thumbnail, req.Date}

	if req.ActorRole == auth.RoleWriter {
		stmt += ` AND author = $6`
		args = append(args, req.ActorID)
	}

	tag, err := s.db.Exec(ctx, stmt+";", args...)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("article: update: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	return s.GetByID(ctx, req.ID)
}

func (s *Service) Block(ctx context.Context, id string) (*domain.Article, error) {
	return s.setStatus(ctx, id, domain.StatusBlocked)
}

func (s *Service) Unblock(ctx context.Context, id string) (*domain.Article, error) {
	return s.setStatus(ctx, id, domain.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, id, status string) (*domain.Article, error) {
	tag, err := s.db.Exec(ctx, `UPDATE articles SET status = $2 WHERE id = $1;`, id, status)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("article: set status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	return s.GetByID(ctx, id)
}

type DeleteArticleRequest struct {
	ID        string
	ActorID   string
	ActorRole string
}

func (s *Service) Delete(ctx context.Context, req DeleteArticleRequest) (*domain.Article, error) {
	a, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if req.ActorRole == auth.RoleWriter && a.Author != req.ActorID {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM articles WHERE id = $1;`, req.ID); err != nil {
		return nil, errors.Internal(fmt.Errorf("article: delete: %w", err))
	}

	return a, nil
}

type ListRequest struct {
	Page    int
	PerPage int
	Query   string

	ActorID   string
	ActorRole string
}

type PaginatedArticles struct {
	Data       []domain.Article
	TotalCount int64
}

// ListCatalog pages through unblocked articles with the body stripped.
func (s *Service) ListCatalog(ctx context.Context, req ListRequest) (*PaginatedArticles, error) {
	page, perPage := normalizePage(req.Page, req.PerPage)

	stmt := `SELECT ` + articleColumns + articleFrom + `
WHERE a.status <> 'Blocked' AND ($1 = '' OR a.title ~* $1)
ORDER BY a.article_id
OFFSET $2 LIMIT $3;`

	rows, err := s.db.Query(ctx, stmt, req.Query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanArticle)
	if err != nil {
		return nil, errors.Internal(err)
	}

	for i := range list {
		list[i].Content = ""
	}

	total, err := s.count(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	return &PaginatedArticles{Data: list, TotalCount: total}, nil
}

// ListMine pages through the writer's (or every, for admins) articles,
// blocked ones included.
func (s *Service) ListMine(ctx context.Context, req ListRequest) (*PaginatedArticles, error) {
	page, perPage := normalizePage(req.Page, req.PerPage)

	stmt := `SELECT ` + articleColumns + articleFrom + `
WHERE ($1 = '' OR a.title ~* $1) AND ($2 = '' OR a.author = $2)
ORDER BY a.article_id
OFFSET $3 LIMIT $4;`

	author := ""
	if req.ActorRole == auth.RoleWriter {
		author = req.ActorID
	}

	rows, err := s.db.Query(ctx, stmt, req.Query, author, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	list, err := pgx.CollectRows(rows, scanArticle)
	if err != nil {
		return nil, errors.Internal(err)
	}

	total, err := s.count(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	return &PaginatedArticles{Data: list, TotalCount: total}, nil
}

func (s *Service) count(ctx context.Context, query string) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM articles WHERE ($1 = '' OR title ~* $1);`, query).Scan(&total)
	if err != nil {
		return 0, errors.Internal(err)
	}
	return total, nil
}

func (s *Service) getOne(ctx context.Context, where string, arg any) (*domain.Article, error) {
	rows, err := s.db.Query(ctx, `SELECT `+articleColumns+articleFrom+`WHERE `+where+`;`, arg)
	if err != nil {
		return nil, errors.Internal(err)
	}

	a, err := pgx.CollectOneRow(rows, scanArticle)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &a, nil
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

func scanArticle(r pgx.CollectableRow) (domain.Article, error) {
	var a domain.Article
	err := r.Scan(
		&a.ID, &a.ArticleID, &a.Title, &a.Content, &a.Thumbnail,
		&a.Author, &a.AuthorName, &a.Date, &a.Status,
	)
	if err != nil {
		return domain.Article{}, err
	}

	return a, nil
}
