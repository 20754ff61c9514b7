package file

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
)

const msgNotFound = "File not found!"

type Config struct {
	DB *pgxpool.Pool
}

// Service keeps receipts for assets uploaded to the CDN. The bytes live
// there; only the metadata comes through here.
type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

const fileColumns = `
id, public_id, url, secure_url, resource_type, type, format, version, width,
height, bytes, mime_type, original_filename, folder, quality, tags, create_time`

type SaveFileRequest struct {
	PublicID         string
	URL              string
	SecureURL        string
	ResourceType     string
	Type             string
	Format           string
	Version          string
	Width            int
	Height           int
	Bytes            int64
	MimeType         string
	OriginalFilename string
	Folder           string
	Quality          string
	Tags             []string
}

func (s *Service) Save(ctx context.Context, req SaveFileRequest) (*domain.File, error) {
	f := domain.File{
		ID:               uuid.New().String(),
		PublicID:         req.PublicID,
		URL:              req.URL,
		SecureURL:        req.SecureURL,
		ResourceType:     req.ResourceType,
		Type:             req.Type,
		Format:           req.Format,
		Version:          req.Version,
		Width:            req.Width,
		Height:           req.Height,
		Bytes:            req.Bytes,
		MimeType:         req.MimeType,
		OriginalFilename: req.OriginalFilename,
		Folder:           req.Folder,
		Quality:          req.Quality,
		Tags:             req.Tags,
		CreateTime:       time.Now(),
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}

	const stmt = `
INSERT INTO files (` + fileColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);`

	_, err := s.db.Exec(ctx, stmt,
		f.ID, f.PublicID, f.URL, f.SecureURL, f.ResourceType, f.Type, f.Format,
		f.Version, f.Width, f.Height, f.Bytes, f.MimeType, f.OriginalFilename,
		f.Folder, f.Quality, f.Tags, f.CreateTime,
	)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("file: save: %w", err))
	}

	return &f, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.File, error) {
	rows, err := s.db.Query(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1;`, id)
	if err != nil {
		return nil, errors.Internal(err)
	}

	f, err := pgx.CollectOneRow(rows, scanFile)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &f, nil
}

func (s *Service) List(ctx context.Context, folder string) ([]domain.File, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+fileColumns+` FROM files WHERE ($1 = '' OR folder = $1) ORDER BY create_time DESC;`, folder)
	if err != nil {
		return nil, errors.Internal(err)
	}

	files, err := pgx.CollectRows(rows, scanFile)
	if err != nil {
		return nil, errors.Internal(err)
	}

	return files, nil
}

func (s *Service) Delete(ctx context.Context, id string) (*domain.File, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM files WHERE id = $1;`, id); err != nil {
		return nil, errors.Internal(fmt.Errorf("file: delete: %w", err))
	}

	return f, nil
}

func scanFile(r pgx.CollectableRow) (domain.File, error) {
	var f domain.File
	err := r.Scan(
		&f.ID, &f.PublicID, &f.URL, &f.SecureURL, &f.ResourceType, &f.Type,
		&f.Format, &f.Version, &f.Width, &f.Height, &f.Bytes, &f.MimeType,
		&f.OriginalFilename, &f.Folder, &f.Quality, &f.Tags, &f.CreateTime,
	)
	if err != nil {
		return domain.File{}, err
	}

	return f, nil
}
