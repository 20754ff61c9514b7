package user

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rastercell/lms-api/internal/auth"
	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/mail"
	"github.com/rastercell/lms-api/internal/sequence"
)

const msgNotFound = "User not found!"

type Config struct {
	DB       *pgxpool.Pool
	Sequence *sequence.Service
	Auth     *auth.Service
	Mailer   mail.Mailer
}

// Service owns accounts: registration, authentication and profile CRUD.
type Service struct {
	db     *pgxpool.Pool
	seq    *sequence.Service
	auth   *auth.Service
	mailer mail.Mailer
}

func NewService(c Config) *Service {
	return &Service{
		db:     c.DB,
		seq:    c.Sequence,
		auth:   c.Auth,
		mailer: c.Mailer,
	}
}

const userColumns = `
id, user_id, email, password, role, name, phone, is_email_verified, is_phone_verified,
profile_image, country, postal_code, division, district, upazila, status, create_time`

type AuthResponse struct {
	AccessToken string
}

type LoginRequest struct {
	Email    string
	Password string
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.getByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if !auth.ComparePassword(u.PasswordHash, req.Password) {
		return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("Invalid password"))
	}

	return s.issueToken(u)
}

type SignupRequest struct {
	Email    string
	Password string
}

// Signup registers the account and logs it straight in. The display name
// defaults to the mailbox part of the email.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if _, err := s.getByEmail(ctx, req.Email); err == nil {
		return nil, errors.New(errors.CodeAlreadyExists, errors.WithMessagef("User already exists!"))
	}

	userNo, err := s.seq.Next(ctx, sequence.NameUser)
	if err != nil {
		return nil, errors.Internal(err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Internal(err)
	}

	u := domain.User{
		ID:           uuid.New().String(),
		UserID:       userNo,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
		Name:         strings.SplitN(req.Email, "@", 2)[0],
		Status:       domain.StatusActive,
	}

	const stmt = `
INSERT INTO users (id, user_id, email, password, role, name, status)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err = s.db.Exec(ctx, stmt, u.ID, u.UserID, u.Email, u.PasswordHash, u.Role, u.Name, u.Status)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("user: signup: %w", err))
	}

	return s.issueToken(&u)
}

type ForgotPasswordRequest struct {
	Email string
}

type MessageResponse struct {
	Message string
}

// ForgotPassword replaces the password with a temporary one and mails it.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*MessageResponse, error) {
	if _, err := s.getByEmail(ctx, req.Email); err != nil {
		return nil, err
	}

	temp, err := tempPassword()
	if err != nil {
		return nil, errors.Internal(err)
	}

	hash, err := auth.HashPassword(temp)
	if err != nil {
		return nil, errors.Internal(err)
	}

	if _, err := s.db.Exec(ctx, `UPDATE users SET password = $2 WHERE email = $1;`, req.Email, hash); err != nil {
		return nil, errors.Internal(fmt.Errorf("user: forgot password: %w", err))
	}

	err = s.mailer.Send(ctx, mail.Message{
		To:      req.Email,
		Subject: "Password Reset",
		Text:    fmt.Sprintf("Your temporary password is %s", temp),
	})
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("user: forgot password: %w", err))
	}

	return &MessageResponse{Message: "Temporary password sent to mail!"}, nil
}

type ChangePasswordRequest struct {
	Email       string
	OldPassword string
	NewPassword string
}

func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) (*MessageResponse, error) {
	u, err := s.getByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if !auth.ComparePassword(u.PasswordHash, req.OldPassword) {
		return nil, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("Invalid password!"))
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return nil, errors.Internal(err)
	}

	if _, err := s.db.Exec(ctx, `UPDATE users SET password = $2 WHERE email = $1;`, req.Email, hash); err != nil {
		return nil, errors.Internal(fmt.Errorf("user: change password: %w", err))
	}

	return &MessageResponse{Message: "Password changed successfully!"}, nil
}

type ListRequest struct {
	Page    int
	PerPage int
	Query   string
}

type PaginatedUsers struct {
	Data       []domain.User
	TotalCount int64
}

// List pages through users, matching Query against name and email. Password
// hashes are zeroed before the result leaves the service.
func (s *Service) List(ctx context.Context, req ListRequest) (*PaginatedUsers, error) {
	page, perPage := req.Page, req.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 12
	}

	stmt := `SELECT ` + userColumns + ` FROM users
WHERE ($1 = '' OR name ~* $1 OR email ~* $1)
ORDER BY user_id
OFFSET $2 LIMIT $3;`

	rows, err := s.db.Query(ctx, stmt, req.Query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, errors.Internal(err)
	}

	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, errors.Internal(err)
	}

	var total int64
	err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE ($1 = '' OR name ~* $1 OR email ~* $1);`, req.Query).Scan(&total)
	if err != nil {
		return nil, errors.Internal(err)
	}

	for i := range users {
		users[i].PasswordHash = ""
	}

	return &PaginatedUsers{Data: users, TotalCount: total}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.getOne(ctx, `id = $1`, id)
	if err != nil {
		return nil, err
	}

	u.PasswordHash = ""
	return u, nil
}

func (s *Service) GetByUserID(ctx context.Context, userNo int64) (*domain.User, error) {
	u, err := s.getOne(ctx, `user_id = $1`, userNo)
	if err != nil {
		return nil, err
	}

	u.PasswordHash = ""
	return u, nil
}

type UpdateProfileRequest struct {
	ActorID      string
	Name         string
	Phone        string
	ProfileImage string
	Country      string
	PostalCode   string
	Division     string
	District     string
	Upazila      string
}

// UpdateProfile updates the caller's own profile and returns a fresh token
// carrying the new claims. Password and role are not touchable here.
func (s *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*AuthResponse, error) {
	const stmt = `
UPDATE users SET
	name = $2, phone = $3, profile_image = $4, country = $5,
	postal_code = $6, division = $7, district = $8, upazila = $9
WHERE id = $1;`

	tag, err := s.db.Exec(ctx, stmt,
		req.ActorID, req.Name, req.Phone, req.ProfileImage, req.Country,
		req.PostalCode, req.Division, req.District, req.Upazila,
	)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("user: update profile: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	u, err := s.getOne(ctx, `id = $1`, req.ActorID)
	if err != nil {
		return nil, err
	}

	return s.issueToken(u)
}

type ChangeRoleRequest struct {
	UserID int64
	Role   string
}

func (s *Service) ChangeRole(ctx context.Context, req ChangeRoleRequest) (*domain.User, error) {
	tag, err := s.db.Exec(ctx, `UPDATE users SET role = $2 WHERE user_id = $1;`, req.UserID, req.Role)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("user: change role: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}

	return s.GetByUserID(ctx, req.UserID)
}

func (s *Service) Delete(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1;`, id); err != nil {
		return nil, errors.Internal(fmt.Errorf("user: delete: %w", err))
	}

	return u, nil
}

func (s *Service) issueToken(u *domain.User) (*AuthResponse, error) {
	token, err := s.auth.IssueToken(auth.Identity{
		UserID: u.ID,
		UserNo: u.UserID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
	})
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &AuthResponse{AccessToken: token}, nil
}

func (s *Service) getByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, `email = $1`, email)
}

func (s *Service) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+`;`, arg)
	if err != nil {
		return nil, errors.Internal(err)
	}

	u, err := pgx.CollectOneRow(rows, scanUser)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef(msgNotFound))
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &u, nil
}

func scanUser(r pgx.CollectableRow) (domain.User, error) {
	var u domain.User
	err := r.Scan(
		&u.ID, &u.UserID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.Phone,
		&u.IsEmailVerified, &u.IsPhoneVerified, &u.ProfileImage, &u.Country,
		&u.PostalCode, &u.Division, &u.District, &u.Upazila, &u.Status, &u.CreateTime,
	)
	if err != nil {
		return domain.User{}, err
	}

	return u, nil
}

const tempPasswordAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func tempPassword() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("user: temp password: %w", err)
	}

	for i := range b {
		b[i] = tempPasswordAlphabet[int(b[i])%len(tempPasswordAlphabet)]
	}

	return string(b), nil
}
