package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rastercell/lms-api/internal/auth"
)

func TestService_TokenRoundTrip(t *testing.T) {
	s := auth.NewService(auth.Config{Secret: "test-secret", TokenTTL: time.Minute})

	id := auth.Identity{
		UserID: "id-1",
		UserNo: 1001,
		Email:  "alice@example.com",
		Name:   "alice",
		Role:   auth.RoleInstructor,
	}

	token, err := s.IssueToken(id)
	require.NoError(t, err)

	got, err := s.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestService_VerifyToken(t *testing.T) {
	s := auth.NewService(auth.Config{Secret: "test-secret", TokenTTL: time.Minute})

	tests := map[string]struct {
		token func(t *testing.T) string
	}{
		"garbage": {
			token: func(t *testing.T) string { return "not.a.token" },
		},

		"wrong secret": {
			token: func(t *testing.T) string {
				other := auth.NewService(auth.Config{Secret: "other-secret", TokenTTL: time.Minute})
				token, err := other.IssueToken(auth.Identity{UserID: "id-1"})
				require.NoError(t, err)
				return token
			},
		},

		"expired": {
			token: func(t *testing.T) string {
				expired := auth.NewService(auth.Config{Secret: "test-secret", TokenTTL: -time.Minute})
				token, err := expired.IssueToken(auth.Identity{UserID: "id-1"})
				require.NoError(t, err)
				return token
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			_, err := s.VerifyToken(tt.token(t))
			require.Error(t, err)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)

	require.True(t, auth.ComparePassword(hash, "s3cret"))
	require.False(t, auth.ComparePassword(hash, "wrong"))
}

func TestPrivileged(t *testing.T) {
	require.True(t, auth.Privileged(auth.RoleInstructor))
	require.True(t, auth.Privileged(auth.RoleSuperAdmin))
	require.False(t, auth.Privileged(auth.RoleUser))
	require.False(t, auth.Privileged(auth.RoleWriter))
	require.False(t, auth.Privileged(""))
}
