package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/rastercell/lms-api/internal/domain"
)

// ErrNotFound is returned by Store.Get when no record exists for the pair.
var ErrNotFound = errors.New("attempt: record not found")

// Store persists attempt records keyed by (quizID, userID). Implementations
// must make each transition a single atomic write so that two operations
// racing on the same key serialize instead of interleaving.
type Store interface {
	Get(ctx context.Context, quizID int64, userID string) (*domain.Attempt, error)

	// StartConditional transitions the record to started, creating it if
	// absent. It reports false without writing when the record is already
	// started or finished, which is how a lost start/start race surfaces.
	StartConditional(ctx context.Context, a domain.Attempt) (bool, error)

	// PutFinished overwrites the record with a finished state. Repeated
	// finishes are allowed; the last write wins.
	PutFinished(ctx context.Context, a domain.Attempt) error

	// ListOverdue returns started, unfinished records whose deadline has
	// passed. The deadline sweep feeds on this.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Attempt, error)
}
