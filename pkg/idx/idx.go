// Package idx mints the ULIDs used as primary keys for users, invitations
// and OAuth token records.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID in canonical 26 character form. IDs minted in the same
// millisecond still sort in creation order.
type ID string

func (id ID) String() string { return string(id) }

var ErrInvalid = errors.New("idx: invalid ulid")

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns an ID stamped with the current time.
func New() ID { return NewAt(time.Now()) }

// NewAt returns an ID stamped with t.
func NewAt(t time.Time) ID {
	mu.Lock()
	u := ulid.MustNew(ulid.Timestamp(t), entropy)
	mu.Unlock()
	return ID(u.String())
}

// Parse accepts only canonical ULIDs, so malformed path parameters can be
// answered without a query.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", ErrInvalid
	}
	return ID(s), nil
}
