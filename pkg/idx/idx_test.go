package idx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ehsh01/it-ops-dashboard/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.Len(t, id.String(), 26)

	parsed, err := idx.Parse(" " + id.String() + " ")
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "not-a-ulid", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3Z", "../etc/passwd"} {
		_, err := idx.Parse(in)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q", in)
	}
}

func TestIDsSortByCreation(t *testing.T) {
	a := idx.NewAt(time.Unix(1, 0))
	b := idx.NewAt(time.Unix(2, 0))
	require.Less(t, a.String(), b.String())

	now := time.Now()
	first, second := idx.NewAt(now), idx.NewAt(now)
	require.Less(t, first.String(), second.String(), "same millisecond stays monotonic")
}

func TestConcurrentGenerationIsUnique(t *testing.T) {
	const n = 200
	var (
		wg   sync.WaitGroup
		lock sync.Mutex
		seen = make(map[idx.ID]struct{}, n)
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := idx.New()
			lock.Lock()
			seen[id] = struct{}{}
			lock.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, seen, n)
}
