// Integration tests for concurrent access: serialized writes through the
// gate, uniqueness races resolving to exactly one winner, and readers
// proceeding while rows are inserted.
package integration

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/orm"
)

func TestConcurrency_ParallelCreatesAllPersist(t *testing.T) {
	_, models := newBlog(t)

	const writers = 16
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = models.Users.Create(map[string]any{
				"username":      fmt.Sprintf("writer_%02d", i),
				"email":         fmt.Sprintf("writer%02d@example.com", i),
				"first_name":    "Parallel",
				"last_name":     "Writer",
				"password_hash": "x",
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "writer %d", i)
	}
	n, err := models.Users.Count(orm.Lookups{"username__startswith": "writer_"})
	require.NoError(t, err)
	assert.Equal(t, int64(writers), n)
}

func TestConcurrency_UniquenessRaceHasOneWinner(t *testing.T) {
	_, models := newBlog(t)

	const racers = 8
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every field the schema requires is present; only the UNIQUE
			// check on username can reject.
			_, errs[i] = models.Users.Create(map[string]any{
				"username":      "contested",
				"email":         fmt.Sprintf("racer%d@example.com", i),
				"first_name":    "Race",
				"last_name":     "Runner",
				"password_hash": "x",
			})
		}(i)
	}
	wg.Wait()

	wins, rejections := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, orm.ErrConstraint):
			rejections++
		default:
			t.Errorf("unexpected error class: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one racer should win the unique slot")
	assert.Equal(t, racers-1, rejections)

	n, err := models.Users.Count(orm.Lookups{"username": "contested"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestConcurrency_ReadersRunDuringWrites(t *testing.T) {
	_, models := newBlog(t)
	mustCreateUser(t, models.Users, "seed", "seed@example.com")

	const writers, readers = 4, 4
	errCh := make(chan error, writers+readers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := models.Users.Create(map[string]any{
					"username":      fmt.Sprintf("mix_%d_%d", i, j),
					"email":         fmt.Sprintf("mix%d_%d@example.com", i, j),
					"first_name":    "Mixed",
					"last_name":     "Load",
					"password_hash": "x",
				})
				if err != nil {
					errCh <- err
					return
				}
			}
		}(i)
	}
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := models.Users.Count(orm.Lookups{}); err != nil {
					errCh <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent operation failed: %v", err)
	}
	n, err := models.Users.Count(orm.Lookups{"username__startswith": "mix_"})
	require.NoError(t, err)
	assert.Equal(t, int64(writers*5), n)
}
