package objectdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/objectdb/keys"
	"github.com/poiesic/objectdb/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncStore_Operations(t *testing.T) {
	c := newClient(t, newEngine(t), Config{Name: "app", Version: 1, Stores: peopleStores}, WithPoolSize(4))
	ctx := context.Background()
	people := c.AsyncStore("people")
	assert.Equal(t, "people", people.Name())

	id, err := people.Add(ctx, person{Name: "ada", Email: "ada@x"}).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(1), id)

	// an added record is visible once the add's transaction commits, which
	// follows its resolution; update resolves only after its own commit
	_, err = people.Update(ctx, person{ID: 1, Name: "ada lovelace", Email: "ada@x"}).Wait(ctx)
	require.NoError(t, err)

	v, err := people.GetByID(ctx, 1).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada lovelace", decodePerson(t, v).Name)

	v, err = people.GetByIndex(ctx, "email", "ada@x").Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(1), decodePerson(t, v).ID)

	_, err = people.AddWithKey(ctx, person{Name: "x"}, 5).Wait(ctx)
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	_, err = people.UpdateWithKey(ctx, person{Name: "x"}, 5).Wait(ctx)
	assert.ErrorIs(t, err, storage.ErrInvalidKey)

	_, err = people.Delete(ctx, 1).Wait(ctx)
	require.NoError(t, err)

	_, err = people.Clear(ctx).Wait(ctx)
	require.NoError(t, err)
	n, err := people.Count(ctx).Wait(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := people.GetAll(ctx).Wait(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAsyncStore_ConcurrentAdds(t *testing.T) {
	c := newClient(t, newEngine(t), Config{Name: "app", Version: 1, Stores: peopleStores}, WithPoolSize(8))
	ctx := context.Background()
	people := c.AsyncStore("people")

	results := make([]*Result[any], 20)
	for i := range results {
		results[i] = people.Add(ctx, person{Name: "p"})
	}
	seen := make(map[any]bool)
	for _, r := range results {
		id, err := r.Wait(ctx)
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate key %v", id)
		seen[id] = true
	}

	// clear resolves after commit, so every add committed before it counts
	_, err := people.Clear(ctx).Wait(ctx)
	require.NoError(t, err)
	n, err := people.Count(ctx).Wait(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAsyncStore_OpenCursor(t *testing.T) {
	c := seededClient(t)
	ctx := context.Background()

	var mu sync.Mutex
	var names []string
	finished := make(chan struct{})
	r := c.AsyncStore("people").OpenCursorDirection(ctx, func(cur *Cursor) {
		if cur == nil {
			close(finished)
			return
		}
		mu.Lock()
		names = append(names, decodePerson(t, cur.Value).Name)
		mu.Unlock()
		cur.Continue()
	}, keys.UpperBound(2, false), Prev)

	_, err := r.Wait(ctx)
	require.NoError(t, err)
	<-finished

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"grace", "ada"}, names)

	_, err = c.AsyncStore("people").OpenCursor(ctx, nil, keys.Bound(3, 1, false, false)).Wait(ctx)
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestResult(t *testing.T) {
	r := newResult[int]()
	select {
	case <-r.Done():
		t.Fatal("result settled early")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.True(t, r.settle(7, nil))
	assert.False(t, r.settle(8, assert.AnError))
	<-r.Done()

	v, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	f := failedResult[string](assert.AnError)
	_, err = f.Wait(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
