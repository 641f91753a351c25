package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	owned, release, err := locker.Acquire(ctx, "comment:123", time.Minute)
	require.NoError(t, err)
	require.True(t, owned)
	require.NotNil(t, release)

	owned2, release2, err := locker.Acquire(ctx, "comment:123", time.Minute)
	require.NoError(t, err)
	assert.False(t, owned2)
	assert.Nil(t, release2)

	release()

	owned3, release3, err := locker.Acquire(ctx, "comment:123", time.Minute)
	require.NoError(t, err)
	assert.True(t, owned3)
	release3()
}

func TestMemoryLocker_DistinctKeysIndependent(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	owned, r1, err := locker.Acquire(ctx, "comment:1", time.Minute)
	require.NoError(t, err)
	require.True(t, owned)
	defer r1()

	owned, r2, err := locker.Acquire(ctx, "comment:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, owned)
	defer r2()
}

func TestMemoryLocker_TTLExpiry(t *testing.T) {
	locker := NewMemoryLocker()
	current := time.Now()
	locker.now = func() time.Time { return current }
	ctx := context.Background()

	owned, _, err := locker.Acquire(ctx, "stuck", time.Minute)
	require.NoError(t, err)
	require.True(t, owned)

	owned, _, err = locker.Acquire(ctx, "stuck", time.Minute)
	require.NoError(t, err)
	assert.False(t, owned)

	current = current.Add(2 * time.Minute)

	owned, release, err := locker.Acquire(ctx, "stuck", time.Minute)
	require.NoError(t, err)
	assert.True(t, owned, "expired lock must be re-acquirable")
	release()
}

func TestMemoryLocker_ConcurrentSingleWinner(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			owned, _, err := locker.Acquire(ctx, "hot", time.Minute)
			require.NoError(t, err)
			if owned {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
