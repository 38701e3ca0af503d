package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestLocal_Serialises(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op

	again, err := l.Lock(context.Background())
	require.NoError(t, err)
	again()
}

func TestLocal_WaiterProceedsAfterUnlock(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background())
	require.NoError(t, err)

	var mu sync.Mutex
	acquired := false
	go func() {
		next, err := l.Lock(context.Background())
		if err != nil {
			return
		}
		defer next()
		mu.Lock()
		acquired = true
		mu.Unlock()
	}()

	time.Sleep(5 * time.Millisecond)
	mu.Lock()
	assert.False(t, acquired)
	mu.Unlock()

	unlock()
	testutil.RequireEventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return acquired
	}, time.Second, time.Millisecond, "waiter never obtained the lock")
}

func TestRedis_Lock(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	defer container.Terminate(ctx)

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	a := NewRedis(rdb, "kitchen:test", time.Second, 10*time.Millisecond, nil)
	b := NewRedis(rdb, "kitchen:test", time.Second, 10*time.Millisecond, nil)

	unlock, err := a.Lock(ctx)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = b.Lock(waitCtx)
	require.Error(t, err)

	unlock()

	unlockB, err := b.Lock(ctx)
	require.NoError(t, err)
	unlockB()
}
