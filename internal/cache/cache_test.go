package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cpuSnap(util float64) *model.Snapshot {
	return &model.Snapshot{
		Category:    model.CategoryCPU,
		CollectedAt: time.Now(),
		CPU:         &model.CPUInfo{GlobalUtilization: util},
	}
}

func TestPublishBumpsVersion(t *testing.T) {
	c := New(model.Categories())

	_, _, ok := c.Get(model.CategoryCPU)
	assert.False(t, ok, "no snapshot before first publish")
	assert.Equal(t, uint64(0), c.Version(model.CategoryCPU))

	s1, err := c.Publish(cpuSnap(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s1.Version)

	s2, err := c.Publish(cpuSnap(20))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s2.Version)

	got, ver, ok := c.Get(model.CategoryCPU)
	require.True(t, ok)
	assert.Equal(t, uint64(2), ver)
	assert.Equal(t, 20.0, got.CPU.GlobalUtilization)
}

func TestPublishDoesNotMutateInput(t *testing.T) {
	c := New(model.Categories())
	in := cpuSnap(5)
	out, err := c.Publish(in)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), in.Version, "input snapshot stays untouched")
	assert.Equal(t, uint64(1), out.Version)
	assert.Same(t, in.CPU, out.CPU, "payload is shared, not copied")
}

func TestPublishUnknownCategory(t *testing.T) {
	c := New([]model.Category{model.CategoryCPU})
	_, err := c.Publish(&model.Snapshot{Category: model.CategoryGPU})
	require.Error(t, err)
}

func TestWaitNewerReturnsImmediatelyWhenAhead(t *testing.T) {
	c := New(model.Categories())
	_, err := c.Publish(cpuSnap(1))
	require.NoError(t, err)

	snap, ver, err := c.WaitNewer(context.Background(), model.CategoryCPU, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ver)
	assert.Equal(t, snap.Version, ver)
}

func TestWaitNewerBlocksUntilPublish(t *testing.T) {
	c := New(model.Categories())

	got := make(chan uint64, 1)
	go func() {
		_, ver, err := c.WaitNewer(context.Background(), model.CategoryCPU, 0)
		if err == nil {
			got <- ver
		}
	}()

	select {
	case <-got:
		t.Fatal("WaitNewer returned before any publish")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := c.Publish(cpuSnap(1))
	require.NoError(t, err)

	select {
	case ver := <-got:
		assert.Equal(t, uint64(1), ver)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitNewer did not wake on publish")
	}
}

func TestWaitNewerHonorsContext(t *testing.T) {
	c := New(model.Categories())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := c.WaitNewer(ctx, model.CategoryCPU, 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManyWaitersAllWake(t *testing.T) {
	c := New(model.Categories())
	const waiters = 32

	var wg sync.WaitGroup
	versions := make([]uint64, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ver, err := c.WaitNewer(context.Background(), model.CategoryCPU, 0)
			if err == nil {
				versions[i] = ver
			}
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	_, err := c.Publish(cpuSnap(1))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all waiters woke")
	}
	for i, v := range versions {
		assert.Equal(t, uint64(1), v, "waiter %d", i)
	}
}

func TestVersionsStrictlyIncreasingUnderConcurrentReads(t *testing.T) {
	c := New(model.Categories())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var cursor uint64
		for {
			snap, ver, err := c.WaitNewer(ctx, model.CategoryCPU, cursor)
			if err != nil {
				return
			}
			if ver <= cursor {
				t.Errorf("version went backwards: %d after %d", ver, cursor)
				return
			}
			if snap.Version != ver {
				t.Errorf("snapshot version %d != returned version %d", snap.Version, ver)
				return
			}
			cursor = ver
		}
	}()

	for i := 0; i < 100; i++ {
		_, err := c.Publish(cpuSnap(float64(i)))
		require.NoError(t, err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()
}
