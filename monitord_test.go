package monitord

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacadeEndToEnd(t *testing.T) {
	cfg := DefaultConfig()
	// keep the smoke test light: memory only, tight cadence
	cfg.Collectors.System.Enabled = false
	cfg.Collectors.CPU.Enabled = false
	cfg.Collectors.GPU.Enabled = false
	cfg.Collectors.Network.Enabled = false
	cfg.Collectors.Storage.Enabled = false
	cfg.Collectors.Process.Enabled = false
	cfg.Collectors.Memory.CollectionIntervalMs = 50

	mon := New(cfg, nil)
	require.NoError(t, mon.Start(context.Background()))
	defer mon.Shutdown(2 * time.Second)

	sink := NewChanSink(8)
	ids, err := mon.Subscribe(SubscribeRequest{
		Category:   "memory",
		IntervalMs: 50,
		Sink:       sink,
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	select {
	case snap := <-sink.C():
		require.NotNil(t, snap.Memory)
		assert.Greater(t, snap.Memory.TotalBytes, uint64(0))
		assert.Equal(t, uint64(1), snap.Version)
	case <-time.After(5 * time.Second):
		t.Fatal("no memory snapshot delivered")
	}

	list := mon.ListSubscriptions()
	require.Len(t, list, 1)
	assert.Equal(t, ids[0], list[0].ID)

	mon.Unsubscribe(ids[0])
	assert.Empty(t, mon.ListSubscriptions())
}

func TestFacadeOneShotComposite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Collectors.GPU.Enabled = false // avoid probing vendor tools in CI
	cfg.Collectors.Process.Enabled = false

	mon := New(cfg, nil)
	snap := mon.GetSystemSnapshot(context.Background())
	require.NotNil(t, snap)
	assert.NotNil(t, snap.Memory, "memory reading should be available on any host")
	assert.Nil(t, snap.GPUs, "disabled category stays absent")
}
