package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"mxbmm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) (*domain.Inventory, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Inventory{ScannedAt: time.Now()}, nil
}

// sequenceRefresher hands out inventories with preset generations, in order
type sequenceRefresher struct {
	generations []uint64
}

func (r *sequenceRefresher) Refresh(ctx context.Context) (*domain.Inventory, error) {
	g := r.generations[0]
	r.generations = r.generations[1:]
	return &domain.Inventory{ScannedAt: time.Now(), Generation: g}, nil
}

const testDebounce = 100 * time.Millisecond

func startCoordinator(t *testing.T, root string, r Refresher) *Coordinator {
	t.Helper()
	c := New(root, r, Options{Debounce: testDebounce})
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unwatched", Unwatched.String())
	assert.Equal(t, "watching", Watching.String())
	assert.Equal(t, "degraded", Degraded.String())
}

func TestCoordinator_Start(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bikes", "mybike", "deep"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bikes", domain.StagingPrefix+"x"), 0755))

	c := New(root, &countingRefresher{}, Options{Debounce: testDebounce})
	assert.Equal(t, Unwatched, c.State())

	require.NoError(t, c.Start())
	defer c.Close()

	assert.Equal(t, Watching, c.State())
	assert.NoError(t, c.Err())

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.True(t, c.paths[root])
	assert.True(t, c.paths[filepath.Join(root, "bikes", "mybike", "deep")])
	assert.False(t, c.paths[filepath.Join(root, "bikes", domain.StagingPrefix+"x")])
}

func TestCoordinator_BurstTriggersOneScan(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bikes"), 0755))

	r := &countingRefresher{}
	c := startCoordinator(t, root, r)

	for i := range 5 {
		name := filepath.Join(root, "bikes", string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0644))
	}

	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(3 * testDebounce)
	assert.Equal(t, int32(1), r.calls.Load())

	select {
	case u := <-c.Changes():
		require.NoError(t, u.Err)
		assert.NotNil(t, u.Inventory)
		assert.False(t, u.Manual)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
}

func TestCoordinator_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	r := &countingRefresher{}
	c := startCoordinator(t, root, r)

	dir := filepath.Join(root, "tracks", "newtrack")
	require.NoError(t, os.MkdirAll(dir, 0755))

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.paths[dir]
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	before := r.calls.Load()
	time.Sleep(3 * testDebounce)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "track.trk"), []byte("x"), 0644))
	assert.Eventually(t, func() bool { return r.calls.Load() > before }, 2*time.Second, 10*time.Millisecond)
}

func TestCoordinator_IgnoresStaging(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bikes"), 0755))

	r := &countingRefresher{}
	startCoordinator(t, root, r)

	staging := filepath.Join(root, "bikes", domain.StagingPrefix+"abc")
	require.NoError(t, os.Mkdir(staging, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "a.txt"), []byte("x"), 0644))

	time.Sleep(4 * testDebounce)
	assert.Equal(t, int32(0), r.calls.Load())

	// The rename into place is what gets noticed
	require.NoError(t, os.Rename(staging, filepath.Join(root, "bikes", "mybike")))
	assert.Eventually(t, func() bool { return r.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCoordinator_DegradedWhenRootMissing(t *testing.T) {
	r := &countingRefresher{}
	c := New(filepath.Join(t.TempDir(), "missing"), r, Options{Debounce: testDebounce})
	defer c.Close()

	err := c.Start()
	require.Error(t, err)

	var watchErr *domain.WatchError
	require.ErrorAs(t, err, &watchErr)
	assert.ErrorIs(t, err, domain.ErrWatchSetupFailed)
	assert.Equal(t, Degraded, c.State())
	assert.Equal(t, err, c.Err())

	// Manual refresh is always accepted
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.calls.Load())

	u := <-c.Changes()
	assert.True(t, u.Manual)
}

func TestCoordinator_RefreshError(t *testing.T) {
	r := &countingRefresher{err: domain.NewScanError(domain.ErrRootUnreadable, "/x", errors.New("boom"))}
	c := New(t.TempDir(), r, Options{})
	defer c.Close()

	_, err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrRootUnreadable)

	u := <-c.Changes()
	assert.ErrorIs(t, u.Err, domain.ErrRootUnreadable)
}

func TestCoordinator_ChangesKeepsLatest(t *testing.T) {
	r := &countingRefresher{}
	c := New(t.TempDir(), r, Options{})
	defer c.Close()

	first, err := c.Refresh(context.Background())
	require.NoError(t, err)
	second, err := c.Refresh(context.Background())
	require.NoError(t, err)

	u := <-c.Changes()
	assert.Same(t, second, u.Inventory)
	assert.NotSame(t, first, u.Inventory)

	select {
	case <-c.Changes():
		t.Fatal("stale update kept")
	default:
	}
}

func TestCoordinator_DropsOlderGenerations(t *testing.T) {
	c := New(t.TempDir(), &sequenceRefresher{generations: []uint64{2, 1, 3}}, Options{})
	defer c.Close()
	ctx := context.Background()

	_, err := c.Refresh(ctx)
	require.NoError(t, err)
	u := <-c.Changes()
	assert.Equal(t, uint64(2), u.Inventory.Generation)

	// A scan that finished late is not published
	_, err = c.Refresh(ctx)
	require.NoError(t, err)
	select {
	case u := <-c.Changes():
		t.Fatalf("stale generation %d published", u.Inventory.Generation)
	default:
	}

	_, err = c.Refresh(ctx)
	require.NoError(t, err)
	u = <-c.Changes()
	assert.Equal(t, uint64(3), u.Inventory.Generation)
}

func TestCoordinator_CloseStopsScans(t *testing.T) {
	root := t.TempDir()
	r := &countingRefresher{}
	c := New(root, r, Options{Debounce: testDebounce})
	require.NoError(t, c.Start())

	require.NoError(t, os.WriteFile(filepath.Join(root, "a"), []byte("x"), 0644))
	require.NoError(t, c.Close())
	assert.Equal(t, Unwatched, c.State())

	time.Sleep(3 * testDebounce)
	assert.LessOrEqual(t, r.calls.Load(), int32(1))
	assert.NoError(t, c.Close())
}
