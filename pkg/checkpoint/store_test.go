package checkpoint

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ckerrors "trainckpt/pkg/errors"
	"trainckpt/pkg/logger"
	"trainckpt/pkg/state"
)

func sampleCheckpoint(epoch, batch int) *Checkpoint {
	return &Checkpoint{
		Progress: Progress{Epoch: epoch, Batch: batch},
		Metrics:  Metrics{Loss: 0.25},
		OptimizerState: state.Map{
			"iterations": state.Int(int64(epoch*1000 + batch)),
			"lr":         state.Float(1e-3),
		},
		ModelState: state.ModelState{
			Kind:    "fake/v1",
			Weights: map[string][]float64{"w": {1, 2, 3}},
		},
	}
}

func newTestStore(t *testing.T, opts ...StoreOption) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir(), append([]StoreOption{WithClock(newStepClock().Now)}, opts...)...)
	require.NoError(t, err)
	return store
}

func TestNewFSStoreCreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "checkpoints")

	store, err := NewFSStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, store.Dir())
}

func TestNewFSStoreRejectsEmptyDir(t *testing.T) {
	_, err := NewFSStore("")
	assert.True(t, errors.Is(err, ckerrors.ErrInvalidArgument))
}

func TestStoreWriteRead(t *testing.T) {
	store := newTestStore(t)
	in := sampleCheckpoint(5, 300)

	md, err := store.Write(in)
	require.NoError(t, err)

	assert.Equal(t, "ckpt-e000005-b00000300-20261017T090000.000000000Z", md.ID)
	assert.Equal(t, 5, md.Epoch)
	assert.Equal(t, 300, md.Batch)
	assert.Equal(t, 0.25, md.Loss)
	assert.Equal(t, filepath.Join(store.Dir(), md.ID+".ckpt"), md.Path)
	info, err := os.Stat(md.Path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), md.SizeBytes)

	out, err := store.Read(md.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Progress, out.Progress)
	assert.Equal(t, in.Metrics.Loss, out.Metrics.Loss)
	assert.True(t, in.OptimizerState.Equal(out.OptimizerState))
	assert.True(t, in.ModelState.ApproxEqual(out.ModelState, 0))
	assert.Equal(t, md.ID, out.Metadata.ID)
	assert.True(t, md.CreatedAt.Equal(out.Metadata.CreatedAt))
}

func TestStoreReadAcceptsPathForms(t *testing.T) {
	store := newTestStore(t)
	md, err := store.Write(sampleCheckpoint(1, 2))
	require.NoError(t, err)

	for _, id := range []string{md.ID, md.Path, md.ID + ".ckpt", md.ID + ".meta.json"} {
		t.Run(id, func(t *testing.T) {
			cp, err := store.Read(id)
			require.NoError(t, err)
			assert.Equal(t, md.ID, cp.Metadata.ID)
		})
	}
}

func TestStoreWriteSameProgressTwice(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newTestStore(t, WithClock(func() time.Time { return fixed }))

	first, err := store.Write(sampleCheckpoint(3, 3))
	require.NoError(t, err)
	second, err := store.Write(sampleCheckpoint(3, 3))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	mds, err := store.List()
	require.NoError(t, err)
	require.Len(t, mds, 2)
	assert.Equal(t, second.ID, mds[0].ID)
}

func TestStoreWriteRejectsNonFiniteLoss(t *testing.T) {
	store := newTestStore(t)
	cp := sampleCheckpoint(0, 0)
	cp.Metrics.Loss = math.NaN()

	_, err := store.Write(cp)
	assert.True(t, errors.Is(err, ckerrors.ErrInvalidArgument))

	mds, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, mds)
}

func TestStoreReadMissing(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{
		"ckpt-e000001-b00000001-20260101T000000.000000000Z",
		"not-a-checkpoint",
		"",
	} {
		_, err := store.Read(id)
		assert.True(t, errors.Is(err, ckerrors.ErrNotFound), "id %q: %v", id, err)
	}
}

func TestStoreReadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(t *testing.T, md Metadata)
	}{
		{"truncated payload", func(t *testing.T, md Metadata) {
			data, err := os.ReadFile(md.Path)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(md.Path, data[:len(data)/2], 0644))
		}},
		{"flipped weight", func(t *testing.T, md Metadata) {
			data, err := os.ReadFile(md.Path)
			require.NoError(t, err)
			tampered := strings.Replace(string(data), `"value":[1,2,3]`, `"value":[1,2,4]`, 1)
			require.NotEqual(t, string(data), tampered)
			require.NoError(t, os.WriteFile(md.Path, []byte(tampered), 0644))
		}},
		{"garbage payload", func(t *testing.T, md Metadata) {
			require.NoError(t, os.WriteFile(md.Path, []byte("\x00\x01 not json"), 0644))
		}},
		{"garbage metadata", func(t *testing.T, md Metadata) {
			require.NoError(t, os.WriteFile(strings.TrimSuffix(md.Path, ".ckpt")+".meta.json", []byte("{"), 0644))
		}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := newTestStore(t)
			md, err := store.Write(sampleCheckpoint(2, 9))
			require.NoError(t, err)

			test.corrupt(t, md)

			cp, err := store.Read(md.ID)
			assert.Nil(t, cp)
			assert.True(t, errors.Is(err, ckerrors.ErrCorrupt), "got %v", err)
			assert.False(t, errors.Is(err, ckerrors.ErrNotFound))
		})
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	md, err := store.Write(sampleCheckpoint(1, 1))
	require.NoError(t, err)

	require.NoError(t, store.Delete(md.ID))
	require.NoError(t, store.Delete(md.ID))
	require.NoError(t, store.Delete("never-existed"))

	_, err = os.Stat(md.Path)
	assert.True(t, os.IsNotExist(err))
	_, err = store.Read(md.ID)
	assert.True(t, errors.Is(err, ckerrors.ErrNotFound))
}

func TestStoreListFlagsCorruptAndSkipsForeignFiles(t *testing.T) {
	tl := logger.NewTestLogger()
	store := newTestStore(t, WithStoreLogger(tl))

	good, err := store.Write(sampleCheckpoint(4, 0))
	require.NoError(t, err)
	broken, err := store.Write(sampleCheckpoint(5, 0))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), broken.ID+".meta.json"), []byte("nope"), 0644))

	// Orphaned payload, stray temp file, unrelated files and a directory
	orphan := "ckpt-e000009-b00000000-20260101T000000.000000000Z.ckpt"
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), orphan), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), ".x.meta.json.123.tmp"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.meta.json"), []byte("{}"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), "sub.meta.json"), 0755))

	mds, err := store.List()
	require.NoError(t, err)
	require.Len(t, mds, 2)

	assert.Equal(t, broken.ID, mds[0].ID)
	assert.True(t, mds[0].Corrupt)
	assert.Equal(t, [2]int{5, 0}, [2]int{mds[0].Epoch, mds[0].Batch})
	assert.True(t, broken.CreatedAt.Equal(mds[0].CreatedAt))
	assert.Equal(t, broken.Path, mds[0].Path)

	assert.Equal(t, good.ID, mds[1].ID)
	assert.False(t, mds[1].Corrupt)

	warnings := tl.GetMessagesByLevel("WARN")
	require.Len(t, warnings, 1)
	assert.Equal(t, "Checkpoint metadata is corrupt", warnings[0].Message)
	assert.Equal(t, broken.ID+".meta.json", warnings[0].Fields["file"])
}

func TestStoreListOrder(t *testing.T) {
	store := newTestStore(t)
	for _, p := range [][2]int{{1, 5}, {10, 0}, {1, 50}, {3, 999}} {
		_, err := store.Write(sampleCheckpoint(p[0], p[1]))
		require.NoError(t, err)
	}

	mds, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{10, 0}, {3, 999}, {1, 50}, {1, 5}}, progressOf(mds))
}

func TestStoreLatestMarker(t *testing.T) {
	store := newTestStore(t)

	id, err := store.ReadLatest()
	require.NoError(t, err)
	assert.Empty(t, id)

	md, err := store.Write(sampleCheckpoint(1, 1))
	require.NoError(t, err)
	require.NoError(t, store.WriteLatest(md.Path))

	id, err = store.ReadLatest()
	require.NoError(t, err)
	assert.Equal(t, md.ID, id)

	require.NoError(t, store.ClearLatest())
	require.NoError(t, store.ClearLatest())
	id, err = store.ReadLatest()
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 3; i++ {
		md, err := store.Write(sampleCheckpoint(i, 0))
		require.NoError(t, err)
		require.NoError(t, store.WriteLatest(md.ID))
	}

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasSuffix(entry.Name(), ".tmp"), "leftover %s", entry.Name())
	}
	assert.Len(t, entries, 7)
}

func TestStoreWriteFailureIsIOError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	store := newTestStore(t)
	require.NoError(t, os.Chmod(store.Dir(), 0555))
	t.Cleanup(func() { os.Chmod(store.Dir(), 0755) })

	_, err := store.Write(sampleCheckpoint(0, 0))
	assert.True(t, errors.Is(err, ckerrors.ErrIO), "got %v", err)
}

func TestParseName(t *testing.T) {
	created := time.Date(2026, 10, 17, 10, 15, 0, 123, time.UTC)
	name := checkpointName(7, 42, created)

	epoch, batch, at, ok := parseName(name)
	require.True(t, ok)
	assert.Equal(t, 7, epoch)
	assert.Equal(t, 42, batch)
	assert.True(t, created.Equal(at))

	_, _, _, ok = parseName("ckpt-e7-b42")
	assert.False(t, ok)
}

func TestCheckpointNamesSortLexically(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []string{
		checkpointName(2, 10, created),
		checkpointName(10, 0, created),
		checkpointName(2, 9, created),
	}

	assert.Less(t, names[2], names[0])
	assert.Less(t, names[0], names[1])
}

func TestWriteFileAtomicReplacesAndSyncs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest")

	require.NoError(t, writeFileAtomic(path, []byte("first\n")))
	require.NoError(t, writeFileAtomic(path, []byte("second\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSyncDir(t *testing.T) {
	assert.NoError(t, syncDir(t.TempDir()))
	if runtime.GOOS != "windows" {
		assert.Error(t, syncDir(filepath.Join(t.TempDir(), "missing")))
	}
}
