package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	ckerrors "trainckpt/pkg/errors"
	"trainckpt/pkg/logger"
)

// Store persists checkpoints.
//
// Error handling conventions:
//   - Missing checkpoints are reported with an error matching errors.ErrNotFound
//   - Undecodable payloads or metadata match errors.ErrCorrupt
//   - Filesystem failures match errors.ErrIO
//
// Readers may run concurrently with a single writer; writers must not run
// concurrently with each other.
type Store interface {
	// Write persists cp and returns its metadata. The checkpoint becomes
	// visible to List and Read only once it is fully durable.
	Write(cp *Checkpoint) (Metadata, error)

	// Read loads a checkpoint with its Metadata field populated
	Read(id string) (*Checkpoint, error)

	// Stat returns a checkpoint's metadata without reading its payload
	Stat(id string) (Metadata, error)

	// Delete removes a checkpoint. Deleting an absent checkpoint is a no-op.
	Delete(id string) error

	// List returns metadata for every complete checkpoint, highest first.
	// Checkpoints whose metadata is unreadable are included with Corrupt set.
	List() ([]Metadata, error)

	// ReadLatest returns the ID held by the latest marker, or "" if unset
	ReadLatest() (string, error)

	// WriteLatest atomically points the latest marker at id
	WriteLatest(id string) error

	// ClearLatest removes the latest marker
	ClearLatest() error
}

// maxListAttempts bounds rescans when checkpoints are pruned mid-listing
const maxListAttempts = 5

// FSStore implements Store on a single directory:
//
//	<dir>/ckpt-e000005-b00000300-20261017T101500.000000000Z.ckpt       payload
//	<dir>/ckpt-e000005-b00000300-20261017T101500.000000000Z.meta.json  metadata
//	<dir>/latest                                                        marker
//
// Every file is written to a hidden temporary file in the same directory,
// synced, then renamed into place, and the directory is synced after the
// rename. The metadata file is written after the payload, so its presence
// means the checkpoint is complete.
type FSStore struct {
	dir    string
	logger logger.Logger
	now    func() time.Time
}

// StoreOption configures an FSStore
type StoreOption func(*FSStore)

// WithStoreLogger sets the logger used for warnings about skipped files
func WithStoreLogger(l logger.Logger) StoreOption {
	return func(s *FSStore) { s.logger = l }
}

// WithClock overrides the time source used for CreatedAt
func WithClock(now func() time.Time) StoreOption {
	return func(s *FSStore) { s.now = now }
}

// NewFSStore creates a filesystem store rooted at dir, creating dir if needed
func NewFSStore(dir string, opts ...StoreOption) (*FSStore, error) {
	if dir == "" {
		return nil, ckerrors.InvalidArgument("open store", "directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, ckerrors.IO("open store", "", fmt.Errorf("failed to create checkpoint directory: %w", err))
	}

	s := &FSStore{
		dir:    dir,
		logger: logger.NewNopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the store root
func (s *FSStore) Dir() string {
	return s.dir
}

func (s *FSStore) payloadPath(stem string) string {
	return filepath.Join(s.dir, stem+payloadExt)
}

func (s *FSStore) metadataPath(stem string) string {
	return filepath.Join(s.dir, stem+metadataExt)
}

// Write implements Store.
func (s *FSStore) Write(cp *Checkpoint) (Metadata, error) {
	if cp == nil {
		return Metadata{}, ckerrors.InvalidArgument("write", "checkpoint cannot be nil")
	}

	createdAt := s.now().UTC()
	stem := checkpointName(cp.Progress.Epoch, cp.Progress.Batch, createdAt)
	// Two saves of the same progress within one clock tick must not collide
	for s.exists(s.metadataPath(stem)) || s.exists(s.payloadPath(stem)) {
		createdAt = createdAt.Add(time.Nanosecond)
		stem = checkpointName(cp.Progress.Epoch, cp.Progress.Batch, createdAt)
	}

	data, err := encodePayload(cp)
	if err != nil {
		return Metadata{}, ckerrors.InvalidArgument("write", "%v", err)
	}

	payloadPath := s.payloadPath(stem)
	if err := writeFileAtomic(payloadPath, data); err != nil {
		return Metadata{}, ckerrors.IO("write", stem, err)
	}

	md := Metadata{
		ID:        stem,
		Epoch:     cp.Progress.Epoch,
		Batch:     cp.Progress.Batch,
		Loss:      cp.Metrics.Loss,
		CreatedAt: createdAt,
		SizeBytes: int64(len(data)),
		Path:      payloadPath,
	}

	meta, err := encodeSidecar(md)
	if err == nil {
		err = writeFileAtomic(s.metadataPath(stem), meta)
	}
	if err != nil {
		// Without metadata the payload is unreachable; do not leave it behind
		os.Remove(payloadPath)
		return Metadata{}, ckerrors.IO("write", stem, err)
	}

	cp.Metadata = md
	s.logger.DebugWithFields("Checkpoint written", logger.Fields{
		"id":    stem,
		"epoch": md.Epoch,
		"batch": md.Batch,
		"bytes": md.SizeBytes,
	})
	return md, nil
}

// Stat implements Store.
func (s *FSStore) Stat(id string) (Metadata, error) {
	stem := stemOf(id)
	if _, _, _, ok := parseName(stem); !ok {
		return Metadata{}, ckerrors.NotFound("stat", id)
	}

	data, err := os.ReadFile(s.metadataPath(stem))
	if errors.Is(err, os.ErrNotExist) {
		return Metadata{}, ckerrors.NotFound("stat", stem)
	}
	if err != nil {
		return Metadata{}, ckerrors.IO("stat", stem, err)
	}

	md, err := decodeSidecar(data)
	if err != nil {
		return Metadata{}, ckerrors.Corrupt("stat", stem, err)
	}
	if md.ID != stem {
		return Metadata{}, ckerrors.Corrupt("stat", stem, fmt.Errorf("metadata names %q", md.ID))
	}
	md.Path = s.payloadPath(stem)
	return md, nil
}

// Read implements Store.
func (s *FSStore) Read(id string) (*Checkpoint, error) {
	md, err := s.Stat(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(md.Path)
	if errors.Is(err, os.ErrNotExist) {
		// Metadata outlived its payload: a concurrent delete is in progress
		return nil, ckerrors.NotFound("read", md.ID)
	}
	if err != nil {
		return nil, ckerrors.IO("read", md.ID, err)
	}

	cp, err := decodePayload(data)
	if err != nil {
		return nil, ckerrors.Corrupt("read", md.ID, err)
	}
	if cp.Progress.Epoch != md.Epoch || cp.Progress.Batch != md.Batch {
		return nil, ckerrors.Corrupt("read", md.ID, fmt.Errorf(
			"payload progress (%d, %d) does not match metadata (%d, %d)",
			cp.Progress.Epoch, cp.Progress.Batch, md.Epoch, md.Batch))
	}

	cp.Metadata = md
	return cp, nil
}

// Delete implements Store.
func (s *FSStore) Delete(id string) error {
	stem := stemOf(id)
	if _, _, _, ok := parseName(stem); !ok {
		return nil
	}

	// Metadata goes first so listings stop showing the checkpoint before
	// its payload disappears
	for _, path := range []string{s.metadataPath(stem), s.payloadPath(stem)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return ckerrors.IO("delete", stem, err)
		}
	}

	s.logger.DebugWithFields("Checkpoint deleted", logger.Fields{"id": stem})
	return nil
}

// List implements Store. Entries whose metadata cannot be decoded are
// returned with Corrupt set so that they still count toward retention and
// surface on load. If a checkpoint disappears while listing, the directory
// is scanned again so that checkpoints written in the meantime are seen.
func (s *FSStore) List() ([]Metadata, error) {
	var (
		infos    []Metadata
		vanished bool
		err      error
	)
	for attempt := 0; attempt < maxListAttempts; attempt++ {
		infos, vanished, err = s.scan()
		if err != nil || !vanished {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	SortDescending(infos)
	return infos, nil
}

// scan reads every sidecar once and reports whether any listed checkpoint
// was gone by the time it was read
func (s *FSStore) scan() ([]Metadata, bool, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, false, ckerrors.IO("list", "", err)
	}

	infos := []Metadata{}
	vanished := false
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, metadataExt) {
			continue
		}
		stem := stemOf(name)
		epoch, batch, createdAt, ok := parseName(stem)
		if !ok {
			continue // not ours
		}

		md, err := s.Stat(stem)
		switch {
		case err == nil:
			infos = append(infos, md)
		case errors.Is(err, ckerrors.ErrNotFound):
			vanished = true
		case errors.Is(err, ckerrors.ErrCorrupt):
			s.logger.WarnWithFields("Checkpoint metadata is corrupt", logger.Fields{
				"file":  name,
				"error": err.Error(),
			})
			infos = append(infos, Metadata{
				ID:        stem,
				Epoch:     epoch,
				Batch:     batch,
				CreatedAt: createdAt,
				Path:      s.payloadPath(stem),
				Corrupt:   true,
			})
		default:
			s.logger.WarnWithFields("Skipping unreadable checkpoint metadata", logger.Fields{
				"file":  name,
				"error": err.Error(),
			})
		}
	}
	return infos, vanished, nil
}

// ReadLatest implements Store.
func (s *FSStore) ReadLatest() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, latestFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", ckerrors.IO("read latest", "", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteLatest implements Store.
func (s *FSStore) WriteLatest(id string) error {
	stem := stemOf(id)
	if err := writeFileAtomic(filepath.Join(s.dir, latestFile), []byte(stem+"\n")); err != nil {
		return ckerrors.IO("write latest", stem, err)
	}
	return nil
}

// ClearLatest implements Store.
func (s *FSStore) ClearLatest() error {
	err := os.Remove(filepath.Join(s.dir, latestFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return ckerrors.IO("clear latest", "", err)
	}
	return nil
}

func (s *FSStore) exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFileAtomic writes data to a hidden temporary file next to path,
// syncs it and renames it over path
func writeFileAtomic(path string, data []byte) error {
	tempPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return syncDir(filepath.Dir(path))
}

// syncDir flushes a directory so that renames within it survive a crash
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil // directories cannot be opened for sync
	}
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open directory for sync: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync directory: %w", err)
	}
	return nil
}
