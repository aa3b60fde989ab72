package checkpoint

import (
	"errors"
	"fmt"
	"math"
	"time"

	ckerrors "trainckpt/pkg/errors"
	"trainckpt/pkg/logger"
	"trainckpt/pkg/state"
)

// DefaultMaxCheckpoints is the retention limit used when Config leaves it unset
const DefaultMaxCheckpoints = 5

// Config configures a Manager
type Config struct {
	// Directory is the store root. Ignored when WithStore is given.
	Directory string
	// MaxCheckpoints bounds the retained set; zero means DefaultMaxCheckpoints
	MaxCheckpoints int
	// Location interprets timestamps passed to LoadNearest without an offset;
	// nil means local time
	Location *time.Location
}

// Manager coordinates a Store and the retention policy.
//
// Save, Prune and Delete must be called by one writer at a time. List and the
// Load methods may run concurrently with that writer, including from other
// processes sharing the directory.
type Manager struct {
	store          Store
	maxCheckpoints int
	location       *time.Location
	logger         logger.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager's logger
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithStore replaces the filesystem store built from Config.Directory
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// NewManager creates a checkpoint manager
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.MaxCheckpoints < 0 {
		return nil, ckerrors.InvalidArgument("new manager", "max checkpoints must be positive, got %d", cfg.MaxCheckpoints)
	}

	m := &Manager{
		maxCheckpoints: cfg.MaxCheckpoints,
		location:       cfg.Location,
		logger:         logger.NewNopLogger(),
	}
	if m.maxCheckpoints == 0 {
		m.maxCheckpoints = DefaultMaxCheckpoints
	}
	if m.location == nil {
		m.location = time.Local
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		s, err := NewFSStore(cfg.Directory, WithStoreLogger(m.logger))
		if err != nil {
			return nil, err
		}
		m.store = s
	}
	return m, nil
}

// MaxCheckpoints returns the retention limit
func (m *Manager) MaxCheckpoints() int {
	return m.maxCheckpoints
}

// Store returns the underlying store
func (m *Manager) Store() Store {
	return m.store
}

// SaveOption adds optional data to a saved checkpoint
type SaveOption func(*Checkpoint)

// WithExtraMetrics records metrics beyond the loss
func WithExtraMetrics(extra state.Map) SaveOption {
	return func(cp *Checkpoint) { cp.Metrics.Extra = extra }
}

// Save snapshots the model and optimizer state at (epoch, batch), applies
// the retention policy and repoints the latest marker at the highest
// retained checkpoint. The returned metadata describes the checkpoint just
// written, which may itself have been pruned if lower-ordered checkpoints
// filled the retained set.
//
// If the write fails nothing else changes. If pruning partly fails the
// checkpoint stays written, the marker still reflects what is on disk and
// the error is returned.
func (m *Manager) Save(model state.Model, optimizerState state.Map, epoch, batch int, loss float64, opts ...SaveOption) (Metadata, error) {
	switch {
	case model == nil:
		return Metadata{}, ckerrors.InvalidArgument("save", "model cannot be nil")
	case epoch < 0:
		return Metadata{}, ckerrors.InvalidArgument("save", "epoch %d is negative", epoch)
	case batch < 0:
		return Metadata{}, ckerrors.InvalidArgument("save", "batch %d is negative", batch)
	case epoch == math.MaxInt || batch == math.MaxInt:
		return Metadata{}, ckerrors.InvalidArgument("save", "progress (%d, %d) leaves no position to resume at", epoch, batch)
	case math.IsNaN(loss) || math.IsInf(loss, 0):
		return Metadata{}, ckerrors.InvalidArgument("save", "loss %v is not finite", loss)
	}

	modelState, err := model.ExtractState()
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to extract model state: %w", err)
	}

	cp := &Checkpoint{
		Progress:       Progress{Epoch: epoch, Batch: batch},
		Metrics:        Metrics{Loss: loss},
		OptimizerState: optimizerState,
		ModelState:     modelState,
	}
	for _, opt := range opts {
		opt(cp)
	}

	md, err := m.store.Write(cp)
	if err != nil {
		m.logger.WithError(err).ErrorWithFields("Checkpoint save failed", logger.Fields{
			"epoch": epoch,
			"batch": batch,
		})
		return Metadata{}, err
	}

	deleted, err := m.enforceRetention()
	m.logger.InfoWithFields("Checkpoint saved", logger.Fields{
		"id":      md.ID,
		"epoch":   epoch,
		"batch":   batch,
		"loss":    loss,
		"bytes":   md.SizeBytes,
		"deleted": deleted,
	})
	if err != nil {
		return md, fmt.Errorf("checkpoint %s saved but retention failed: %w", md.ID, err)
	}
	return md, nil
}

// enforceRetention deletes checkpoints beyond the limit and rewrites the
// latest marker from what remains
func (m *Manager) enforceRetention() (int, error) {
	all, err := m.store.List()
	if err != nil {
		return 0, err
	}

	var errs []error
	removed := make(map[string]bool)
	for _, md := range Prune(all, m.maxCheckpoints) {
		if err := m.store.Delete(md.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		removed[md.ID] = true
		m.logger.DebugWithFields("Checkpoint pruned", logger.Fields{
			"id":    md.ID,
			"epoch": md.Epoch,
			"batch": md.Batch,
		})
	}

	retained := all[:0:0]
	for _, md := range all {
		if !removed[md.ID] {
			retained = append(retained, md)
		}
	}
	if err := m.refreshLatest(retained); err != nil {
		errs = append(errs, err)
	}

	return len(removed), errors.Join(errs...)
}

// refreshLatest points the marker at the highest retained checkpoint,
// rewriting it only when it changes
func (m *Manager) refreshLatest(retained []Metadata) error {
	top := best(retained)
	if top == nil {
		return m.store.ClearLatest()
	}

	current, err := m.store.ReadLatest()
	if err == nil && current == top.ID {
		return nil
	}
	if err := m.store.WriteLatest(top.ID); err != nil {
		return err
	}
	m.logger.DebugWithFields("Latest marker updated", logger.Fields{
		"id":       top.ID,
		"previous": current,
	})
	return nil
}

// List returns the retained checkpoints, highest (Epoch, Batch) first
func (m *Manager) List() ([]Metadata, error) {
	mds, err := m.store.List()
	if err != nil {
		return nil, err
	}
	SortDescending(mds)
	return mds, nil
}

// Latest returns the metadata of the highest retained checkpoint, or nil if
// none exist. The marker is used when it names a checkpoint that still
// exists; otherwise the directory is scanned. A highest checkpoint whose
// metadata is corrupt is reported as an error matching errors.ErrCorrupt.
func (m *Manager) Latest() (*Metadata, error) {
	id, err := m.store.ReadLatest()
	if err != nil {
		return nil, err
	}
	if id != "" {
		md, err := m.store.Stat(id)
		if err == nil {
			return &md, nil
		}
		if !errors.Is(err, ckerrors.ErrNotFound) {
			return nil, err
		}
		m.logger.WarnWithFields("Latest marker is stale, scanning", logger.Fields{"id": id})
	}

	mds, err := m.store.List()
	if err != nil {
		return nil, err
	}
	top := best(mds)
	if top == nil {
		// A concurrent save may have pruned everything the scan saw; the
		// marker is rewritten only after the new checkpoint is durable
		return m.rereadMarker(id)
	}
	if top.Corrupt {
		return nil, ckerrors.Corrupt("latest", top.ID, errors.New("metadata is unreadable"))
	}
	return top, nil
}

// rereadMarker returns the marker's checkpoint if it moved away from seen
func (m *Manager) rereadMarker(seen string) (*Metadata, error) {
	id, err := m.store.ReadLatest()
	if err != nil || id == "" || id == seen {
		return nil, err
	}
	md, err := m.store.Stat(id)
	if errors.Is(err, ckerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &md, nil
}

// maxLoadAttempts bounds how often a load restarts after the checkpoint it
// picked was pruned by a concurrent save
const maxLoadAttempts = 5

// Load returns the highest retained checkpoint, or nil when there is none
func (m *Manager) Load() (*Checkpoint, error) {
	var err error
	for attempt := 0; attempt < maxLoadAttempts; attempt++ {
		var md *Metadata
		md, err = m.Latest()
		if err != nil || md == nil {
			return nil, err
		}

		var cp *Checkpoint
		cp, err = m.store.Read(md.ID)
		if err == nil {
			m.logLoaded(cp, "latest")
			return cp, nil
		}
		if !errors.Is(err, ckerrors.ErrNotFound) {
			return nil, err
		}
	}
	return nil, err
}

// LoadID returns the checkpoint with the given identifier. Unlike the other
// Load methods, a missing checkpoint is an error matching errors.ErrNotFound.
func (m *Manager) LoadID(id string) (*Checkpoint, error) {
	cp, err := m.store.Read(id)
	if err != nil {
		return nil, err
	}
	m.logLoaded(cp, "id")
	return cp, nil
}

// LoadEpoch returns the checkpoint with the highest batch within epoch, or
// nil when no retained checkpoint belongs to that epoch
func (m *Manager) LoadEpoch(epoch int) (*Checkpoint, error) {
	return m.loadPicked("epoch", func(mds []Metadata) *Metadata {
		var inEpoch []Metadata
		for _, md := range mds {
			if md.Epoch == epoch {
				inEpoch = append(inEpoch, md)
			}
		}
		top := best(inEpoch)
		if top == nil {
			m.logger.DebugWithFields("No checkpoint for epoch", logger.Fields{"epoch": epoch})
		}
		return top
	})
}

// LoadNearest returns the checkpoint created closest to the ISO-8601
// timestamp ts. A timestamp that cannot be parsed yields nil rather than an
// error. Equidistant checkpoints resolve to the earlier one.
func (m *Manager) LoadNearest(ts string) (*Checkpoint, error) {
	t, ok := ParseTimestamp(ts, m.location)
	if !ok {
		m.logger.WarnWithFields("Ignoring unparseable timestamp", logger.Fields{"timestamp": ts})
		return nil, nil
	}
	return m.loadPicked("timestamp", func(mds []Metadata) *Metadata {
		return nearest(mds, t)
	})
}

// loadPicked lists the store, reads the entry pick chooses and starts over
// if that entry was pruned in between
func (m *Manager) loadPicked(mode string, pick func([]Metadata) *Metadata) (*Checkpoint, error) {
	var err error
	for attempt := 0; attempt < maxLoadAttempts; attempt++ {
		var mds []Metadata
		mds, err = m.store.List()
		if err != nil {
			return nil, err
		}
		md := pick(mds)
		if md == nil {
			return nil, nil
		}

		var cp *Checkpoint
		cp, err = m.store.Read(md.ID)
		if err == nil {
			m.logLoaded(cp, mode)
			return cp, nil
		}
		if !errors.Is(err, ckerrors.ErrNotFound) {
			return nil, err
		}
	}
	return nil, err
}

// Prune applies the retention policy on demand and reports how many
// checkpoints were deleted
func (m *Manager) Prune() (int, error) {
	deleted, err := m.enforceRetention()
	if err != nil {
		return deleted, err
	}
	m.logger.InfoWithFields("Retention applied", logger.Fields{
		"deleted": deleted,
		"max":     m.maxCheckpoints,
	})
	return deleted, nil
}

// Delete removes a checkpoint and repoints the latest marker. Deleting an
// absent checkpoint is not an error.
func (m *Manager) Delete(id string) error {
	if err := m.store.Delete(id); err != nil {
		return err
	}
	mds, err := m.store.List()
	if err != nil {
		return err
	}
	if err := m.refreshLatest(mds); err != nil {
		return err
	}
	m.logger.InfoWithFields("Checkpoint deleted", logger.Fields{"id": id})
	return nil
}

func (m *Manager) logLoaded(cp *Checkpoint, mode string) {
	m.logger.InfoWithFields("Checkpoint loaded", logger.Fields{
		"id":    cp.Metadata.ID,
		"epoch": cp.Progress.Epoch,
		"batch": cp.Progress.Batch,
		"mode":  mode,
	})
}
