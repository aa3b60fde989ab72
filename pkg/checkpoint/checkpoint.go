package checkpoint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"trainckpt/pkg/state"
)

// FormatVersion is the current on-disk format version.
// Increment when making breaking changes to the payload or sidecar layout.
const FormatVersion = 1

const (
	payloadExt  = ".ckpt"
	metadataExt = ".meta.json"
	latestFile  = "latest"
	namePrefix  = "ckpt-"
	timeLayout  = "20060102T150405.000000000Z"
)

// Progress is the training position a checkpoint was taken at
type Progress struct {
	Epoch int `json:"epoch"`
	Batch int `json:"batch"`
}

// Metrics holds the training metrics recorded with a checkpoint
type Metrics struct {
	Loss  float64   `json:"loss"`
	Extra state.Map `json:"extra,omitempty"`
}

// Checkpoint is the full payload of one saved training state
type Checkpoint struct {
	Progress       Progress         `json:"training_progress"`
	Metrics        Metrics          `json:"metrics"`
	OptimizerState state.Map        `json:"optimizer_state"`
	ModelState     state.ModelState `json:"model_state"`

	// Metadata is filled in by the store on write and read
	Metadata Metadata `json:"-"`
}

// Metadata describes a stored checkpoint without its payload.
// Used for listing and retention without decoding weight tensors.
type Metadata struct {
	ID        string    `json:"id"`
	Epoch     int       `json:"epoch"`
	Batch     int       `json:"batch"`
	Loss      float64   `json:"loss"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`

	// Path is the payload file location; derived from the store root, never persisted
	Path string `json:"-"`

	// Corrupt marks an entry whose metadata file could not be decoded. Only
	// ID, Epoch, Batch, CreatedAt and Path are known, recovered from the
	// file name.
	Corrupt bool `json:"-"`
}

// Compare orders metadata by (Epoch, Batch), then CreatedAt, then ID.
// It returns -1, 0 or +1 like strings.Compare.
func Compare(a, b Metadata) int {
	switch {
	case a.Epoch != b.Epoch:
		return cmpInt(a.Epoch, b.Epoch)
	case a.Batch != b.Batch:
		return cmpInt(a.Batch, b.Batch)
	case !a.CreatedAt.Equal(b.CreatedAt):
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	return 1
}

// checkpointName builds the file stem for a checkpoint. Zero padding keeps
// lexical order equal to (epoch, batch) order for directory listings.
func checkpointName(epoch, batch int, createdAt time.Time) string {
	return fmt.Sprintf("%se%06d-b%08d-%s", namePrefix, epoch, batch, createdAt.UTC().Format(timeLayout))
}

var namePattern = regexp.MustCompile(`^ckpt-e(\d+)-b(\d+)-(\d{8}T\d{6}\.\d{9}Z)$`)

// parseName extracts epoch, batch and creation time from a checkpoint stem
func parseName(name string) (epoch, batch int, createdAt time.Time, ok bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, time.Time{}, false
	}
	epoch, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, time.Time{}, false
	}
	batch, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, time.Time{}, false
	}
	createdAt, err = time.Parse(timeLayout, m[3])
	if err != nil {
		return 0, 0, time.Time{}, false
	}
	return epoch, batch, createdAt, true
}

// stemOf accepts an identifier in any of the forms callers see (stem,
// payload file name, sidecar file name, full path) and returns the stem
func stemOf(id string) string {
	base := id
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, metadataExt)
	base = strings.TrimSuffix(base, payloadExt)
	return base
}
