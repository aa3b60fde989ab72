package checkpoint

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/crypto/blake2b"
)

const checksumPrefix = "blake2b-256:"

// envelope is the payload file layout. The body is hashed exactly as
// written so that a truncated or bit-flipped file is reported as corrupt
// instead of being decoded into partial state.
type envelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	Body     json.RawMessage `json:"body"`
}

// sidecar is the metadata file layout
type sidecar struct {
	Version int `json:"version"`
	Metadata
}

func checksum(body []byte) string {
	sum := blake2b.Sum256(body)
	return checksumPrefix + hex.EncodeToString(sum[:])
}

func encodePayload(cp *Checkpoint) ([]byte, error) {
	if math.IsNaN(cp.Metrics.Loss) || math.IsInf(cp.Metrics.Loss, 0) {
		return nil, fmt.Errorf("loss %v is not finite", cp.Metrics.Loss)
	}
	body, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize checkpoint: %w", err)
	}
	return json.Marshal(envelope{
		Version:  FormatVersion,
		Checksum: checksum(body),
		Body:     body,
	})
}

func decodePayload(data []byte) (*Checkpoint, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported format version %d", env.Version)
	}
	if len(env.Body) == 0 {
		return nil, fmt.Errorf("missing body")
	}

	var body bytes.Buffer
	if err := json.Compact(&body, env.Body); err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if got := checksum(body.Bytes()); got != env.Checksum {
		return nil, fmt.Errorf("checksum mismatch: stored %s, computed %s", env.Checksum, got)
	}

	var cp Checkpoint
	if err := json.Unmarshal(body.Bytes(), &cp); err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	return &cp, nil
}

func encodeSidecar(md Metadata) ([]byte, error) {
	return json.MarshalIndent(sidecar{Version: FormatVersion, Metadata: md}, "", "  ")
}

func decodeSidecar(data []byte) (Metadata, error) {
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if sc.Version != FormatVersion {
		return Metadata{}, fmt.Errorf("unsupported metadata version %d", sc.Version)
	}
	return sc.Metadata, nil
}
