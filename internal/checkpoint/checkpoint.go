// Package checkpoint serializes the encoder/head parameter state of a
// trained model to disk and restores it with shape checking.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/driftlab/gradapt/internal/nn"
)

// ParamState is one serialized parameter tensor.
type ParamState struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float32 `json:"data"`
}

// Checkpoint is the on-disk model state, split into encoder and head the
// same way the model is.
type Checkpoint struct {
	Dataset string       `json:"dataset"`
	Method  string       `json:"method"`
	Seed    int64        `json:"seed"`
	Encoder []ParamState `json:"encoder"`
	Head    []ParamState `json:"head"`
}

// Path composes the conventional checkpoint location:
// dir/dataset/method_seed.json.
func Path(dir, dataset, method string, seed int64) string {
	return filepath.Join(dir, dataset, fmt.Sprintf("%s_%d.json", method, seed))
}

// FromModel captures the model's current parameters.
func FromModel(m *nn.Model, dataset, method string, seed int64) *Checkpoint {
	return &Checkpoint{
		Dataset: dataset,
		Method:  method,
		Seed:    seed,
		Encoder: captureParams(m.Encoder.Params()),
		Head:    captureParams(m.Head.Params()),
	}
}

func captureParams(params []*nn.Param) []ParamState {
	out := make([]ParamState, len(params))
	for i, p := range params {
		data := make([]float32, len(p.W.Data))
		copy(data, p.W.Data)
		out[i] = ParamState{Rows: p.W.R, Cols: p.W.C, Data: data}
	}
	return out
}

// ApplyTo restores the checkpointed parameters into a model of the same
// architecture. Any shape mismatch is an error.
func (c *Checkpoint) ApplyTo(m *nn.Model) error {
	if err := restoreParams(m.Encoder.Params(), c.Encoder, "encoder"); err != nil {
		return err
	}
	return restoreParams(m.Head.Params(), c.Head, "head")
}

func restoreParams(params []*nn.Param, states []ParamState, part string) error {
	if len(params) != len(states) {
		return fmt.Errorf("checkpoint: %s has %d params, checkpoint has %d", part, len(params), len(states))
	}
	for i, p := range params {
		s := states[i]
		if s.Rows != p.W.R || s.Cols != p.W.C {
			return fmt.Errorf("checkpoint: %s param %d is %dx%d, checkpoint has %dx%d",
				part, i, p.W.R, p.W.C, s.Rows, s.Cols)
		}
		copy(p.W.Data, s.Data)
	}
	return nil
}

// Save writes the checkpoint, creating parent directories as needed.
func Save(path string, c *Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("checkpoint: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("checkpoint: create file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}
	return nil
}

// Load reads a checkpoint from disk.
func Load(path string) (*Checkpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read: %w", err)
	}
	var c Checkpoint
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("checkpoint: parse: %w", err)
	}
	return &c, nil
}
