// Package runlog writes per-run training metrics under a directory tree
// keyed by dataset, domain index and run name. Each hyperparameter run gets
// its own scoped writer which is explicitly closed when the run ends; there
// is no ambient global writer.
package runlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Root anchors all run directories below one base log directory.
type Root struct {
	dir string
}

// NewRoot creates (if needed) the base log directory.
func NewRoot(dir string) (*Root, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("runlog: create root: %w", err)
	}
	return &Root{dir: dir}, nil
}

// Dir returns the base directory.
func (r *Root) Dir() string { return r.dir }

// Meta identifies a run. It is written as run.json inside the run
// directory and is what the results API lists.
type Meta struct {
	ID      string    `json:"id"`
	Dataset string    `json:"dataset"`
	Domain  int       `json:"domain"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

// Record is one logged scalar.
type Record struct {
	Tag   string  `json:"tag"`
	Step  int     `json:"step"`
	Value float64 `json:"value"`
}

// Run is a scoped metric writer for one hyperparameter run. A nil *Run is
// valid and discards everything, so callers that do not want logs can pass
// nil without guarding every call site.
type Run struct {
	meta Meta
	f    *os.File
	w    *bufio.Writer
	enc  *json.Encoder
	err  error
}

// NewRun creates the run directory logdir/dataset/domain/name, writes its
// meta file and opens metrics.jsonl for appending scalars.
func (r *Root) NewRun(dataset string, domain int, name string) (*Run, error) {
	if r == nil {
		return nil, nil
	}
	dir := filepath.Join(r.dir, dataset, strconv.Itoa(domain), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("runlog: create run dir: %w", err)
	}
	meta := Meta{
		ID:      uuid.NewString(),
		Dataset: dataset,
		Domain:  domain,
		Name:    name,
		Created: time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("runlog: marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run.json"), raw, 0o644); err != nil {
		return nil, fmt.Errorf("runlog: write meta: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "metrics.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("runlog: create metrics file: %w", err)
	}
	w := bufio.NewWriter(f)
	return &Run{meta: meta, f: f, w: w, enc: json.NewEncoder(w)}, nil
}

// ID returns the run's unique id, or "" for a nil run.
func (r *Run) ID() string {
	if r == nil {
		return ""
	}
	return r.meta.ID
}

// Scalar appends one metric record. Errors are sticky and reported by
// Close so training loops do not have to check every append.
func (r *Run) Scalar(tag string, step int, value float64) {
	if r == nil || r.err != nil {
		return
	}
	r.err = r.enc.Encode(Record{Tag: tag, Step: step, Value: value})
}

// Close flushes and closes the metrics file, returning the first error
// encountered during the run's lifetime.
func (r *Run) Close() error {
	if r == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil && r.err == nil {
		r.err = err
	}
	if err := r.f.Close(); err != nil && r.err == nil {
		r.err = err
	}
	return r.err
}

// ListRuns walks the root directory and returns every run meta found.
func (r *Root) ListRuns() ([]Meta, error) {
	var metas []Meta
	err := filepath.WalkDir(r.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "run.json" {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var meta Meta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("runlog: parse %s: %w", path, err)
		}
		metas = append(metas, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metas, nil
}

// ReadRecords loads the metric records of the run identified by id.
func (r *Root) ReadRecords(id string) ([]Record, error) {
	metas, err := r.ListRuns()
	if err != nil {
		return nil, err
	}
	for _, meta := range metas {
		if meta.ID != id {
			continue
		}
		path := filepath.Join(r.dir, meta.Dataset, strconv.Itoa(meta.Domain), meta.Name, "metrics.jsonl")
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("runlog: open metrics: %w", err)
		}
		defer f.Close()
		var records []Record
		dec := json.NewDecoder(f)
		for dec.More() {
			var rec Record
			if err := dec.Decode(&rec); err != nil {
				return nil, fmt.Errorf("runlog: decode metrics: %w", err)
			}
			records = append(records, rec)
		}
		return records, nil
	}
	return nil, fmt.Errorf("runlog: run %s not found", id)
}
