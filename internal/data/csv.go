package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/driftlab/gradapt/internal/tensor"
)

// CSVConfig describes a tabular dataset whose gradual shift is induced by
// sorting on one feature and slicing the sorted order into equal domains
// (the covertype recipe: sort by distance-to-water, nearest slice is the
// labeled source).
type CSVConfig struct {
	Path     string `yaml:"path"`
	LabelCol int    `yaml:"label_col"` // file column of the label; -1 means last column
	// DriftCol indexes the feature vector after the label column has been
	// removed, not the raw file column. With a non-last label column the
	// file columns to its right shift down by one.
	DriftCol int  `yaml:"drift_col"`
	Domains  int  `yaml:"domains"`
	HasHead  bool `yaml:"header"`
}

// LoadCSVDomains reads the file, sorts rows by the drift feature and slices
// them into cfg.Domains equal domains. The drift column stays part of the
// feature vector; labels must be non-negative integers.
func LoadCSVDomains(cfg CSVConfig) ([]*Domain, error) {
	if cfg.Domains < 2 {
		return nil, fmt.Errorf("csv: need at least 2 domains, got %d", cfg.Domains)
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("csv: open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	if cfg.HasHead {
		if _, err := r.Read(); err != nil {
			return nil, fmt.Errorf("csv: read header: %w", err)
		}
	}

	var (
		rows   [][]float32
		labels []int
	)
	for row := 1; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: row %d: %w", row, err)
		}
		labelCol := cfg.LabelCol
		if labelCol < 0 {
			labelCol = len(rec) - 1
		}
		if labelCol >= len(rec) || cfg.DriftCol >= len(rec)-1 {
			return nil, fmt.Errorf("csv: row has %d columns, label col %d drift col %d", len(rec), labelCol, cfg.DriftCol)
		}
		feats := make([]float32, 0, len(rec)-1)
		var label int
		for i, field := range rec {
			if i == labelCol {
				label, err = strconv.Atoi(field)
				if err != nil || label < 0 {
					return nil, fmt.Errorf("csv: bad label %q: %v", field, err)
				}
				continue
			}
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, fmt.Errorf("csv: bad value %q: %w", field, err)
			}
			feats = append(feats, float32(v))
		}
		rows = append(rows, feats)
		labels = append(labels, label)
	}
	if len(rows) < cfg.Domains {
		return nil, fmt.Errorf("csv: %d rows cannot fill %d domains", len(rows), cfg.Domains)
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return rows[order[i]][cfg.DriftCol] < rows[order[j]][cfg.DriftCol]
	})

	dim := len(rows[0])
	per := len(rows) / cfg.Domains
	domains := make([]*Domain, cfg.Domains)
	for d := 0; d < cfg.Domains; d++ {
		start := d * per
		end := start + per
		if d == cfg.Domains-1 {
			end = len(rows)
		}
		dom := &Domain{
			Name: fmt.Sprintf("csv-%d", d),
			X:    tensor.NewMat(end-start, dim),
			Y:    make([]int, end-start),
		}
		for i, src := range order[start:end] {
			copy(dom.X.Row(i), rows[src])
			dom.Y[i] = labels[src]
		}
		domains[d] = dom
	}
	AssignIDs(domains)
	return domains, nil
}
