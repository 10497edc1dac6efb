package data

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/driftlab/gradapt/internal/tensor"
)

// MoonsConfig describes a synthetic rotating two-moons sequence. Domain 0 is
// the unrotated source; each following domain rotates the point cloud by an
// equal share of TotalRotation degrees, modelling a gradual shift.
type MoonsConfig struct {
	Domains       int     `yaml:"domains"`
	PerDomain     int     `yaml:"per_domain"`
	Noise         float64 `yaml:"noise"`
	TotalRotation float64 `yaml:"total_rotation"`
	Seed          int64   `yaml:"seed"`
}

// DefaultMoonsConfig returns the sizes used by the bundled experiments.
func DefaultMoonsConfig() MoonsConfig {
	return MoonsConfig{
		Domains:       10,
		PerDomain:     2000,
		Noise:         0.1,
		TotalRotation: 90,
		Seed:          1,
	}
}

// RotatingMoons generates the domain sequence. Labels are 0 for the upper
// moon and 1 for the lower moon. Global ids are assigned contiguously.
func RotatingMoons(cfg MoonsConfig) ([]*Domain, error) {
	if cfg.Domains < 2 {
		return nil, fmt.Errorf("moons: need at least 2 domains, got %d", cfg.Domains)
	}
	if cfg.PerDomain < 2 {
		return nil, fmt.Errorf("moons: need at least 2 samples per domain, got %d", cfg.PerDomain)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	step := cfg.TotalRotation / float64(cfg.Domains-1)

	domains := make([]*Domain, cfg.Domains)
	for d := 0; d < cfg.Domains; d++ {
		angle := float64(d) * step * math.Pi / 180
		sin, cos := math.Sin(angle), math.Cos(angle)

		dom := &Domain{
			Name: fmt.Sprintf("moons-%d", d),
			X:    tensor.NewMat(cfg.PerDomain, 2),
			Y:    make([]int, cfg.PerDomain),
		}
		for i := 0; i < cfg.PerDomain; i++ {
			// Alternate between the two moons so every batch size sees
			// both classes.
			label := i % 2
			t := rng.Float64() * math.Pi
			var x, y float64
			if label == 0 {
				x = math.Cos(t)
				y = math.Sin(t)
			} else {
				x = 1 - math.Cos(t)
				y = 0.5 - math.Sin(t)
			}
			x += rng.NormFloat64() * cfg.Noise
			y += rng.NormFloat64() * cfg.Noise

			row := dom.X.Row(i)
			row[0] = float32(x*cos - y*sin)
			row[1] = float32(x*sin + y*cos)
			dom.Y[i] = label
		}
		domains[d] = dom
	}
	AssignIDs(domains)
	return domains, nil
}
