package scoring

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// InapplicablePolicy decides what happens to the weight of a dimension
// (mandatory or extras) that had no applicable check.
type InapplicablePolicy string

const (
	// PolicyRenormalize drops the weight from the denominator.
	PolicyRenormalize InapplicablePolicy = "renormalize"
	// PolicyPenalize keeps the weight and scores the dimension as 0.
	PolicyPenalize InapplicablePolicy = "penalize"
)

// Weights are the relative importance of each score dimension. The value
// is copied into the Scorer and never changes afterwards.
type Weights struct {
	Proximity    float64            `yaml:"proximity"`
	Price        float64            `yaml:"price"`
	Mandatory    float64            `yaml:"mandatory"`
	Extras       float64            `yaml:"extras"`
	Inapplicable InapplicablePolicy `yaml:"inapplicable"`
}

// DefaultWeights returns proximity 30, price 25, mandatory 25, extras 20.
func DefaultWeights() Weights {
	return Weights{
		Proximity:    30,
		Price:        25,
		Mandatory:    25,
		Extras:       20,
		Inapplicable: PolicyRenormalize,
	}
}

// Validate rejects negative weights, an all-zero set and unknown policies.
func (w Weights) Validate() error {
	if w.Proximity < 0 || w.Price < 0 || w.Mandatory < 0 || w.Extras < 0 {
		return errors.New("weights must not be negative")
	}
	if w.Proximity+w.Price+w.Mandatory+w.Extras == 0 {
		return errors.New("at least one weight must be positive")
	}
	switch w.Inapplicable {
	case PolicyRenormalize, PolicyPenalize:
	default:
		return fmt.Errorf("unknown inapplicable policy %q", w.Inapplicable)
	}
	return nil
}

// LoadWeights reads weights from a YAML file. Keys missing from the file
// keep their default value.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	if path == "" {
		return w, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read weights file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return Weights{}, fmt.Errorf("parse weights file: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, fmt.Errorf("invalid weights in %s: %w", path, err)
	}
	return w, nil
}
