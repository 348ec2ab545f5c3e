package config

import (
	"fmt"
	"os"

	"supply-forecast/internal/analysis"
	"supply-forecast/internal/model"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// RangeConfig lists explicit values, or an evenly spaced grid of Num points
// from Start to Stop inclusive.
//
// Example (YAML):
//
//	ranges:
//	  - name: staking_renewal_rate
//	    values: [0.6, 0.8, 1.0]
//	  - name: max_tvl
//	    start: 100000000
//	    stop: 900000000
//	    num: 5
type RangeConfig struct {
	Name   string    `yaml:"name" json:"name"`
	Values []float64 `yaml:"values,omitempty" json:"values,omitempty"`
	Start  *float64  `yaml:"start,omitempty" json:"start,omitempty"`
	Stop   *float64  `yaml:"stop,omitempty" json:"stop,omitempty"`
	Num    int       `yaml:"num,omitempty" json:"num,omitempty"`
}

type rangesFile struct {
	Ranges []RangeConfig `yaml:"ranges"`
}

// LoadRanges reads a sweep ranges file.
func LoadRanges(path string) ([]analysis.Range, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f rangesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrConfig, path, err)
	}
	return ToRanges(f.Ranges)
}

// ToRanges expands range specs and checks every name against the parameter registry.
func ToRanges(specs []RangeConfig) ([]analysis.Range, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no sweep ranges", model.ErrConfig)
	}
	out := make([]analysis.Range, 0, len(specs))
	for _, s := range specs {
		if _, err := model.LookupParameter(s.Name); err != nil {
			return nil, err
		}
		values, err := s.expand()
		if err != nil {
			return nil, err
		}
		out = append(out, analysis.Range{Name: s.Name, Values: values})
	}
	return out, nil
}

func (s RangeConfig) expand() ([]float64, error) {
	grid := s.Start != nil || s.Stop != nil || s.Num != 0
	switch {
	case len(s.Values) > 0 && grid:
		return nil, fmt.Errorf("%w: range %q sets both values and start/stop/num", model.ErrConfig, s.Name)
	case len(s.Values) > 0:
		return s.Values, nil
	case s.Start == nil || s.Stop == nil:
		return nil, fmt.Errorf("%w: range %q needs values or start and stop", model.ErrConfig, s.Name)
	case s.Num < 2:
		return nil, fmt.Errorf("%w: range %q needs num >= 2, got %d", model.ErrConfig, s.Name, s.Num)
	}
	return floats.Span(make([]float64, s.Num), *s.Start, *s.Stop), nil
}
