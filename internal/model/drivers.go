package model

import (
	"fmt"
	"math"
)

// DriverSample is the exogenous input for one simulated day.
type DriverSample struct {
	Day         int     `json:"day"`
	Price       float64 `json:"price"`
	ServiceFees float64 `json:"service_fees"`
	TxCount     float64 `json:"tx_count"`
	Validators  float64 `json:"validators"`
}

// DriverVector is one realised path of the exogenous drivers, indexed by day.
// The engine treats it as read-only.
//
// Example (JSON):
//
//	{
//	  "price":        [0.08, 0.081, ...],
//	  "service_fees": [25000000, ...],
//	  "tx_count":     [8000, ...],
//	  "validators":   [6, 6, 7, ...]
//	}
type DriverVector struct {
	Price       []float64 `json:"price"`
	ServiceFees []float64 `json:"service_fees"`
	TxCount     []float64 `json:"tx_count"`
	Validators  []float64 `json:"validators"`
}

// NewDriverVector allocates zeroed driver arrays for a horizon.
func NewDriverVector(horizon int) DriverVector {
	return DriverVector{
		Price:       make([]float64, horizon),
		ServiceFees: make([]float64, horizon),
		TxCount:     make([]float64, horizon),
		Validators:  make([]float64, horizon),
	}
}

// Len is the number of days covered by every driver.
func (v DriverVector) Len() int {
	return min(len(v.Price), len(v.ServiceFees), len(v.TxCount), len(v.Validators))
}

// Sample returns the drivers for one day.
func (v DriverVector) Sample(day int) (DriverSample, error) {
	if day < 0 || day >= v.Len() {
		return DriverSample{}, fmt.Errorf("%w: day %d outside [0, %d)", ErrDataContract, day, v.Len())
	}
	return DriverSample{
		Day:         day,
		Price:       v.Price[day],
		ServiceFees: v.ServiceFees[day],
		TxCount:     v.TxCount[day],
		Validators:  v.Validators[day],
	}, nil
}

// Validate checks the driver contract for a horizon: every driver covers at
// least horizon days and price is strictly positive. Longer vectors are
// accepted; only the first horizon days are read.
func (v DriverVector) Validate(horizon int) error {
	for name, xs := range map[string][]float64{
		"price":        v.Price,
		"service_fees": v.ServiceFees,
		"tx_count":     v.TxCount,
		"validators":   v.Validators,
	} {
		if len(xs) < horizon {
			return fmt.Errorf("%w: %s has %d days, horizon is %d", ErrDataContract, name, len(xs), horizon)
		}
	}
	for i := 0; i < horizon; i++ {
		p := v.Price[i]
		if !(p > 0) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: price at day %d must be > 0, got %v", ErrDataContract, i, p)
		}
	}
	return nil
}

// Truncate returns a view of the first horizon days.
func (v DriverVector) Truncate(horizon int) DriverVector {
	if horizon > v.Len() {
		horizon = v.Len()
	}
	return DriverVector{
		Price:       v.Price[:horizon],
		ServiceFees: v.ServiceFees[:horizon],
		TxCount:     v.TxCount[:horizon],
		Validators:  v.Validators[:horizon],
	}
}
