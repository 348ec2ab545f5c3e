package process

import (
	"fmt"
	"math/rand/v2"

	"supply-forecast/internal/model"
)

// DriversSpec describes the process behind each driver.
type DriversSpec struct {
	Price       Spec `yaml:"price" json:"price"`
	ServiceFees Spec `yaml:"service_fees" json:"service_fees"`
	TxCount     Spec `yaml:"tx_count" json:"tx_count"`
	Validators  Spec `yaml:"validators" json:"validators"`
}

// DefaultDriversSpec is the reference driver setup: flat price, fees and
// transactions with Poisson validator arrivals.
func DefaultDriversSpec() DriversSpec {
	return DriversSpec{
		Price:       Spec{Model: Constant, Initial: F(0.08)},
		ServiceFees: Spec{Model: Constant, Initial: F(25_000_000)},
		TxCount:     Spec{Model: Constant, Initial: F(8000)},
		Validators:  Spec{Model: Arrival, Initial: F(6), Rate: F(6.0 / 365)},
	}
}

// Random stream identifiers. Each driver draws from its own PCG stream so
// changing one process never shifts the draws of another.
const (
	streamPrice uint64 = iota + 1
	streamServiceFees
	streamTxCount
	streamValidators
)

// Generator produces driver paths. It is immutable and safe for concurrent use.
type Generator struct {
	spec        DriversSpec
	price       Process
	serviceFees Process
	txCount     Process
	validators  Process
}

// NewGenerator validates every driver process.
func NewGenerator(spec DriversSpec) (*Generator, error) {
	g := &Generator{spec: spec}
	for _, d := range []struct {
		name string
		spec Spec
		dst  *Process
	}{
		{"price", spec.Price, &g.price},
		{"service_fees", spec.ServiceFees, &g.serviceFees},
		{"tx_count", spec.TxCount, &g.txCount},
		{"validators", spec.Validators, &g.validators},
	} {
		p, err := New(d.spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = p
	}
	return g, nil
}

// Spec returns the generator's description.
func (g *Generator) Spec() DriversSpec { return g.spec }

// Generate draws one path of every driver for horizon days. The same seed
// always yields the same vector.
func (g *Generator) Generate(horizon int, seed uint64) (model.DriverVector, error) {
	if horizon < 1 {
		return model.DriverVector{}, fmt.Errorf("%w: horizon must be >= 1, got %d", model.ErrConfig, horizon)
	}
	for name, p := range map[string]Process{
		"price":        g.price,
		"service_fees": g.serviceFees,
		"tx_count":     g.txCount,
		"validators":   g.validators,
	} {
		if s, ok := p.(ScheduledProcess); ok && len(s.Values) < horizon {
			return model.DriverVector{}, fmt.Errorf("%w: %s schedule has %d days, horizon is %d", model.ErrConfig, name, len(s.Values), horizon)
		}
	}
	return model.DriverVector{
		Price:       Path(g.price, horizon, stream(seed, streamPrice)),
		ServiceFees: Path(g.serviceFees, horizon, stream(seed, streamServiceFees)),
		TxCount:     Path(g.txCount, horizon, stream(seed, streamTxCount)),
		Validators:  Path(g.validators, horizon, stream(seed, streamValidators)),
	}, nil
}

// Samples draws n vectors with seeds seed, seed+1, ... seed+n-1.
func (g *Generator) Samples(horizon, n int, seed uint64) ([]model.DriverVector, error) {
	out := make([]model.DriverVector, n)
	for k := range out {
		v, err := g.Generate(horizon, seed+uint64(k))
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func stream(seed, id uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, id))
}
