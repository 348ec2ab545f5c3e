package release

import (
	"fmt"

	"supply-forecast/internal/model"
)

// Inflow yields the fresh stake entering on a day.
type Inflow interface {
	Name() string
	Amount(day int) float64
}

// NewInflow builds the new-staker inflow model named in p.
func NewInflow(p model.StakerInflowParams) (Inflow, error) {
	switch p.Model {
	case model.InflowConstant:
		return ConstantInflow{Initial: p.InitialAmount}, nil
	case model.InflowLinear:
		if p.Rate == nil {
			return nil, fmt.Errorf("%w: linear staker inflow requires a rate", model.ErrConfig)
		}
		return LinearInflow{Initial: p.InitialAmount, Rate: *p.Rate}, nil
	default:
		return nil, fmt.Errorf("%w: unknown staker inflow model %q", model.ErrConfig, p.Model)
	}
}

type ConstantInflow struct {
	Initial float64
}

func (ConstantInflow) Name() string { return model.InflowConstant }

func (m ConstantInflow) Amount(int) float64 { return m.Initial }

// LinearInflow grows by Rate tokens per day from Initial.
type LinearInflow struct {
	Initial float64
	Rate    float64
}

func (LinearInflow) Name() string { return model.InflowLinear }

func (m LinearInflow) Amount(day int) float64 { return m.Rate*float64(day) + m.Initial }
