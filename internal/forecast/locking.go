package forecast

import (
	"fmt"

	"supply-forecast/internal/model"
)

// LockedFromFees converts service-fee revenue into tokens tipped to the
// ecosystem fund: tippingRate*fee*(1-slippage)/price.
func LockedFromFees(serviceFee, price float64, p model.Params) (float64, error) {
	if !(price > 0) {
		return 0, fmt.Errorf("%w: price must be > 0, got %v", model.ErrDataContract, price)
	}
	return p.TippingRate * serviceFee * (1 - p.Slippage) / price, nil
}

// Burned is the protocol fee paid on txCount transactions, converted to
// tokens, plus the scheduled extra burn.
func Burned(txCount, price, extra float64, p model.Params) (float64, error) {
	if !(price > 0) {
		return 0, fmt.Errorf("%w: price must be > 0, got %v", model.ErrDataContract, price)
	}
	return p.ProtocolFeeRate*txCount/price + extra, nil
}

// ReleasedProtocolBurn is the share of a day's burn refunded from the ecosystem fund.
func ReleasedProtocolBurn(burned float64, p model.Params) float64 {
	return p.ProtocolFundedRate * burned
}
