package fee

import "errors"

var ErrNegativeAmount = errors.New("amount must not be negative")

// Breakdown splits a charge into its components, all in minor currency units.
type Breakdown struct {
	BaseAmount  int64 `json:"baseAmount"`
	PlatformFee int64 `json:"platformFee"`
	TotalAmount int64 `json:"totalAmount"`
}

// Calculator computes the marketplace fee as basis points of the base amount
// plus an optional flat component. It is pure; the same input always yields
// the same breakdown.
type Calculator struct {
	bps  int64
	flat int64
}

func NewCalculator(bps, flat int64) *Calculator {
	if bps < 0 {
		bps = 0
	}
	if flat < 0 {
		flat = 0
	}
	return &Calculator{bps: bps, flat: flat}
}

func (c *Calculator) TotalWithFee(baseAmount int64) (Breakdown, error) {
	if baseAmount < 0 {
		return Breakdown{}, ErrNegativeAmount
	}
	fee := baseAmount*c.bps/10000 + c.flat
	return Breakdown{
		BaseAmount:  baseAmount,
		PlatformFee: fee,
		TotalAmount: baseAmount + fee,
	}, nil
}
