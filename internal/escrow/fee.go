package escrow

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FeePolicy computes the platform fee withheld from an escrow.
//
//	fee = round_half_even(gross * Rate) + PerItem * itemCount, clamped to [0, gross]
type FeePolicy struct {
	Rate    decimal.Decimal
	PerItem int64
}

// DefaultFeePolicy charges 3% of the gross amount and nothing per item.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{Rate: decimal.RequireFromString("0.03")}
}

// ParseFeePolicy builds a policy from a decimal rate string such as "0.03".
func ParseFeePolicy(rate string, perItem int64) (FeePolicy, error) {
	r, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil {
		return FeePolicy{}, fmt.Errorf("%w: rate %q: %v", ErrInvalidFeePolicy, rate, err)
	}
	p := FeePolicy{Rate: r, PerItem: perItem}
	if err := p.Validate(); err != nil {
		return FeePolicy{}, err
	}
	return p, nil
}

func (p FeePolicy) Validate() error {
	if p.Rate.IsNegative() || p.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: rate %s must be within [0, 1]", ErrInvalidFeePolicy, p.Rate)
	}
	if p.PerItem < 0 {
		return fmt.Errorf("%w: per-item fee %d must not be negative", ErrInvalidFeePolicy, p.PerItem)
	}
	return nil
}

// Fee returns the fee for a gross amount in minor units.
func (p FeePolicy) Fee(gross int64, itemCount int) int64 {
	if gross <= 0 {
		return 0
	}
	fee := decimal.NewFromInt(gross).Mul(p.Rate).RoundBank(0).IntPart()
	fee += p.PerItem * int64(itemCount)
	if fee < 0 {
		return 0
	}
	if fee > gross {
		return gross
	}
	return fee
}

// Split returns the fee and the net amount held for the seller.
func (p FeePolicy) Split(gross int64, itemCount int) (fee, net int64) {
	fee = p.Fee(gross, itemCount)
	return fee, gross - fee
}
