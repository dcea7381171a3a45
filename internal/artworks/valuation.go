package artworks

import "github.com/shopspring/decimal"

// RatioPlaces is the precision of the price-per-cm² ratio.
const RatioPlaces = 8

// Valuation is derived once at commit and never recomputed.
type Valuation struct {
	RealPrice decimal.Decimal
	Ratio     decimal.Decimal
}

// Valuate applies the buyer's commission to the hammer price and spreads the
// result over the canvas area. A zero area yields a zero ratio.
func Valuate(hammer, commissionPct, heightCM, widthCM decimal.Decimal) Valuation {
	realPrice := hammer.Mul(decimal.NewFromInt(1).Add(commissionPct.Shift(-2)))

	ratio := decimal.Zero
	if area := heightCM.Mul(widthCM); area.IsPositive() {
		ratio = realPrice.DivRound(area, RatioPlaces)
	}
	return Valuation{RealPrice: realPrice, Ratio: ratio}
}
