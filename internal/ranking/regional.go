package ranking

import (
	"fmt"

	apperrors "livebetter/internal/common/errors"
)

// AdjustForRegion converts nominal net monthly income into regional
// purchasing power by dividing by the metro's Regional Price Parity index
// (1.0 = national average). A zero or negative index is a data-integrity
// violation; the metro is excluded from the result set, not scored as zero.
func AdjustForRegion(netMonthly, rppIndex float64, metroID int64) (float64, error) {
	if rppIndex <= 0 {
		return 0, apperrors.NewInvalidMetroDataError(metroID,
			fmt.Sprintf("rpp_index must be positive, got %.4f", rppIndex))
	}
	return netMonthly / rppIndex, nil
}

// NetMonthlyIncome converts an annual pre-tax salary and an effective tax
// rate into nominal net monthly income.
func NetMonthlyIncome(salary int, effTaxRate float64) float64 {
	return float64(salary) * (1.0 - effTaxRate) / 12.0
}
