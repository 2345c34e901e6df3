package ranking

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	apperrors "livebetter/internal/common/errors"
)

// TaxBand is one salary band of a state's effective tax rate table.
// UpTo is the inclusive upper salary bound of the band; 0 means unbounded
// (the top band). Rates combine federal and state income tax.
type TaxBand struct {
	UpTo int     `mapstructure:"up_to"`
	Rate float64 `mapstructure:"rate"`
}

// TaxEstimator resolves an effective tax rate for a salary/state pair from
// a small number of discrete salary bands per state. Callers must not assume
// monotonicity finer than the band resolution.
type TaxEstimator struct {
	bands map[string][]TaxBand
}

// NewTaxEstimator validates and wraps a per-state band table.
func NewTaxEstimator(bands map[string][]TaxBand) (*TaxEstimator, error) {
	if len(bands) == 0 {
		return nil, apperrors.NewTaxTableInvalidError("band table is empty")
	}
	normalized := make(map[string][]TaxBand, len(bands))
	for state, stateBands := range bands {
		if len(stateBands) == 0 {
			return nil, apperrors.NewTaxTableInvalidError(fmt.Sprintf("state %s has no bands", state))
		}
		prev := 0
		for i, b := range stateBands {
			if b.Rate < 0 || b.Rate > 1 {
				return nil, apperrors.NewTaxTableInvalidError(
					fmt.Sprintf("state %s band %d rate %.4f outside [0,1]", state, i, b.Rate))
			}
			if b.UpTo == 0 {
				if i != len(stateBands)-1 {
					return nil, apperrors.NewTaxTableInvalidError(
						fmt.Sprintf("state %s has an unbounded band before the last position", state))
				}
				continue
			}
			if b.UpTo <= prev {
				return nil, apperrors.NewTaxTableInvalidError(
					fmt.Sprintf("state %s bands are not strictly increasing", state))
			}
			prev = b.UpTo
		}
		normalized[strings.ToUpper(state)] = stateBands
	}
	return &TaxEstimator{bands: normalized}, nil
}

// DefaultTaxEstimator returns an estimator over the built-in band table.
func DefaultTaxEstimator() *TaxEstimator {
	est, err := NewTaxEstimator(defaultTaxBands)
	if err != nil {
		// The built-in table is validated by tests; reaching this is a bug.
		panic(err)
	}
	return est
}

// Rate returns the effective tax rate in [0,1] for the given salary and
// state. A missing state is a configuration error and is fatal to the
// caller; it must not be silently defaulted.
func (t *TaxEstimator) Rate(salary int, state string) (float64, error) {
	stateBands, ok := t.bands[strings.ToUpper(state)]
	if !ok {
		return 0, apperrors.NewTaxStateNotFoundError(state)
	}
	for _, b := range stateBands {
		if b.UpTo == 0 || salary <= b.UpTo {
			return b.Rate, nil
		}
	}
	// Bands always terminate in an unbounded entry; fall back to the last.
	return stateBands[len(stateBands)-1].Rate, nil
}

// States returns the number of states covered by the table.
func (t *TaxEstimator) States() int {
	return len(t.bands)
}

// LoadBandTable reads a per-state band table from a YAML file of the form:
//
//	states:
//	  CA:
//	    - up_to: 60000
//	      rate: 0.22
//	    - rate: 0.34
func LoadBandTable(path string) (map[string][]TaxBand, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read tax table %s: %w", path, err)
	}

	var table struct {
		States map[string][]TaxBand `mapstructure:"states"`
	}
	if err := v.Unmarshal(&table); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tax table: %w", err)
	}
	return table.States, nil
}

// defaultTaxBands combines federal and state income tax into effective rates
// at three salary bands. Rates derive from the same source data the ETL
// loads into taxes.csv; states without income tax sit at the bottom of each
// band.
var defaultTaxBands = map[string][]TaxBand{
	"AL": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"AK": {{60000, 0.18}, {120000, 0.23}, {0, 0.28}},
	"AZ": {{60000, 0.20}, {120000, 0.25}, {0, 0.30}},
	"AR": {{60000, 0.21}, {120000, 0.27}, {0, 0.32}},
	"CA": {{60000, 0.23}, {120000, 0.30}, {0, 0.37}},
	"CO": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"CT": {{60000, 0.22}, {120000, 0.29}, {0, 0.35}},
	"DE": {{60000, 0.21}, {120000, 0.27}, {0, 0.33}},
	"DC": {{60000, 0.22}, {120000, 0.29}, {0, 0.35}},
	"FL": {{60000, 0.18}, {120000, 0.23}, {0, 0.28}},
	"GA": {{60000, 0.21}, {120000, 0.27}, {0, 0.32}},
	"HI": {{60000, 0.23}, {120000, 0.30}, {0, 0.36}},
	"ID": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"IL": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"IN": {{60000, 0.20}, {120000, 0.25}, {0, 0.30}},
	"IA": {{60000, 0.21}, {120000, 0.27}, {0, 0.32}},
	"KS": {{60000, 0.21}, {120000, 0.26}, {0, 0.32}},
	"KY": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"LA": {{60000, 0.20}, {120000, 0.25}, {0, 0.30}},
	"ME": {{60000, 0.22}, {120000, 0.28}, {0, 0.34}},
	"MD": {{60000, 0.22}, {120000, 0.28}, {0, 0.33}},
	"MA": {{60000, 0.22}, {120000, 0.28}, {0, 0.33}},
	"MI": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"MN": {{60000, 0.22}, {120000, 0.29}, {0, 0.35}},
	"MS": {{60000, 0.20}, {120000, 0.25}, {0, 0.30}},
	"MO": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"MT": {{60000, 0.21}, {120000, 0.27}, {0, 0.32}},
	"NE": {{60000, 0.21}, {120000, 0.27}, {0, 0.32}},
	"NV": {{60000, 0.18}, {120000, 0.23}, {0, 0.28}},
	"NH": {{60000, 0.18}, {120000, 0.23}, {0, 0.28}},
	"NJ": {{60000, 0.22}, {120000, 0.29}, {0, 0.35}},
	"NM": {{60000, 0.20}, {120000, 0.26}, {0, 0.31}},
	"NY": {{60000, 0.23}, {120000, 0.30}, {0, 0.36}},
	"NC": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"ND": {{60000, 0.19}, {120000, 0.24}, {0, 0.29}},
	"OH": {{60000, 0.20}, {120000, 0.26}, {0, 0.31}},
	"OK": {{60000, 0.20}, {120000, 0.26}, {0, 0.31}},
	"OR": {{60000, 0.23}, {120000, 0.30}, {0, 0.36}},
	"PA": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"RI": {{60000, 0.21}, {120000, 0.27}, {0, 0.33}},
	"SC": {{60000, 0.21}, {120000, 0.27}, {0, 0.32}},
	"SD": {{60000, 0.18}, {120000, 0.23}, {0, 0.28}},
	"TN": {{60000, 0.18}, {120000, 0.23}, {0, 0.28}},
	"TX": {{60000, 0.18}, {120000, 0.23}, {0, 0.28}},
	"UT": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"VT": {{60000, 0.22}, {120000, 0.28}, {0, 0.34}},
	"VA": {{60000, 0.21}, {120000, 0.27}, {0, 0.32}},
	"WA": {{60000, 0.18}, {120000, 0.23}, {0, 0.28}},
	"WV": {{60000, 0.21}, {120000, 0.26}, {0, 0.31}},
	"WI": {{60000, 0.21}, {120000, 0.27}, {0, 0.33}},
	"WY": {{60000, 0.18}, {120000, 0.23}, {0, 0.28}},
}
