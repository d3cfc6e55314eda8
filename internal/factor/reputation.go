package factor

import "strings"

// NeutralReputation is used for sources missing from the table
const NeutralReputation = 0.50

// defaultReputation scores well-known oracle networks and data providers
var defaultReputation = map[string]float64{
	"chainlink":      0.95,
	"pyth":           0.92,
	"pyth network":   0.92,
	"band protocol":  0.88,
	"chronicle":      0.87,
	"api3":           0.85,
	"uma":            0.85,
	"redstone":       0.84,
	"tellor":         0.80,
	"dia":            0.78,
	"coinbase":       0.90,
	"binance":        0.88,
	"kraken":         0.87,
	"coingecko":      0.86,
	"coinmarketcap":  0.84,
	"noaa":           0.93,
	"nasa":           0.93,
	"openweathermap": 0.80,
	"weatherapi":     0.76,
	"snapshot":       0.82,
	"tally":          0.80,
	"espn":           0.85,
	"augur":          0.75,
	"polymarket":     0.78,
}

// ReputationTable is a read-only, case-insensitive source reputation lookup
type ReputationTable struct {
	scores map[string]float64
}

// NewReputationTable builds the table from the defaults merged with overrides
func NewReputationTable(overrides map[string]float64) *ReputationTable {
	scores := make(map[string]float64, len(defaultReputation)+len(overrides))
	for k, v := range defaultReputation {
		scores[k] = v
	}
	for k, v := range overrides {
		scores[normalizeName(k)] = v
	}
	return &ReputationTable{scores: scores}
}

// Lookup returns the reputation of a source and whether it is known
func (t *ReputationTable) Lookup(name string) (float64, bool) {
	v, ok := t.scores[normalizeName(name)]
	return v, ok
}

// Known reports whether a source is in the table
func (t *ReputationTable) Known(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
