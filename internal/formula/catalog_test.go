package formula

import (
	"testing"

	"github.com/ppiankov/credence/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Select(t *testing.T) {
	c := NewCatalog()

	tests := []struct {
		category string
		wantID   string
		matched  bool
	}{
		{"price_feed", IDFinancial, true},
		{"PriceFeed", IDFinancial, true},
		{"ETH/USD", IDFinancial, true},
		{"temperature", IDEnvironmental, true},
		{"air_quality_index", IDEnvironmental, true},
		{"dao_vote", IDGovernance, true},
		{"sports_match_outcome", IDEventOutcome, true},
		{"medical_record", IDSensitive, true},
		{"temporal_window", IDDefault, false},
		{"eventually_consistent", IDDefault, false},
		{"zorblax", IDDefault, false},
		{"", IDDefault, false},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			p, matched := c.Select(tt.category)
			assert.Equal(t, tt.wantID, p.ID)
			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestCatalog_Select_TemperatureIsEnvironmental(t *testing.T) {
	p, matched := NewCatalog().Select("temperature")
	require.True(t, matched)
	assert.Equal(t, IDEnvironmental, p.ID)
	assert.NotEqual(t, IDDefault, p.ID)
}

func TestCatalog_Select_FirstMatchWins(t *testing.T) {
	c := NewCatalog()

	// financial is listed before sensitive
	p, _ := c.Select("health insurance price")
	assert.Equal(t, IDFinancial, p.ID)

	// governance is listed before event outcome
	p, _ = c.Select("election result")
	assert.Equal(t, IDGovernance, p.ID)
}

func TestCatalog_ProfilesAreValid(t *testing.T) {
	c := NewCatalog()
	profiles := c.Profiles()
	require.Len(t, profiles, 6)
	assert.Equal(t, IDDefault, profiles[len(profiles)-1].ID)

	for _, p := range profiles {
		assert.NoError(t, p.Weights.Validate(model.WeightTolerance), p.ID)
		assert.False(t, p.Generated)

		got, ok := c.Get(p.ID)
		assert.True(t, ok)
		assert.Equal(t, p, got)
	}

	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name    string
		signals SelectionSignals
		want    model.SelectionConfidence
	}{
		{"everything lines up", SelectionSignals{Matched: true, KnownSource: true, Verified: true, HasReferences: true}, model.ConfidenceHigh},
		{"matched but thin", SelectionSignals{Matched: true}, model.ConfidenceMedium},
		{"unmatched but strong", SelectionSignals{KnownSource: true, Verified: true, HasReferences: true}, model.ConfidenceMedium},
		{"unmatched known with refs", SelectionSignals{KnownSource: true, HasReferences: true}, model.ConfidenceMedium},
		{"unmatched unknown verified", SelectionSignals{Verified: true, HasReferences: true}, model.ConfidenceLow},
		{"nothing", SelectionSignals{}, model.ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.signals))
		})
	}
}
