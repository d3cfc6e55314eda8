package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateRequest_Validate(t *testing.T) {
	valid := EvaluateRequest{SourceName: "Chainlink", Category: "price_feed", Data: json.RawMessage(`{"price":1}`)}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*EvaluateRequest)
		want   error
	}{
		{"missing source", func(r *EvaluateRequest) { r.SourceName = " " }, ErrMissingField},
		{"missing category", func(r *EvaluateRequest) { r.Category = "" }, ErrMissingField},
		{"null data", func(r *EvaluateRequest) { r.Data = json.RawMessage(`null`) }, ErrMissingField},
		{"negative max age", func(r *EvaluateRequest) { r.MaxAgeSeconds = -1 }, ErrInvalidPayload},
		{"max age overflows duration", func(r *EvaluateRequest) { r.MaxAgeSeconds = 10_000_000_000 }, ErrInvalidPayload},
		{"negative tolerance", func(r *EvaluateRequest) { r.TolerancePercent = -0.5 }, ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), tt.want)
		})
	}

	edge := valid
	edge.MaxAgeSeconds = int(MaxAgeSecondsLimit)
	assert.NoError(t, edge.Validate())
}
