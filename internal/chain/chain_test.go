package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubmission() Submission {
	rec := model.EvaluationRecord{
		RequestID:    "req-1",
		Score:        93,
		TrustLevel:   model.TrustHigh,
		Formula:      model.WeightProfile{ID: "financial"},
		Verification: model.VerificationResult{ProofID: "0xproof"},
		CreatedAt:    time.Unix(1700000000, 0),
	}
	return NewSubmission(rec, []byte(`{"price":1850.2}`))
}

func TestNewSubmission(t *testing.T) {
	s := testSubmission()
	assert.Equal(t, "financial", s.FormulaID)
	assert.Equal(t, "0xproof", s.ProofID)
	assert.Equal(t, int64(1700000000), s.Timestamp)
	assert.Len(t, s.DataHash, 66)
	assert.Equal(t, s.DataHash, testSubmission().DataHash)
}

func TestNewSubmitter_NotConfigured(t *testing.T) {
	sub := NewSubmitter(model.ChainConfig{}, model.HTTPConfig{}, nil)
	out := sub.Submit(context.Background(), testSubmission())
	assert.Equal(t, model.ChainSkipped, out.Status)
}

func TestRelaySubmitter_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/submissions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var s Submission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&s))
		assert.Equal(t, "req-1", s.RequestID)
		assert.Equal(t, 93, s.Score)

		_ = json.NewEncoder(w).Encode(map[string]string{"txHash": "0xtx"})
	}))
	defer server.Close()

	sub := NewSubmitter(model.ChainConfig{RelayURL: server.URL + "/", Token: "tok"}, model.HTTPConfig{}, nil)
	out := sub.Submit(context.Background(), testSubmission())

	assert.Equal(t, model.ChainSuccess, out.Status)
	assert.Equal(t, "0xtx", out.TxHash)
	assert.Empty(t, out.Error)
}

func TestRelaySubmitter_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"rejected", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"nonce too low"}`))
		}, "nonce too low"},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, "502"},
		{"no hash", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}, "no transaction hash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			out := NewSubmitter(model.ChainConfig{RelayURL: server.URL}, model.HTTPConfig{}, nil).
				Submit(context.Background(), testSubmission())
			assert.Equal(t, model.ChainFailure, out.Status)
			assert.Contains(t, out.Error, tt.want)
		})
	}
}

func TestRelaySubmitter_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	sub := NewSubmitter(model.ChainConfig{RelayURL: server.URL, Timeout: 20 * time.Millisecond}, model.HTTPConfig{}, nil)
	out := sub.Submit(context.Background(), testSubmission())
	assert.Equal(t, model.ChainFailure, out.Status)
}
