package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/credence/internal/factor"
	"github.com/ppiankov/credence/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAttestor struct {
	att   *Attestation
	err   error
	panic bool
	block bool
	calls int
}

func (s *stubAttestor) Attest(ctx context.Context, target string) (*Attestation, error) {
	s.calls++
	if s.panic {
		panic("sdk exploded")
	}
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.att, s.err
}

func testConfig() model.VerificationConfig {
	cfg := model.DefaultConfig().Verification
	cfg.Timeout = time.Second
	return cfg
}

func testInput() Input {
	return Input{
		RequestID:  "req-1",
		SourceName: "Chainlink",
		Category:   "price_feed",
		Payload:    []byte(`{"price":1850.2}`),
		SourceURL:  "https://api.coingecko.com/api/v3/simple/price",
	}
}

func TestSimulator_Deterministic(t *testing.T) {
	s := NewSimulator(0.9)
	a := s.Verify(testInput())
	b := s.Verify(testInput())

	assert.Equal(t, a, b)
	assert.True(t, a.Attempted)
	assert.Equal(t, model.ModeSimulated, a.Mode)
	assert.True(t, strings.HasPrefix(a.ProofID, "sim_"))
	assert.Len(t, a.ProofID, len("sim_")+32)
	assert.Equal(t, "api.coingecko.com", a.Domain)

	// request id does not influence the outcome
	in := testInput()
	in.RequestID = "req-2"
	assert.Equal(t, a, s.Verify(in))
}

func TestSimulator_SuccessRate(t *testing.T) {
	s := NewSimulator(0.9)
	verified := 0
	proofs := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		in := testInput()
		in.Payload = []byte(fmt.Sprintf(`{"price":%d}`, i))
		r := s.Verify(in)
		if r.Verified {
			verified++
		}
		proofs[r.ProofID] = true
	}
	assert.Greater(t, verified, 800)
	assert.Less(t, verified, 970)
	assert.Len(t, proofs, 1000)
}

func TestSimulator_RateBounds(t *testing.T) {
	always := NewSimulator(1.0)
	for i := 0; i < 50; i++ {
		in := testInput()
		in.Category = fmt.Sprintf("c%d", i)
		assert.True(t, always.Verify(in).Verified)
	}
	assert.Equal(t, uint32(90), NewSimulator(0).threshold)
	assert.Equal(t, uint32(90), NewSimulator(7).threshold)
}

func TestOrchestrator_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	att := &stubAttestor{}
	o := NewOrchestrator(cfg, WithAttestor(att))

	r := o.Verify(context.Background(), testInput())
	assert.False(t, r.Attempted)
	assert.False(t, r.Verified)
	assert.Equal(t, 0, att.calls)
}

func TestOrchestrator_NoAttestorIsSimulated(t *testing.T) {
	o := NewOrchestrator(testConfig())
	r := o.Verify(context.Background(), testInput())
	assert.Equal(t, model.ModeSimulated, r.Mode)
	assert.Empty(t, r.Error)
	assert.Equal(t, NewSimulator(0.9).Verify(testInput()), r)
}

func TestOrchestrator_RealSuccess(t *testing.T) {
	att := &Attestation{
		Claim:      Claim{Provider: "http", Parameters: `{"url":"http://127.0.0.1:8080/api/pending/req-1"}`, Owner: "0xabc", TimestampS: 1},
		Signatures: []string{"aa"},
	}
	o := NewOrchestrator(testConfig(), WithAttestor(&stubAttestor{att: att}))

	r := o.Verify(context.Background(), testInput())
	assert.True(t, r.Attempted)
	assert.True(t, r.Verified)
	assert.Equal(t, model.ModeReal, r.Mode)
	assert.Equal(t, att.ProofID(), r.ProofID)
	assert.Equal(t, "127.0.0.1", r.Domain, "domain comes from the attested claim")
}

func TestOrchestrator_EchoTargetDoesNotCreditSourceDomain(t *testing.T) {
	in := testInput()
	in.SourceURL = "https://api.coinbase.com/anything"

	tests := []struct {
		name       string
		attestURL  bool
		claimURL   string
		wantDomain string
		wantProof  float64
	}{
		{"echo target", false, "http://127.0.0.1:8080/api/pending/req-1", "127.0.0.1", 0.9},
		{"source url target", true, in.SourceURL, "api.coinbase.com", 1.0},
		{"unparseable claim falls back to target", false, "", "127.0.0.1", 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.AttestSourceURL = tt.attestURL
			params := `{"url":"` + tt.claimURL + `"}`
			if tt.claimURL == "" {
				params = "not json"
			}
			att := &Attestation{Claim: Claim{Parameters: params}, Signatures: []string{"aa"}}
			o := NewOrchestrator(cfg, WithAttestor(&stubAttestor{att: att}))

			r := o.Verify(context.Background(), in)
			require.Equal(t, model.ModeReal, r.Mode)
			assert.Equal(t, tt.wantDomain, r.Domain)

			trusted := factor.NewDomainClassifier(nil).IsTrusted(r.Domain)
			assert.InDelta(t, tt.wantProof, factor.ProofScore(r, trusted), 1e-9)
		})
	}
}

func TestOrchestrator_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		attestor *stubAttestor
		wantErr  string
	}{
		{"error", &stubAttestor{err: errors.New("service down")}, "service down"},
		{"panic", &stubAttestor{panic: true}, "panic"},
		{"timeout", &stubAttestor{block: true}, "deadline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Timeout = 20 * time.Millisecond
			o := NewOrchestrator(cfg, WithAttestor(tt.attestor))

			r := o.Verify(context.Background(), testInput())
			assert.Equal(t, model.ModeSimulated, r.Mode)
			assert.True(t, r.Attempted)
			assert.Contains(t, r.Error, tt.wantErr)
			assert.Equal(t, 1, tt.attestor.calls, "one attempt, no retry")

			sim := NewSimulator(0.9).Verify(testInput())
			assert.Equal(t, sim.ProofID, r.ProofID)
			assert.Equal(t, sim.Verified, r.Verified)
		})
	}
}

func TestOrchestrator_Target(t *testing.T) {
	cfg := testConfig()
	cfg.CallbackBaseURL = "http://127.0.0.1:8080/"
	o := NewOrchestrator(cfg)
	assert.Equal(t, "http://127.0.0.1:8080/api/pending/req-1", o.Target(testInput()))

	cfg.AttestSourceURL = true
	o = NewOrchestrator(cfg)
	assert.Equal(t, testInput().SourceURL, o.Target(testInput()))

	in := testInput()
	in.SourceURL = ""
	assert.Equal(t, "http://127.0.0.1:8080/api/pending/req-1", o.Target(in))

	cfg.CallbackBaseURL = ""
	cfg.AttestSourceURL = false
	o = NewOrchestrator(cfg)
	assert.Empty(t, o.Target(testInput()))
}

func TestNewVerifier(t *testing.T) {
	cfg := testConfig()
	o := NewVerifier(cfg, model.HTTPConfig{}, nil, nil)
	assert.Nil(t, o.attestor)

	pub, _ := newWitness(t)
	cfg.ServiceURL = "http://attest.local"
	cfg.AppID = "app"
	cfg.AppSecret = "secret"
	cfg.WitnessPublicKey = pub
	o = NewVerifier(cfg, model.HTTPConfig{}, nil, nil)
	require.NotNil(t, o.attestor)
	assert.Nil(t, o.robots)

	cfg.AttestSourceURL = true
	o = NewVerifier(cfg, model.HTTPConfig{UserAgent: "Credence/test"}, nil, nil)
	assert.NotNil(t, o.robots)
	cfg.AttestSourceURL = false

	cfg.WitnessPublicKey = "zz"
	o = NewVerifier(cfg, model.HTTPConfig{}, nil, nil)
	assert.Nil(t, o.attestor)
}
