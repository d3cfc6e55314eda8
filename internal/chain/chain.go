// Package chain records finished evaluations in an on-chain registry through
// an HTTP relay. Submission never blocks or fails an evaluation; its outcome
// is attached to the response.
package chain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/util"
)

// Submission is what gets written to the registry
type Submission struct {
	RequestID  string           `json:"requestId"`
	Score      int              `json:"score"`
	TrustLevel model.TrustLevel `json:"trustLevel"`
	FormulaID  string           `json:"formulaId"`
	ProofID    string           `json:"proofId"`
	DataHash   string           `json:"dataHash"`
	Timestamp  int64            `json:"timestamp"`
}

// NewSubmission builds a submission from a log record and the canonical payload
func NewSubmission(rec model.EvaluationRecord, payload []byte) Submission {
	sum := sha256.Sum256(payload)
	return Submission{
		RequestID:  rec.RequestID,
		Score:      rec.Score,
		TrustLevel: rec.TrustLevel,
		FormulaID:  rec.Formula.ID,
		ProofID:    rec.Verification.ProofID,
		DataHash:   "0x" + hex.EncodeToString(sum[:]),
		Timestamp:  rec.CreatedAt.Unix(),
	}
}

// Submitter writes a submission to the registry
type Submitter interface {
	Submit(ctx context.Context, s Submission) model.ChainOutcome
}

// RateWaiter blocks until an outbound call to rawURL is allowed
type RateWaiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// NotConfigured reports every submission as skipped
type NotConfigured struct{}

// Submit implements Submitter
func (NotConfigured) Submit(context.Context, Submission) model.ChainOutcome {
	return model.ChainOutcome{Status: model.ChainSkipped, Error: "chain relay not configured"}
}

// RelaySubmitter posts submissions to a relay that signs and sends transactions
type RelaySubmitter struct {
	httpClient *http.Client
	endpoint   string
	token      string
	userAgent  string
	timeout    time.Duration
	limiter    RateWaiter
}

// NewSubmitter returns a relay submitter, or NotConfigured without a relay URL
func NewSubmitter(cfg model.ChainConfig, httpCfg model.HTTPConfig, limiter RateWaiter) Submitter {
	if strings.TrimSpace(cfg.RelayURL) == "" {
		return NotConfigured{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RelaySubmitter{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
		},
		endpoint:  strings.TrimRight(cfg.RelayURL, "/") + "/v1/submissions",
		token:     cfg.Token,
		userAgent: httpCfg.UserAgent,
		timeout:   timeout,
		limiter:   limiter,
	}
}

type relayResponse struct {
	TxHash string `json:"txHash"`
	Error  string `json:"error"`
}

// Submit posts s and reports the transaction hash
func (r *RelaySubmitter) Submit(ctx context.Context, s Submission) model.ChainOutcome {
	txHash, err := r.submit(ctx, s)
	if err != nil {
		return model.ChainOutcome{Status: model.ChainFailure, Error: err.Error()}
	}
	return model.ChainOutcome{Status: model.ChainSuccess, TxHash: txHash}
}

func (r *RelaySubmitter) submit(ctx context.Context, s Submission) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, r.endpoint); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	body, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var out relayResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != "" {
			return "", fmt.Errorf("relay rejected submission: %d %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if out.TxHash == "" {
		return "", fmt.Errorf("relay returned no transaction hash")
	}
	return out.TxHash, nil
}
