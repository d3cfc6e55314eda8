package verify

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/util"
)

const maxAttestationBytes = 1 << 20

// Attestor obtains a checked attestation for a target URL
type Attestor interface {
	Attest(ctx context.Context, target string) (*Attestation, error)
}

// RateWaiter blocks until an outbound call to rawURL is allowed
type RateWaiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// AttestRequest is the signed request sent to the attestation service
type AttestRequest struct {
	AppID     string `json:"appId"`
	URL       string `json:"url"`
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// SignRequest computes the HMAC-SHA256 request signature
func SignRequest(secret string, r AttestRequest) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join([]string{r.AppID, r.URL, strconv.FormatInt(r.Timestamp, 10), r.Nonce}, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

// HTTPAttestor calls a remote attestation service over HTTP
type HTTPAttestor struct {
	httpClient *http.Client
	serviceURL string
	appID      string
	appSecret  string
	witness    ed25519.PublicKey
	userAgent  string
	limiter    RateWaiter
	now        func() time.Time
}

// NewHTTPAttestor creates an attestor from configuration
func NewHTTPAttestor(cfg model.VerificationConfig, httpCfg model.HTTPConfig, limiter RateWaiter) (*HTTPAttestor, error) {
	if !cfg.RealConfigured() {
		return nil, fmt.Errorf("attestation service not configured")
	}
	witness, err := ParseWitnessKey(cfg.WitnessPublicKey)
	if err != nil {
		return nil, err
	}
	return &HTTPAttestor{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
		},
		serviceURL: strings.TrimRight(cfg.ServiceURL, "/"),
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		witness:    witness,
		userAgent:  httpCfg.UserAgent,
		limiter:    limiter,
		now:        time.Now,
	}, nil
}

// Attest requests an attestation for target and checks it
func (a *HTTPAttestor) Attest(ctx context.Context, target string) (*Attestation, error) {
	endpoint := a.serviceURL + "/v1/attestations"
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx, endpoint); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	areq := AttestRequest{
		AppID:     a.appID,
		URL:       target,
		Method:    http.MethodGet,
		Timestamp: a.now().Unix(),
		Nonce:     uuid.NewString(),
	}
	areq.Signature = SignRequest(a.appSecret, areq)

	body, err := json.Marshal(areq)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attest: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAttestationBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var att Attestation
	if err := json.Unmarshal(raw, &att); err != nil {
		return nil, fmt.Errorf("decode attestation: %w", err)
	}
	if err := att.Check(a.witness, target); err != nil {
		return nil, err
	}
	return &att, nil
}
