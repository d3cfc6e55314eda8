package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/credence/internal/model"
)

func TestLoadConfig_DefaultFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, *model.DefaultConfig(), *cfg)
}

func TestWriteDefaultConfig_NeverOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	err := writeDefaultConfig(path)
	assert.ErrorContains(t, err, "already exists")
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
factors:
  max_age: 2m
  reputation:
    my oracle: 0.7
store:
  driver: postgres
  dsn: postgres://localhost/credence
verification:
  attest_source_url: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Factors.MaxAge)
	assert.Equal(t, 0.7, cfg.Factors.Reputation["my oracle"])
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.True(t, cfg.Verification.AttestSourceURL)
	// untouched keys keep their defaults
	assert.Equal(t, 1.0, cfg.Factors.TolerancePercent)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("CREDENCE_STORE_DSN", "/tmp/credence-test.db")
	t.Setenv("CREDENCE_FACTORS_MAX_AGE", "90s")
	t.Setenv("CREDENCE_CHAIN_RELAY_URL", "https://relay.example.com")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := viper.New()
	configureEnv(v)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/credence-test.db", cfg.Store.DSN)
	assert.Equal(t, 90*time.Second, cfg.Factors.MaxAge)
	assert.Equal(t, "https://relay.example.com", cfg.Chain.RelayURL)
	assert.Equal(t, "sk-test", cfg.Advisor.APIKey)
}

func TestMaskSecrets(t *testing.T) {
	cfg := *model.DefaultConfig()
	cfg.Advisor.APIKey = "sk-live"
	cfg.Chain.Token = "tok"

	masked := maskSecrets(cfg)
	assert.Equal(t, secretMask, masked.Advisor.APIKey)
	assert.Equal(t, secretMask, masked.Chain.Token)
	assert.Empty(t, masked.Verification.AppSecret)
	assert.Equal(t, "sk-live", cfg.Advisor.APIKey, "original is untouched")
}

func resetEvalFlags() {
	evalSource, evalCategory, evalData, evalFile = "", "", "", ""
	evalRefs = nil
	evalSourceURL, evalHint, evalFormula, evalReportedAt = "", "", "", ""
	evalMaxAge, evalTolerance = 0, 0
}

func TestBuildEvaluateRequest_Flags(t *testing.T) {
	t.Cleanup(resetEvalFlags)
	evalSource = "Chainlink"
	evalCategory = "price_feed"
	evalData = `{"price":1850.2}`
	evalRefs = []float64{1850, 1851}
	evalReportedAt = "2026-03-01T12:00:00Z"
	evalMaxAge = 2 * time.Minute
	evalFormula = "custom"

	req, err := buildEvaluateRequest(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "Chainlink", req.SourceName)
	assert.JSONEq(t, `{"price":1850.2}`, string(req.Data))
	assert.Equal(t, []float64{1850, 1851}, req.ReferenceValues)
	require.NotNil(t, req.ReportedAt)
	assert.Equal(t, 2026, req.ReportedAt.Year())
	assert.Equal(t, 120, req.MaxAgeSeconds)
	assert.Equal(t, "custom", req.Formula)
	assert.NoError(t, req.Validate())
}

func TestBuildEvaluateRequest_StdinWithOverrides(t *testing.T) {
	t.Cleanup(resetEvalFlags)
	evalFile = "-"
	evalCategory = "temperature"
	evalData = "sunny"

	stdin := strings.NewReader(`{"sourceName":"NOAA","category":"weather","data":21.5,"hint":"hourly"}`)
	req, err := buildEvaluateRequest(stdin)
	require.NoError(t, err)
	assert.Equal(t, "NOAA", req.SourceName)
	assert.Equal(t, "temperature", req.Category)
	assert.Equal(t, `"sunny"`, string(req.Data))
	assert.Equal(t, "hourly", req.Hint)
}

func TestBuildEvaluateRequest_Errors(t *testing.T) {
	t.Cleanup(resetEvalFlags)

	evalReportedAt = "yesterday"
	_, err := buildEvaluateRequest(strings.NewReader(""))
	assert.ErrorContains(t, err, "reported-at")

	resetEvalFlags()
	evalFile = "-"
	_, err = buildEvaluateRequest(strings.NewReader("{not json"))
	assert.ErrorContains(t, err, "parse request")
}

func TestWriteProfiles(t *testing.T) {
	profiles := []model.WeightProfile{{
		ID:                 "financial",
		Name:               "Financial Price Data",
		Weights:            model.Weights{Source: 0.25, Time: 0.25, Accuracy: 0.35, Proof: 0.15},
		MinAcceptableScore: 75,
	}}

	var table bytes.Buffer
	require.NoError(t, writeProfiles(&table, profiles, "table"))
	assert.Contains(t, table.String(), "financial")
	assert.Contains(t, table.String(), "0.35")

	var out bytes.Buffer
	require.NoError(t, writeProfiles(&out, profiles, "yaml"))
	var decoded []model.WeightProfile
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, profiles, decoded)

	assert.Error(t, writeProfiles(&out, profiles, "xml"))
}

func TestWriteHistory(t *testing.T) {
	var empty bytes.Buffer
	require.NoError(t, writeHistory(&empty, nil))
	assert.Contains(t, empty.String(), "No evaluations")

	var buf bytes.Buffer
	recs := []model.EvaluationRecord{
		{RequestID: "a", SourceName: "Chainlink", Success: true, Score: 93, TrustLevel: model.TrustHigh},
		{RequestID: "b", SourceName: "Pyth", Success: false, TrustLevel: model.TrustUntrusted},
	}
	require.NoError(t, writeHistory(&buf, recs))
	assert.Contains(t, buf.String(), "93")
	assert.Contains(t, buf.String(), "failed")
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "credence v"+Version)
}
