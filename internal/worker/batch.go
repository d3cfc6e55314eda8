package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/credence/internal/model"
)

// Evaluator handles a single evaluation request
type Evaluator interface {
	Handle(ctx context.Context, req model.EvaluateRequest) model.EvaluateResponse
}

// EvaluationJob evaluates one request of a batch
type EvaluationJob struct {
	Index     int
	Request   model.EvaluateRequest
	Evaluator Evaluator
}

// Execute executes the evaluation job
func (j *EvaluationJob) Execute(ctx context.Context) Result {
	resp := j.Evaluator.Handle(ctx, j.Request)
	var err error
	if !resp.Success && resp.Error != "" {
		err = fmt.Errorf("item %d: %s", j.Index, resp.Error)
	}
	return &ItemResult{Index: j.Index, Response: resp, Error: err}
}

// Failed reports a panicking evaluation as a failed item
func (j *EvaluationJob) Failed(err error) Result {
	return &ItemResult{
		Index: j.Index,
		Response: model.EvaluateResponse{
			Success:    false,
			TrustLevel: model.TrustUntrusted,
			Error:      err.Error(),
			Timestamp:  time.Now().UnixMilli(),
		},
		Error: err,
	}
}

// ItemResult is the outcome of one batch item
type ItemResult struct {
	Index    int                    `json:"index"`
	Response model.EvaluateResponse `json:"response"`
	Error    error                  `json:"-"`
}

// Err returns the item error
func (r *ItemResult) Err() error {
	return r.Error
}

// BatchProcessor evaluates many requests concurrently
type BatchProcessor struct {
	evaluator   Evaluator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(evaluator Evaluator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// Process evaluates every request. Items share no state and a failing item
// does not affect the others. Results are returned in request order.
func (b *BatchProcessor) Process(ctx context.Context, reqs []model.EvaluateRequest) []*ItemResult {
	if len(reqs) == 0 {
		return []*ItemResult{}
	}

	jobs := make([]Job, len(reqs))
	for i, req := range reqs {
		jobs[i] = &EvaluationJob{Index: i, Request: req, Evaluator: b.evaluator}
	}

	results := NewPool(ctx, b.concurrency).Run(jobs)

	items := make([]*ItemResult, len(results))
	for i, result := range results {
		items[i] = result.(*ItemResult)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Index < items[j].Index })
	return items
}

// ProcessFile reads requests from a file and evaluates them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ItemResult, error) {
	reqs, err := ReadRequestsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}
	return b.Process(ctx, reqs), nil
}

// ReadRequestsFromFile reads a JSON array of requests or one JSON request per
// line. Blank lines and lines starting with '#' are skipped.
func ReadRequestsFromFile(filePath string) ([]model.EvaluateRequest, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []model.EvaluateRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return reqs, nil
	}

	var reqs []model.EvaluateRequest
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var req model.EvaluateRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		reqs = append(reqs, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return reqs, nil
}
