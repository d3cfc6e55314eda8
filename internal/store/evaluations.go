package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/credence/internal/model"
)

// DefaultListLimit caps List when no limit is given
const DefaultListLimit = 50

// MaxListLimit is the largest page List returns
const MaxListLimit = 500

// ListOptions filters the evaluation log
type ListOptions struct {
	Limit      int
	SourceName string
	Category   string
}

const evaluationColumns = `request_id, source_name, category, success, score, trust_level, formula_id,
	formula_json, confidence, breakdown_json, explanation, verification_json, error, created_at`

// Append adds an entry to the evaluation log. Entries are never updated.
func (s *Store) Append(ctx context.Context, rec model.EvaluationRecord) error {
	formulaJSON, err := json.Marshal(rec.Formula)
	if err != nil {
		return fmt.Errorf("marshal formula: %w", err)
	}
	breakdownJSON, err := json.Marshal(rec.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	verificationJSON, err := json.Marshal(rec.Verification)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO evaluations (`+evaluationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.RequestID, rec.SourceName, rec.Category, rec.Success, rec.Score, string(rec.TrustLevel),
		rec.Formula.ID, string(formulaJSON), string(rec.Confidence), string(breakdownJSON),
		rec.Explanation, string(verificationJSON), rec.Error, s.timeArg(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation %s: %w", rec.RequestID, err)
	}
	return nil
}

// Get returns the latest evaluation for a request
func (s *Store) Get(ctx context.Context, requestID string) (model.EvaluationRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+evaluationColumns+` FROM evaluations WHERE request_id = ? ORDER BY id DESC LIMIT 1`),
		requestID,
	)
	rec, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.EvaluationRecord{}, fmt.Errorf("evaluation %s: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return model.EvaluationRecord{}, fmt.Errorf("query evaluation %s: %w", requestID, err)
	}
	return rec, nil
}

// List returns the newest evaluations first
func (s *Store) List(ctx context.Context, opts ListOptions) ([]model.EvaluationRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	var (
		where []string
		args  []interface{}
	)
	if opts.SourceName != "" {
		where = append(where, "LOWER(source_name) = LOWER(?)")
		args = append(args, opts.SourceName)
	}
	if opts.Category != "" {
		where = append(where, "category = ?")
		args = append(args, opts.Category)
	}

	query := `SELECT ` + evaluationColumns + ` FROM evaluations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	out := []model.EvaluationRecord{}
	for rows.Next() {
		rec, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvaluation(row scanner) (model.EvaluationRecord, error) {
	var (
		rec                                          model.EvaluationRecord
		trust, formulaID                             string
		formulaJSON, breakdownJSON, verificationJSON string
		confidence, errText                          sql.NullString
		created                                      timestamp
	)
	err := row.Scan(&rec.RequestID, &rec.SourceName, &rec.Category, &rec.Success, &rec.Score, &trust,
		&formulaID, &formulaJSON, &confidence, &breakdownJSON, &rec.Explanation, &verificationJSON,
		&errText, &created)
	if err != nil {
		return model.EvaluationRecord{}, err
	}

	if err := json.Unmarshal([]byte(formulaJSON), &rec.Formula); err != nil {
		return model.EvaluationRecord{}, fmt.Errorf("decode formula: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdownJSON), &rec.Breakdown); err != nil {
		return model.EvaluationRecord{}, fmt.Errorf("decode breakdown: %w", err)
	}
	if err := json.Unmarshal([]byte(verificationJSON), &rec.Verification); err != nil {
		return model.EvaluationRecord{}, fmt.Errorf("decode verification: %w", err)
	}
	if rec.Formula.ID == "" {
		rec.Formula.ID = formulaID
	}
	rec.TrustLevel = model.TrustLevel(trust)
	rec.Confidence = model.SelectionConfidence(confidence.String)
	rec.Error = errText.String
	rec.CreatedAt = created.Time
	return rec, nil
}
