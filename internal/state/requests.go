package state

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fibreflow/workforce/pkg/models"
)

// CreateRequest records a newly submitted request in the ledger.
func (db *DB) CreateRequest(req *models.Request) error {
	if req.ID == "" {
		return fmt.Errorf("request has no ID")
	}
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now().UTC()
	}

	_, err := db.Exec(`
		INSERT INTO requests (id, text, status, submitted_at)
		VALUES (?, ?, ?, ?)
	`, req.ID, req.Text, string(req.Status), req.SubmittedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// MarkRouting flags a request as being scored by the dispatcher.
func (db *DB) MarkRouting(requestID string) error {
	result, err := db.Exec(`
		UPDATE requests SET status = ? WHERE id = ?
	`, string(models.RequestRouting), requestID)
	if err != nil {
		return fmt.Errorf("mark request routing: %w", err)
	}
	return requireRow(result, requestID)
}

// RecordDispatch stores the routing decision for a request and marks it
// as running under the selected agent.
func (db *DB) RecordDispatch(requestID string, decision *models.RouteDecision) error {
	fallback := 0
	if decision.Fallback {
		fallback = 1
	}
	override := 0
	if decision.Override {
		override = 1
	}

	_, err := db.Exec(`
		INSERT INTO dispatches (request_id, agent, score, confidence, matched, fallback, override)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, requestID, decision.Agent, decision.Score, decision.Confidence,
		strings.Join(decision.Matched, ","), fallback, override)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}

	_, err = db.Exec(`
		UPDATE requests SET status = ?, agent = ? WHERE id = ?
	`, string(models.RequestRunning), decision.Agent, requestID)
	if err != nil {
		return fmt.Errorf("mark request running: %w", err)
	}
	return nil
}

// CompleteRequest marks a request done and stores its output and usage.
func (db *DB) CompleteRequest(requestID, output string, tokensIn, tokensOut int64, cost float64) error {
	result, err := db.Exec(`
		UPDATE requests
		SET status = ?, output = ?, completed_at = ?, tokens_in = ?, tokens_out = ?, cost = ?
		WHERE id = ?
	`, string(models.RequestDone), output, time.Now().UTC().Format(time.RFC3339),
		tokensIn, tokensOut, cost, requestID)
	if err != nil {
		return fmt.Errorf("complete request: %w", err)
	}
	return requireRow(result, requestID)
}

// FailRequest marks a request failed with the given error message.
// Partial output and token usage are still recorded.
func (db *DB) FailRequest(requestID, errMsg, output string, tokensIn, tokensOut int64, cost float64) error {
	result, err := db.Exec(`
		UPDATE requests
		SET status = ?, error = ?, output = ?, completed_at = ?, tokens_in = ?, tokens_out = ?, cost = ?
		WHERE id = ?
	`, string(models.RequestFailed), errMsg, output, time.Now().UTC().Format(time.RFC3339),
		tokensIn, tokensOut, cost, requestID)
	if err != nil {
		return fmt.Errorf("fail request: %w", err)
	}
	return requireRow(result, requestID)
}

// GetRequest returns one request by ID.
func (db *DB) GetRequest(requestID string) (*models.Request, error) {
	row := db.QueryRow(`
		SELECT id, text, status, agent, output, error, submitted_at, completed_at,
		       tokens_in, tokens_out, cost
		FROM requests WHERE id = ?
	`, requestID)

	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("request %s not found", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// ListRequests returns the most recent requests, newest first.
func (db *DB) ListRequests(limit int) ([]*models.Request, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT id, text, status, agent, output, error, submitted_at, completed_at,
		       tokens_in, tokens_out, cost
		FROM requests ORDER BY submitted_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("list requests: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// GetDispatch returns the routing decision recorded for a request.
func (db *DB) GetDispatch(requestID string) (*models.RouteDecision, error) {
	row := db.QueryRow(`
		SELECT agent, score, confidence, matched, fallback, override
		FROM dispatches WHERE request_id = ?
	`, requestID)

	decision := &models.RouteDecision{}
	var matched string
	var fallback, override int
	err := row.Scan(&decision.Agent, &decision.Score, &decision.Confidence,
		&matched, &fallback, &override)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no dispatch recorded for request %s", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("get dispatch: %w", err)
	}

	if matched != "" {
		decision.Matched = strings.Split(matched, ",")
	}
	decision.Fallback = fallback == 1
	decision.Override = override == 1
	return decision, nil
}

// AgentStats summarizes one agent's ledger history.
type AgentStats struct {
	Agent      string
	Requests   int64
	Failed     int64
	TokensIn   int64
	TokensOut  int64
	Cost       float64
	LastServed time.Time
}

// StatsByAgent aggregates request counts and usage per agent.
func (db *DB) StatsByAgent() ([]AgentStats, error) {
	rows, err := db.Query(`
		SELECT agent,
		       COUNT(*),
		       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
		       COALESCE(SUM(tokens_in), 0),
		       COALESCE(SUM(tokens_out), 0),
		       COALESCE(SUM(cost), 0),
		       MAX(submitted_at)
		FROM requests
		WHERE agent IS NOT NULL AND agent != ''
		GROUP BY agent ORDER BY agent
	`)
	if err != nil {
		return nil, fmt.Errorf("stats by agent: %w", err)
	}
	defer rows.Close()

	var stats []AgentStats
	for rows.Next() {
		var s AgentStats
		var lastServed string
		if err := rows.Scan(&s.Agent, &s.Requests, &s.Failed,
			&s.TokensIn, &s.TokensOut, &s.Cost, &lastServed); err != nil {
			return nil, fmt.Errorf("scan agent stats: %w", err)
		}
		s.LastServed, _ = time.Parse(time.RFC3339, lastServed)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRequest reads one request row.
func scanRequest(row rowScanner) (*models.Request, error) {
	req := &models.Request{}
	var status, submittedAt string
	var agent, output, errMsg, completedAt sql.NullString

	err := row.Scan(&req.ID, &req.Text, &status, &agent, &output, &errMsg,
		&submittedAt, &completedAt, &req.TokensIn, &req.TokensOut, &req.Cost)
	if err != nil {
		return nil, err
	}

	req.Status = models.RequestStatus(status)
	req.Agent = agent.String
	req.Output = output.String
	req.Error = errMsg.String
	req.SubmittedAt, _ = time.Parse(time.RFC3339, submittedAt)
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339, completedAt.String)
		if err == nil {
			req.CompletedAt = &t
		}
	}
	return req, nil
}

// requireRow errors when an update matched no request.
func requireRow(result sql.Result, requestID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return fmt.Errorf("request %s not found", requestID)
	}
	return nil
}
