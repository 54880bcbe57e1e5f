package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Learning is a captured WHEN-DO-RESULT record: actionable knowledge
// distilled from a completed request.
type Learning struct {
	ID            string        // Unique identifier
	Agent         string        // Roster name of the agent that learned it
	Condition     string        // WHEN: the triggering condition
	Action        string        // DO: the action to take
	Outcome       string        // RESULT: the expected outcome
	TTL           time.Duration // Time-to-live (0 = permanent)
	CreatedAt     time.Time     // When the learning was created
	LastTriggered time.Time     // Last time this learning was recalled
	TriggerCount  int           // Number of times recalled
	SuccessCount  int           // Successful request completions using this learning
	FailureCount  int           // Failed request completions using this learning
}

// Effectiveness returns success_count / total outcome reports, or 1 when
// the learning has never been scored.
func (l *Learning) Effectiveness() float64 {
	total := l.SuccessCount + l.FailureCount
	if total == 0 {
		return 1
	}
	return float64(l.SuccessCount) / float64(total)
}

// Episode is a condensed record of one completed request.
type Episode struct {
	ID        string
	Agent     string
	Request   string
	Response  string
	CreatedAt time.Time
}

// Embedder produces vector embeddings for text. Optional: the brain
// falls back to keyword-only recall without one.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Brain is the tier-3 memory: SQLite-backed persistent storage of
// learnings and episodes shared by the whole workforce.
type Brain struct {
	db       *sql.DB
	dbPath   string
	embedder Embedder
	mu       sync.RWMutex
}

// DefaultBrainPath returns the brain database path under the XDG data dir.
func DefaultBrainPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "workforce", "brain.db")
}

// OpenBrain opens (creating if needed) the brain database at the given
// path. WAL mode is enabled for concurrent reads.
func OpenBrain(dbPath string) (*Brain, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create brain directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open brain database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	b := &Brain{db: conn, dbPath: dbPath}
	if err := b.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return b, nil
}

// SetEmbedder attaches an embedder for vector re-rank on recall.
func (b *Brain) SetEmbedder(e Embedder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.embedder = e
}

// Close closes the database connection.
func (b *Brain) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Close()
}

// Path returns the path to the database file.
func (b *Brain) Path() string {
	return b.dbPath
}

// migrate applies pending schema migrations.
func (b *Brain) migrate() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := b.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Learnings},
		{2, migrationV2Episodes},
		{3, migrationV3Embeddings},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := b.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Learnings = `
CREATE TABLE IF NOT EXISTS learnings (
	id TEXT PRIMARY KEY,
	agent TEXT NOT NULL,
	condition TEXT NOT NULL,
	action TEXT NOT NULL,
	outcome TEXT NOT NULL,
	ttl_seconds INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	last_triggered DATETIME,
	trigger_count INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_learnings_agent ON learnings(agent);
`

const migrationV2Episodes = `
CREATE TABLE IF NOT EXISTS episodes (
	id TEXT PRIMARY KEY,
	agent TEXT NOT NULL,
	request TEXT NOT NULL,
	response TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_episodes_agent ON episodes(agent);
`

const migrationV3Embeddings = `
CREATE TABLE IF NOT EXISTS embeddings (
	record_id TEXT PRIMARY KEY,
	vector TEXT NOT NULL
);
`

// SaveLearning stores a WHEN-DO-RESULT record. Records are append-only;
// compaction is the only path that removes them.
func (b *Brain) SaveLearning(ctx context.Context, agent, condition, action, outcome string) error {
	return b.SaveLearningTTL(ctx, agent, condition, action, outcome, 0)
}

// SaveLearningTTL stores a learning with a time-to-live. ttl of 0 means
// permanent.
func (b *Brain) SaveLearningTTL(ctx context.Context, agent, condition, action, outcome string, ttl time.Duration) error {
	if condition == "" || action == "" || outcome == "" {
		return fmt.Errorf("learning requires condition, action and outcome")
	}

	id := uuid.New().String()

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO learnings (id, agent, condition, action, outcome, ttl_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, agent, condition, action, outcome, int64(ttl.Seconds()), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save learning: %w", err)
	}

	b.storeEmbeddingLocked(ctx, id, condition+" "+action)
	return nil
}

// SaveEpisode records a completed request/response pair.
func (b *Brain) SaveEpisode(ctx context.Context, agent, request, response string) error {
	id := uuid.New().String()

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO episodes (id, agent, request, response, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, agent, request, response, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save episode: %w", err)
	}

	b.storeEmbeddingLocked(ctx, id, request)
	return nil
}

// storeEmbeddingLocked stores the record's embedding when an embedder is
// attached. Embedding failures are deliberately non-fatal: keyword recall
// still works without vectors. Caller holds mu.
func (b *Brain) storeEmbeddingLocked(ctx context.Context, id, text string) {
	if b.embedder == nil {
		return
	}
	vec, err := b.embedder.Embed(ctx, text)
	if err != nil {
		return
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	b.db.ExecContext(ctx, "INSERT OR REPLACE INTO embeddings (record_id, vector) VALUES (?, ?)", id, string(data))
}

// RecallResult is one scored recall hit.
type RecallResult struct {
	Learning   *Learning
	Episode    *Episode
	Score      float64
	Similarity float64 // Cosine similarity when an embedder is attached
}

// Recall searches learnings and episodes for records relevant to the
// query. Scoring is keyword overlap; when an embedder is attached the
// candidates are re-ranked by cosine similarity.
func (b *Brain) Recall(ctx context.Context, query string, limit int) ([]RecallResult, error) {
	if limit <= 0 {
		limit = 10
	}

	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return nil, nil
	}

	results, err := b.scoreCandidates(ctx, query, keywords)
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if len(results) > limit {
		results = results[:limit]
	}

	b.touchLearnings(ctx, results)

	return results, nil
}

// scoreCandidates gathers and scores matching records under the read
// lock.
func (b *Brain) scoreCandidates(ctx context.Context, query string, keywords []string) ([]RecallResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var results []RecallResult

	learnings, err := b.candidateLearnings(ctx, keywords)
	if err != nil {
		return nil, err
	}
	for _, l := range learnings {
		score := keywordScore(l.Condition+" "+l.Action+" "+l.Outcome, keywords)
		if score == 0 {
			continue
		}
		// Weight learnings by how well they have worked before.
		results = append(results, RecallResult{Learning: l, Score: score * l.Effectiveness()})
	}

	episodes, err := b.candidateEpisodes(ctx, keywords)
	if err != nil {
		return nil, err
	}
	for _, e := range episodes {
		score := keywordScore(e.Request+" "+e.Response, keywords)
		if score == 0 {
			continue
		}
		// Episodes rank below learnings of equal overlap.
		results = append(results, RecallResult{Episode: e, Score: score * 0.5})
	}

	if b.embedder != nil {
		b.rerankBySimilarity(ctx, query, results)
	}

	return results, nil
}

// touchLearnings bumps trigger stats for recalled learnings. Takes the
// write lock; recall scoring must have released the read lock first.
func (b *Brain) touchLearnings(ctx context.Context, results []RecallResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := formatTime(time.Now())
	for _, r := range results {
		if r.Learning == nil {
			continue
		}
		_, err := b.db.ExecContext(ctx, `
			UPDATE learnings SET trigger_count = trigger_count + 1, last_triggered = ?
			WHERE id = ?
		`, now, r.Learning.ID)
		if err != nil {
			log.Printf("[brain] touch learning %s: %v", r.Learning.ID, err)
		}
	}
}

// RecallFormatted returns recall hits formatted for prompt injection.
func (b *Brain) RecallFormatted(ctx context.Context, query string, limit int) ([]string, error) {
	results, err := b.Recall(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, r := range results {
		switch {
		case r.Learning != nil:
			out = append(out, fmt.Sprintf("WHEN %s DO %s RESULT %s",
				r.Learning.Condition, r.Learning.Action, r.Learning.Outcome))
		case r.Episode != nil:
			out = append(out, fmt.Sprintf("PAST REQUEST %q: %s",
				r.Episode.Request, firstLine(r.Episode.Response)))
		}
	}
	return out, nil
}

// candidateLearnings fetches learnings matching any keyword via LIKE.
func (b *Brain) candidateLearnings(ctx context.Context, keywords []string) ([]*Learning, error) {
	var conditions []string
	var args []interface{}
	for _, kw := range keywords {
		conditions = append(conditions, "(LOWER(condition) LIKE ? OR LOWER(action) LIKE ? OR LOWER(outcome) LIKE ?)")
		pattern := "%" + kw + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := fmt.Sprintf(`
		SELECT id, agent, condition, action, outcome, ttl_seconds, created_at,
		       last_triggered, trigger_count, success_count, failure_count
		FROM learnings WHERE %s
	`, strings.Join(conditions, " OR "))

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query learnings: %w", err)
	}
	defer rows.Close()

	var learnings []*Learning
	for rows.Next() {
		l, err := scanLearning(rows)
		if err != nil {
			return nil, err
		}
		if expired(l, time.Now()) {
			continue
		}
		learnings = append(learnings, l)
	}
	return learnings, rows.Err()
}

// candidateEpisodes fetches episodes matching any keyword via LIKE.
func (b *Brain) candidateEpisodes(ctx context.Context, keywords []string) ([]*Episode, error) {
	var conditions []string
	var args []interface{}
	for _, kw := range keywords {
		conditions = append(conditions, "(LOWER(request) LIKE ? OR LOWER(response) LIKE ?)")
		pattern := "%" + kw + "%"
		args = append(args, pattern, pattern)
	}

	query := fmt.Sprintf(`
		SELECT id, agent, request, response, created_at
		FROM episodes WHERE %s ORDER BY created_at DESC LIMIT 50
	`, strings.Join(conditions, " OR "))

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		e := &Episode{}
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Agent, &e.Request, &e.Response, &createdAt); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		e.CreatedAt, _ = parseTime(createdAt)
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

// rerankBySimilarity blends cosine similarity into candidate scores.
func (b *Brain) rerankBySimilarity(ctx context.Context, query string, results []RecallResult) {
	queryVec, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return
	}

	for i := range results {
		var id string
		if results[i].Learning != nil {
			id = results[i].Learning.ID
		} else if results[i].Episode != nil {
			id = results[i].Episode.ID
		}

		var vecJSON string
		row := b.db.QueryRowContext(ctx, "SELECT vector FROM embeddings WHERE record_id = ?", id)
		if err := row.Scan(&vecJSON); err != nil {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
			continue
		}

		sim := cosineSimilarity(queryVec, vec)
		results[i].Similarity = sim
		results[i].Score = results[i].Score * (1 + sim)
	}
}

// MarkOutcome records whether a request that recalled this learning
// succeeded. Effectiveness feeds recall ranking and compaction.
func (b *Brain) MarkOutcome(ctx context.Context, learningID string, success bool) error {
	column := "failure_count"
	if success {
		column = "success_count"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE learnings SET %s = %s + 1 WHERE id = ?", column, column), learningID)
	if err != nil {
		return fmt.Errorf("mark outcome: %w", err)
	}
	return nil
}

// Compact removes expired-TTL learnings and learnings that have proven
// ineffective (effectiveness below 0.25 over at least 4 outcomes).
// Returns the number of removed records.
func (b *Brain) Compact(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed int64

	// Expired TTL.
	result, err := b.db.ExecContext(ctx, `
		DELETE FROM learnings
		WHERE ttl_seconds > 0
		  AND datetime(created_at, '+' || ttl_seconds || ' seconds') < datetime('now')
	`)
	if err != nil {
		return 0, fmt.Errorf("compact expired learnings: %w", err)
	}
	n, _ := result.RowsAffected()
	removed += n

	// Ineffective.
	result, err = b.db.ExecContext(ctx, `
		DELETE FROM learnings
		WHERE success_count + failure_count >= 4
		  AND CAST(success_count AS REAL) / (success_count + failure_count) < 0.25
	`)
	if err != nil {
		return 0, fmt.Errorf("compact ineffective learnings: %w", err)
	}
	n, _ = result.RowsAffected()
	removed += n

	// Orphaned embeddings.
	b.db.ExecContext(ctx, `
		DELETE FROM embeddings
		WHERE record_id NOT IN (SELECT id FROM learnings)
		  AND record_id NOT IN (SELECT id FROM episodes)
	`)

	return removed, nil
}

// Counts returns the number of stored learnings and episodes.
func (b *Brain) Counts(ctx context.Context) (learnings, episodes int64, err error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	row := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM learnings")
	if err := row.Scan(&learnings); err != nil {
		return 0, 0, fmt.Errorf("count learnings: %w", err)
	}
	row = b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM episodes")
	if err := row.Scan(&episodes); err != nil {
		return 0, 0, fmt.Errorf("count episodes: %w", err)
	}
	return learnings, episodes, nil
}

// scanLearning reads one learning row.
func scanLearning(rows *sql.Rows) (*Learning, error) {
	l := &Learning{}
	var ttlSeconds int64
	var createdAt string
	var lastTriggered sql.NullString
	if err := rows.Scan(&l.ID, &l.Agent, &l.Condition, &l.Action, &l.Outcome,
		&ttlSeconds, &createdAt, &lastTriggered,
		&l.TriggerCount, &l.SuccessCount, &l.FailureCount); err != nil {
		return nil, fmt.Errorf("scan learning: %w", err)
	}
	l.TTL = time.Duration(ttlSeconds) * time.Second
	l.CreatedAt, _ = parseTime(createdAt)
	if lastTriggered.Valid {
		l.LastTriggered, _ = parseTime(lastTriggered.String)
	}
	return l, nil
}

// expired reports whether a TTL-bearing learning has lapsed.
func expired(l *Learning, now time.Time) bool {
	if l.TTL == 0 {
		return false
	}
	return now.After(l.CreatedAt.Add(l.TTL))
}

// keywordScore counts how many distinct query keywords appear in the text.
func keywordScore(text string, keywords []string) float64 {
	lower := strings.ToLower(text)
	var score float64
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}
	return score
}

// cosineSimilarity computes cosine similarity between two vectors.
// Mismatched lengths yield 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// firstLine returns the first line of a multi-line string.
func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
