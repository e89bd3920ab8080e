// Package store persists executions, attempts, and QA feedback in SQLite.
// One feedback row per execution: it is replaced on every failed attempt
// and deleted on success, mirroring the in-memory remediation loop.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"draftguard/internal/logging"
	"draftguard/internal/orchestrator"
	"draftguard/internal/types"
)

// LocalStore implements execution persistence using SQLite.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// ExecutionRow is one stored execution.
type ExecutionRow struct {
	ID         string
	TaskPrompt string
	Outcome    string
	Attempts   int
	CreatedAt  time.Time
	FinishedAt sql.NullTime
}

// NewLocalStore initializes the SQLite database at the given path.
func NewLocalStore(path string) (*LocalStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &LocalStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize creates the required tables.
func (s *LocalStore) initialize() error {
	executionsTable := `
	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		task_prompt TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT 'running',
		attempts INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME
	);
	`

	attemptsTable := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		execution_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		document_json TEXT NOT NULL,
		report_json TEXT NOT NULL,
		validation_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(execution_id, number)
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_execution ON attempts(execution_id);
	`

	clarificationsTable := `
	CREATE TABLE IF NOT EXISTS clarifications (
		execution_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		clarification_json TEXT NOT NULL,
		PRIMARY KEY (execution_id, position)
	);
	`

	feedbackTable := `
	CREATE TABLE IF NOT EXISTS feedback (
		execution_id TEXT PRIMARY KEY,
		attempt_id TEXT NOT NULL,
		findings_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	for _, table := range []string{executionsTable, attemptsTable, clarificationsTable, feedbackTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// CreateExecution registers a new execution before its first attempt.
func (s *LocalStore) CreateExecution(executionID, taskPrompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO executions (id, task_prompt) VALUES (?, ?)",
		executionID, taskPrompt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}
	return nil
}

// FinishExecution records the terminal outcome.
func (s *LocalStore) FinishExecution(executionID string, outcome types.Outcome, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE executions SET outcome = ?, attempts = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?",
		string(outcome), attempts, executionID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish execution: %w", err)
	}
	return nil
}

// SaveClarifications persists the execution's input clarification set in
// order. Replaces any previous set for the execution.
func (s *LocalStore) SaveClarifications(executionID string, cs []types.Clarification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM clarifications WHERE execution_id = ?", executionID); err != nil {
		return fmt.Errorf("failed to clear clarifications: %w", err)
	}
	for i, c := range cs {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to serialize clarification %s: %w", c.ID, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO clarifications (execution_id, position, clarification_json) VALUES (?, ?, ?)",
			executionID, i, string(data),
		); err != nil {
			return fmt.Errorf("failed to save clarification %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetClarifications returns the execution's input clarification set in order.
func (s *LocalStore) GetClarifications(executionID string) ([]types.Clarification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT clarification_json FROM clarifications WHERE execution_id = ? ORDER BY position",
		executionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list clarifications: %w", err)
	}
	defer rows.Close()

	var out []types.Clarification
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan clarification: %w", err)
		}
		var c types.Clarification
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("stored clarification does not parse: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveAttempt persists one attempt's full audit record.
func (s *LocalStore) SaveAttempt(executionID string, rec orchestrator.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docJSON, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	reportJSON, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	validationJSON, err := json.Marshal(rec.Validation)
	if err != nil {
		return fmt.Errorf("failed to serialize validation result: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO attempts (id, execution_id, number, document_json, report_json, validation_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, executionID, rec.Number, string(docJSON), string(reportJSON), string(validationJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}

	logging.Get(logging.CategoryStore).Debug("saved attempt %d of execution %s", rec.Number, executionID)
	return nil
}

// SetFeedback replaces the execution's live feedback record.
func (s *LocalStore) SetFeedback(executionID string, rec types.QAFeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	findingsJSON, err := json.Marshal(rec.Findings)
	if err != nil {
		return fmt.Errorf("failed to serialize findings: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO feedback (execution_id, attempt_id, findings_json) VALUES (?, ?, ?)",
		executionID, rec.AttemptID, string(findingsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to set feedback: %w", err)
	}
	return nil
}

// ClearFeedback removes the execution's feedback record after a success.
func (s *LocalStore) ClearFeedback(executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM feedback WHERE execution_id = ?", executionID); err != nil {
		return fmt.Errorf("failed to clear feedback: %w", err)
	}
	return nil
}

// GetFeedback returns the execution's live feedback record, or nil.
func (s *LocalStore) GetFeedback(executionID string) (*types.QAFeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var attemptID, findingsJSON string
	var createdAt time.Time
	err := s.db.QueryRow(
		"SELECT attempt_id, findings_json, created_at FROM feedback WHERE execution_id = ?",
		executionID,
	).Scan(&attemptID, &findingsJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback: %w", err)
	}

	rec := &types.QAFeedbackRecord{AttemptID: attemptID, CreatedAt: createdAt}
	if err := json.Unmarshal([]byte(findingsJSON), &rec.Findings); err != nil {
		return nil, fmt.Errorf("stored findings do not parse: %w", err)
	}
	return rec, nil
}

// GetExecution returns one execution row.
func (s *LocalStore) GetExecution(executionID string) (*ExecutionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := &ExecutionRow{}
	err := s.db.QueryRow(
		"SELECT id, task_prompt, outcome, attempts, created_at, finished_at FROM executions WHERE id = ?",
		executionID,
	).Scan(&row.ID, &row.TaskPrompt, &row.Outcome, &row.Attempts, &row.CreatedAt, &row.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("execution %s not found", executionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read execution: %w", err)
	}
	return row, nil
}

// ListExecutions returns recent executions, newest first.
func (s *LocalStore) ListExecutions(limit int) ([]ExecutionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		"SELECT id, task_prompt, outcome, attempts, created_at, finished_at FROM executions ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var out []ExecutionRow
	for rows.Next() {
		var r ExecutionRow
		if err := rows.Scan(&r.ID, &r.TaskPrompt, &r.Outcome, &r.Attempts, &r.CreatedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListAttempts returns an execution's attempts in order.
func (s *LocalStore) ListAttempts(executionID string) ([]orchestrator.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, number, document_json, report_json, validation_json FROM attempts WHERE execution_id = ? ORDER BY number",
		executionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var out []orchestrator.AttemptRecord
	for rows.Next() {
		var rec orchestrator.AttemptRecord
		var docJSON, reportJSON, validationJSON string
		if err := rows.Scan(&rec.ID, &rec.Number, &docJSON, &reportJSON, &validationJSON); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if err := json.Unmarshal([]byte(docJSON), &rec.Document); err != nil {
			return nil, fmt.Errorf("stored document does not parse: %w", err)
		}
		if err := json.Unmarshal([]byte(reportJSON), &rec.Report); err != nil {
			return nil, fmt.Errorf("stored report does not parse: %w", err)
		}
		if err := json.Unmarshal([]byte(validationJSON), &rec.Validation); err != nil {
			return nil, fmt.Errorf("stored validation result does not parse: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
