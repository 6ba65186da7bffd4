// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// SQLite is the durable Store backend.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database at cfg.Path, creating parent
// directories and the schema as needed.
func NewSQLite(cfg types.StoreConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, errors.New("store path is required for the sqlite backend")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS drafts (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT,
			prompt TEXT,
			enhanced_prompt TEXT,
			outline TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_owner ON drafts(owner_id)`,
		`CREATE TABLE IF NOT EXISTS presentations (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			draft_id TEXT,
			title TEXT,
			outline TEXT NOT NULL,
			slides TEXT NOT NULL,
			citation_style TEXT,
			theme TEXT,
			status TEXT NOT NULL,
			error_message TEXT,
			token_total INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_presentations_owner ON presentations(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_presentations_status ON presentations(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// CreateDraft inserts d, assigning an id and timestamps when absent.
func (s *SQLite) CreateDraft(ctx context.Context, d types.Draft) (types.Draft, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	outlineJSON, err := json.Marshal(d.Outline)
	if err != nil {
		return types.Draft{}, fmt.Errorf("marshaling outline: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (id, owner_id, title, prompt, enhanced_prompt, outline, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, d.Title, d.Prompt, d.EnhancedPrompt,
		string(outlineJSON), formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		return types.Draft{}, fmt.Errorf("inserting draft: %w", err)
	}
	return d, nil
}

func scanDraft(row interface{ Scan(...any) error }) (types.Draft, error) {
	var d types.Draft
	var outlineJSON, createdAt, updatedAt string
	err := row.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Prompt, &d.EnhancedPrompt,
		&outlineJSON, &createdAt, &updatedAt)
	if err != nil {
		return types.Draft{}, err
	}
	if err := json.Unmarshal([]byte(outlineJSON), &d.Outline); err != nil {
		return types.Draft{}, fmt.Errorf("parsing outline: %w", err)
	}
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}

const draftColumns = `id, owner_id, title, prompt, enhanced_prompt, outline, created_at, updated_at`

// GetDraft returns the draft with the given id within the owner scope.
func (s *SQLite) GetDraft(ctx context.Context, id, ownerID string) (types.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = ?`
	args := []any{id}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	d, err := scanDraft(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Draft{}, ErrNotFound
	}
	if err != nil {
		return types.Draft{}, fmt.Errorf("reading draft: %w", err)
	}
	return d, nil
}

// UpdateDraft merges p into the stored draft inside one transaction.
func (s *SQLite) UpdateDraft(ctx context.Context, id, ownerID string, p DraftPatch) (types.Draft, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Draft{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = ?`
	args := []any{id}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	d, err := scanDraft(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Draft{}, ErrNotFound
	}
	if err != nil {
		return types.Draft{}, fmt.Errorf("reading draft: %w", err)
	}

	applyDraftPatch(&d, p)
	d.UpdatedAt = time.Now().UTC()

	outlineJSON, err := json.Marshal(d.Outline)
	if err != nil {
		return types.Draft{}, fmt.Errorf("marshaling outline: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE drafts SET title = ?, enhanced_prompt = ?, outline = ?, updated_at = ? WHERE id = ?`,
		d.Title, d.EnhancedPrompt, string(outlineJSON), formatTime(d.UpdatedAt), d.ID,
	)
	if err != nil {
		return types.Draft{}, fmt.Errorf("updating draft: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.Draft{}, fmt.Errorf("committing draft update: %w", err)
	}
	return d, nil
}

// DeleteDraft removes the draft with the given id within the owner scope.
func (s *SQLite) DeleteDraft(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM drafts WHERE id = ?`
	args := []any{id}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDraftsByOwner returns the owner's drafts, newest first.
func (s *SQLite) ListDraftsByOwner(ctx context.Context, ownerID string) ([]types.Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	defer rows.Close()

	var out []types.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning draft: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const presentationColumns = `id, owner_id, draft_id, title, outline, slides, citation_style, theme,
	status, error_message, token_total, version, created_at, updated_at`

// CreatePresentation inserts p, assigning an id, version 1, and timestamps.
func (s *SQLite) CreatePresentation(ctx context.Context, p types.Presentation) (types.Presentation, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1

	outlineJSON, err := json.Marshal(p.Outline)
	if err != nil {
		return types.Presentation{}, fmt.Errorf("marshaling outline: %w", err)
	}
	slidesJSON, err := json.Marshal(p.Slides)
	if err != nil {
		return types.Presentation{}, fmt.Errorf("marshaling slides: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO presentations (id, owner_id, draft_id, title, outline, slides, citation_style, theme,
			status, error_message, token_total, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.DraftID, p.Title, string(outlineJSON), string(slidesJSON),
		p.CitationStyle, p.Theme, string(p.Status), p.ErrorMessage,
		p.TokenUsage.Total, p.Version, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return types.Presentation{}, fmt.Errorf("inserting presentation: %w", err)
	}
	return p, nil
}

func scanPresentation(row interface{ Scan(...any) error }) (types.Presentation, error) {
	var p types.Presentation
	var outlineJSON, slidesJSON, status, createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.OwnerID, &p.DraftID, &p.Title, &outlineJSON, &slidesJSON,
		&p.CitationStyle, &p.Theme, &status, &p.ErrorMessage,
		&p.TokenUsage.Total, &p.Version, &createdAt, &updatedAt)
	if err != nil {
		return types.Presentation{}, err
	}
	if err := json.Unmarshal([]byte(outlineJSON), &p.Outline); err != nil {
		return types.Presentation{}, fmt.Errorf("parsing outline: %w", err)
	}
	if err := json.Unmarshal([]byte(slidesJSON), &p.Slides); err != nil {
		return types.Presentation{}, fmt.Errorf("parsing slides: %w", err)
	}
	p.Status = types.Status(status)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// GetPresentation returns the presentation with the given id within the
// owner scope.
func (s *SQLite) GetPresentation(ctx context.Context, id, ownerID string) (types.Presentation, error) {
	query := `SELECT ` + presentationColumns + ` FROM presentations WHERE id = ?`
	args := []any{id}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	p, err := scanPresentation(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Presentation{}, ErrNotFound
	}
	if err != nil {
		return types.Presentation{}, fmt.Errorf("reading presentation: %w", err)
	}
	return p, nil
}

// UpdatePresentation merges patch into the stored presentation. Status is
// not reachable through this path.
func (s *SQLite) UpdatePresentation(ctx context.Context, id, ownerID string, patch PresentationPatch) (types.Presentation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Presentation{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + presentationColumns + ` FROM presentations WHERE id = ?`
	args := []any{id}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	p, err := scanPresentation(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Presentation{}, ErrNotFound
	}
	if err != nil {
		return types.Presentation{}, fmt.Errorf("reading presentation: %w", err)
	}

	applyPresentationPatch(&p, patch)
	p.Version++
	p.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE presentations SET title = ?, citation_style = ?, theme = ?, version = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.CitationStyle, p.Theme, p.Version, formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return types.Presentation{}, fmt.Errorf("updating presentation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.Presentation{}, fmt.Errorf("committing presentation update: %w", err)
	}
	return p, nil
}

// DeletePresentation removes the presentation with the given id within
// the owner scope.
func (s *SQLite) DeletePresentation(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM presentations WHERE id = ?`
	args := []any{id}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting presentation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPresentationsByOwner returns the owner's presentations, newest first.
func (s *SQLite) ListPresentationsByOwner(ctx context.Context, ownerID string) ([]types.Presentation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+presentationColumns+` FROM presentations WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing presentations: %w", err)
	}
	defer rows.Close()

	var out []types.Presentation
	for rows.Next() {
		p, err := scanPresentation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning presentation: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// transition performs a version-checked terminal status write. The WHERE
// clause carries the version and the generating status, so a concurrent
// writer or a repeated transition makes RowsAffected zero; a follow-up
// read distinguishes the cause.
func (s *SQLite) transition(ctx context.Context, id string, expectedVersion int64, set string, args []any) (types.Presentation, error) {
	now := time.Now().UTC()
	allArgs := append(args, expectedVersion+1, formatTime(now), id, expectedVersion, string(types.StatusGenerating))

	res, err := s.db.ExecContext(ctx,
		`UPDATE presentations SET `+set+`, version = ?, updated_at = ?
		 WHERE id = ? AND version = ? AND status = ?`, allArgs...)
	if err != nil {
		return types.Presentation{}, fmt.Errorf("transitioning presentation: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		p, err := s.GetPresentation(ctx, id, "")
		if err != nil {
			return types.Presentation{}, ErrNotFound
		}
		if p.Status.Terminal() {
			return types.Presentation{}, ErrTerminal
		}
		return types.Presentation{}, ErrVersionConflict
	}
	return s.GetPresentation(ctx, id, "")
}

// CompleteGeneration moves a generating presentation to completed.
func (s *SQLite) CompleteGeneration(ctx context.Context, id string, expectedVersion int64, slides []types.Slide, usage types.TokenUsage) (types.Presentation, error) {
	slidesJSON, err := json.Marshal(slides)
	if err != nil {
		return types.Presentation{}, fmt.Errorf("marshaling slides: %w", err)
	}
	return s.transition(ctx, id, expectedVersion,
		`status = ?, slides = ?, token_total = ?`,
		[]any{string(types.StatusCompleted), string(slidesJSON), usage.Total},
	)
}

// FailGeneration moves a generating presentation to failed.
func (s *SQLite) FailGeneration(ctx context.Context, id string, expectedVersion int64, message string) (types.Presentation, error) {
	return s.transition(ctx, id, expectedVersion,
		`status = ?, error_message = ?`,
		[]any{string(types.StatusFailed), message},
	)
}
