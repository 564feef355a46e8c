package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hession/krishimate/internal/embedding"
)

// keywordQueryLimit caps the substring used for LIKE searches.
const keywordQueryLimit = 50

// SQLiteStore SQLite fact storage implementation
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}

	// Initialize tables
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return store, nil
}

// initTables initializes database tables
func (s *SQLiteStore) initTables() error {
	queries := []string{
		// Long-term facts with embedded vectors
		`CREATE TABLE IF NOT EXISTS facts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			category TEXT NOT NULL,
			importance INTEGER NOT NULL DEFAULT 5,
			access_count INTEGER NOT NULL DEFAULT 0,
			embedding BLOB,
			norm REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		// Conversation history
		`CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_facts_user_id ON facts(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_category ON facts(user_id, category)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_user_id ON turns(user_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute SQL: %s, error: %w", query, err)
		}
	}

	return nil
}

// CreateFact inserts a new fact, assigning an ID when missing
func (s *SQLiteStore) CreateFact(fact *Fact) error {
	if fact.ID == "" {
		fact.ID = uuid.New().String()
	}
	now := time.Now()
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = now
	}
	fact.UpdatedAt = now

	var blob []byte
	var norm float64
	if len(fact.Embedding) > 0 {
		blob = embedding.VectorToBlob(fact.Embedding)
		norm = embedding.Norm(fact.Embedding)
	}

	_, err := s.db.Exec(
		`INSERT INTO facts (id, user_id, content, category, importance, access_count, embedding, norm, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fact.ID, fact.UserID, fact.Content, fact.Category, fact.Importance,
		fact.AccessCount, blob, norm, fact.CreatedAt, fact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create fact: %w", err)
	}

	return nil
}

// GetFacts returns all facts for a user, newest first
func (s *SQLiteStore) GetFacts(userID string) ([]*Fact, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, content, category, importance, access_count, embedding, created_at, updated_at
		 FROM facts WHERE user_id = ? ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get facts: %w", err)
	}
	defer rows.Close()

	return scanFacts(rows)
}

// GetFact returns a single fact by ID
func (s *SQLiteStore) GetFact(id string) (*Fact, error) {
	var fact Fact
	var blob []byte
	err := s.db.QueryRow(
		`SELECT id, user_id, content, category, importance, access_count, embedding, created_at, updated_at
		 FROM facts WHERE id = ?`,
		id,
	).Scan(&fact.ID, &fact.UserID, &fact.Content, &fact.Category, &fact.Importance,
		&fact.AccessCount, &blob, &fact.CreatedAt, &fact.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrFactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fact: %w", err)
	}

	if len(blob) > 0 {
		fact.Embedding = embedding.BlobToVector(blob)
	}

	return &fact, nil
}

// UpdateFactContent replaces a fact's content and importance
func (s *SQLiteStore) UpdateFactContent(id, content string, importance int) error {
	result, err := s.db.Exec(
		`UPDATE facts SET content = ?, importance = ?, updated_at = ? WHERE id = ?`,
		content, importance, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update fact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated row count: %w", err)
	}
	if rows == 0 {
		return ErrFactNotFound
	}

	return nil
}

// BoostFact increments a fact's access count and refreshes its timestamp
func (s *SQLiteStore) BoostFact(id string) error {
	result, err := s.db.Exec(
		`UPDATE facts SET access_count = access_count + 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to boost fact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get boosted row count: %w", err)
	}
	if rows == 0 {
		return ErrFactNotFound
	}

	return nil
}

// DeleteFact removes a single fact owned by the user
func (s *SQLiteStore) DeleteFact(userID, id string) error {
	result, err := s.db.Exec("DELETE FROM facts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete fact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get deleted row count: %w", err)
	}
	if rows == 0 {
		return ErrFactNotFound
	}

	return nil
}

// ClearFacts removes all facts for a user
func (s *SQLiteStore) ClearFacts(userID string) error {
	_, err := s.db.Exec("DELETE FROM facts WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to clear facts: %w", err)
	}
	return nil
}

// SearchFactsKeyword is the fallback text search when embeddings are
// unavailable
func (s *SQLiteStore) SearchFactsKeyword(userID, query string, limit int) ([]*Fact, error) {
	if len(query) > keywordQueryLimit {
		query = query[:keywordQueryLimit]
	}

	rows, err := s.db.Query(
		`SELECT id, user_id, content, category, importance, access_count, embedding, created_at, updated_at
		 FROM facts
		 WHERE user_id = ? AND content LIKE ?
		 ORDER BY importance DESC
		 LIMIT ?`,
		userID, "%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search facts: %w", err)
	}
	defer rows.Close()

	return scanFacts(rows)
}

// CountByCategory returns fact counts per category for a user
func (s *SQLiteStore) CountByCategory(userID string) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT category, COUNT(*) FROM facts WHERE user_id = ? GROUP BY category`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count facts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[category] = count
	}

	return counts, rows.Err()
}

// SaveTurn persists one conversation message
func (s *SQLiteStore) SaveTurn(turn *Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	result, err := s.db.Exec(
		"INSERT INTO turns (user_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		turn.UserID, turn.Role, turn.Content, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		turn.ID = id
	}

	return nil
}

// RecentTurns returns the latest turns for a user in chronological order
func (s *SQLiteStore) RecentTurns(userID string, limit int) ([]*Turn, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, role, content, created_at
		 FROM turns WHERE user_id = ?
		 ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get turns: %w", err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	// Reverse so turns are in chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanFacts reads fact rows including embeddings
func scanFacts(rows *sql.Rows) ([]*Fact, error) {
	var facts []*Fact
	for rows.Next() {
		var fact Fact
		var blob []byte
		if err := rows.Scan(&fact.ID, &fact.UserID, &fact.Content, &fact.Category, &fact.Importance,
			&fact.AccessCount, &blob, &fact.CreatedAt, &fact.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		if len(blob) > 0 {
			fact.Embedding = embedding.BlobToVector(blob)
		}
		facts = append(facts, &fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate facts: %w", err)
	}
	return facts, nil
}
