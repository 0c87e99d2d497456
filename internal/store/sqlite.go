// Package store is the durable side of the system: users and documents
// in SQLite. The presence core never touches it; only the auth service
// and the document REST handlers do.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dkeye/Pages/internal/domain"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		color TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS document_collaborators (
		document_id TEXT NOT NULL REFERENCES documents(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		PRIMARY KEY (document_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_owner_id ON documents(owner_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a user with its bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, user *domain.User, passwordHash string) error {
	query := `INSERT INTO users (id, name, email, password, color) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, passwordHash, user.Color)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	query := `SELECT id, name, email, color FROM users WHERE id = ?`
	var u domain.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// UserByEmail returns the user and its stored password hash for login.
func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, string, error) {
	query := `SELECT id, name, email, color, password FROM users WHERE email = ?`
	var (
		u    domain.User
		hash string
	)
	err := s.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Name, &u.Email, &u.Color, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get user by email: %w", err)
	}
	return &u, hash, nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *domain.Document) error {
	query := `INSERT INTO documents (id, title, content, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, doc.ID, doc.Title, doc.Content, doc.OwnerID, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *Store) DocumentByID(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	query := `SELECT id, title, content, owner_id, created_at, updated_at FROM documents WHERE id = ?`
	var d domain.Document
	err := s.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Title, &d.Content, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	collabQuery := `SELECT user_id FROM document_collaborators WHERE document_id = ? ORDER BY user_id`
	rows, err := s.db.QueryContext(ctx, collabQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get collaborators: %w", err)
	}
	defer rows.Close()
	d.Collaborators = []domain.UserID{}
	for rows.Next() {
		var uid domain.UserID
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		d.Collaborators = append(d.Collaborators, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collaborators: %w", err)
	}
	return &d, nil
}

// UpdateDocument saves title and content. Last write wins; concurrent
// edits are not merged here.
func (s *Store) UpdateDocument(ctx context.Context, id domain.DocumentID, title, content string) error {
	query := `UPDATE documents SET title = ?, content = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, title, content, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DocumentsForUser lists documents the user owns or collaborates on.
func (s *Store) DocumentsForUser(ctx context.Context, uid domain.UserID) ([]domain.Document, error) {
	query := `
		SELECT DISTINCT d.id, d.title, d.content, d.owner_id, d.created_at, d.updated_at
		FROM documents d
		LEFT JOIN document_collaborators c ON c.document_id = d.id
		WHERE d.owner_id = ? OR c.user_id = ?
		ORDER BY d.updated_at DESC`
	rows, err := s.db.QueryContext(ctx, query, uid, uid)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := []domain.Document{}
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (s *Store) AddCollaborator(ctx context.Context, docID domain.DocumentID, uid domain.UserID) error {
	query := `INSERT OR IGNORE INTO document_collaborators (document_id, user_id) VALUES (?, ?)`
	_, err := s.db.ExecContext(ctx, query, docID, uid)
	if err != nil {
		return fmt.Errorf("add collaborator: %w", err)
	}
	return nil
}
