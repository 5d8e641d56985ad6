// Package sqlite provides a SQLite-backed implementation of the storage ports.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

// DefaultTokenKey is the kv key the access token is stored under.
const DefaultTokenKey = "emotune:spotify_token"

// Adapter implements TokenStore and TrackRepository for SQLite.
type Adapter struct {
	db       *sql.DB
	tokenKey string
}

var (
	_ ports.TokenStore      = (*Adapter)(nil)
	_ ports.TrackRepository = (*Adapter)(nil)
)

// NewAdapter creates a connection and runs the schema migration.
// An empty tokenKey uses DefaultTokenKey.
func NewAdapter(storagePath, tokenKey string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent and
	// serializes writers
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if tokenKey == "" {
		tokenKey = DefaultTokenKey
	}
	adapter := &Adapter{db: db, tokenKey: tokenKey}

	if err := adapter.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// LoadToken returns the persisted access token or domain.ErrNotFound.
func (a *Adapter) LoadToken(ctx context.Context) (string, error) {
	var token string
	err := a.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", a.tokenKey).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	if token == "" {
		return "", domain.ErrNotFound
	}
	return token, nil
}

// SaveToken stores token, replacing any previous one.
func (a *Adapter) SaveToken(ctx context.Context, token string) error {
	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at;
	`
	if _, err := a.db.ExecContext(ctx, query, a.tokenKey, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// ClearToken removes the stored token. Clearing an empty store is not an error.
func (a *Adapter) ClearToken(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", a.tokenKey); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// SaveTracks upserts track metadata. Previously computed energy is kept.
func (a *Adapter) SaveTracks(ctx context.Context, tracks []domain.Track) error {
	// 1. Start Transaction
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	// 2. Prepare the upsert once
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (id, name, artist, artwork_url, uri, preview_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			artist=excluded.artist,
			artwork_url=excluded.artwork_url,
			uri=excluded.uri,
			preview_url=excluded.preview_url,
			updated_at=CURRENT_TIMESTAMP;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare track upsert: %w", err)
	}
	defer stmt.Close()

	// 3. Upsert
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, t.ID, t.Name, t.Artist, t.ArtworkURL, t.URI, t.PreviewURL); err != nil {
			return fmt.Errorf("failed to save track %s: %w", t.ID, err)
		}
	}

	// 4. Commit Transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// GetTrack loads a cached track by id.
func (a *Adapter) GetTrack(ctx context.Context, id string) (domain.Track, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, name, artist, artwork_url, uri, preview_url, IFNULL(energy, 0)
		FROM tracks WHERE id = ?
	`, id)

	var track domain.Track
	var artworkURL, uri, previewURL sql.NullString
	if err := row.Scan(&track.ID, &track.Name, &track.Artist, &artworkURL, &uri, &previewURL, &track.Energy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Track{}, domain.ErrNotFound
		}
		return domain.Track{}, fmt.Errorf("failed to load track: %w", err)
	}
	track.ArtworkURL = artworkURL.String
	track.URI = uri.String
	track.PreviewURL = previewURL.String
	return track, nil
}

// UpdateTrackEnergy stores the preview energy for a cached track.
func (a *Adapter) UpdateTrackEnergy(ctx context.Context, id string, energy float64) error {
	res, err := a.db.ExecContext(ctx,
		"UPDATE tracks SET energy = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		energy, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update track energy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update track energy: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		artist TEXT NOT NULL,
		artwork_url TEXT,
		uri TEXT,
		preview_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// energy arrived after the first schema
	if _, err := a.db.Exec("ALTER TABLE tracks ADD COLUMN energy REAL"); err != nil {
		if !isDuplicateColumnError(err) {
			return err
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
