// package repositories provides the persistence layer for locally-held
// session credentials.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

const (
	slotAccess  = "access_token"
	slotRefresh = "refresh_token"
)

const tokensSchema = `
	CREATE TABLE IF NOT EXISTS tokens (
		slot TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)
`

// TokenRepository stores the access/refresh token pair in SQLite.
//
// The session manager is the sole writer; everything else reads the current
// token through the session. Failed reads degrade to an empty pair rather
// than propagating, and no write error is fatal to callers: losing durable
// tokens only costs a re-login.
type TokenRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewTokenRepository creates a [TokenRepository] with the given database connection.
func NewTokenRepository(db *sql.DB, logger *log.Logger) *TokenRepository {
	return &TokenRepository{db: db, logger: logger}
}

// Migrate creates the tokens table if it does not exist.
func (r *TokenRepository) Migrate() error {
	if _, err := r.db.Exec(tokensSchema); err != nil {
		return fmt.Errorf("failed to create tokens table: %w", err)
	}
	return nil
}

// Persist writes the token pair in a single transaction.
//
// The pair is always written together: an empty slot deletes that entry, so
// persisting an empty token clears any prior state. Partial writes cannot be
// observed by a concurrent Load.
func (r *TokenRepository) Persist(token *oauth2.Token) error {
	access, refresh := "", ""
	if token != nil {
		access = token.AccessToken
		refresh = token.RefreshToken
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for slot, value := range map[string]string{slotAccess: access, slotRefresh: refresh} {
		if value == "" {
			if _, err := tx.Exec(`DELETE FROM tokens WHERE slot = ?`, slot); err != nil {
				return fmt.Errorf("failed to clear %s: %w", slot, err)
			}
			continue
		}

		query := `
			INSERT INTO tokens (slot, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`
		if _, err := tx.Exec(query, slot, value, now); err != nil {
			return fmt.Errorf("failed to store %s: %w", slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit token write: %w", err)
	}

	return nil
}

// Load reads the stored token pair.
//
// Always returns a non-nil token; missing or unreadable slots come back as
// empty strings. Storage errors are logged and swallowed so a corrupt or
// unavailable database never blocks startup.
func (r *TokenRepository) Load() *oauth2.Token {
	token := &oauth2.Token{}

	rows, err := r.db.Query(`SELECT slot, value FROM tokens`)
	if err != nil {
		if r.logger != nil {
			r.logger.Warnf("token load failed, treating as signed out: %v", err)
		}
		return token
	}
	defer rows.Close()

	for rows.Next() {
		var slot, value string
		if err := rows.Scan(&slot, &value); err != nil {
			if r.logger != nil {
				r.logger.Warnf("token row scan failed: %v", err)
			}
			continue
		}
		switch slot {
		case slotAccess:
			token.AccessToken = value
		case slotRefresh:
			token.RefreshToken = value
		}
	}

	if err := rows.Err(); err != nil && r.logger != nil {
		r.logger.Warnf("token load iteration failed: %v", err)
	}

	return token
}

// Clear removes both token entries.
func (r *TokenRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM tokens`); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}
