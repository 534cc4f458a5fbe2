package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Setting keys of the remembered connection
const (
	KeyRemember    = "redmine connection/remember"
	KeyURL         = "redmine connection/url"
	KeyUser        = "redmine connection/user"
	KeyPassword    = "redmine connection/password"
	KeyAPIKey      = "redmine connection/api_key"
	KeyAccessToken = "redmine connection/access_token"
)

const upsertSetting = `
	INSERT INTO settings (key, value)
	VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value
	`

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Credentials are the connection details entered at login
type Credentials struct {
	URL         string
	Login       string
	Password    string
	APIKey      string
	AccessToken string
	Remember    bool
}

// DB represents the database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Initialize creates the database schema if it doesn't exist
func (db *DB) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS login_metadata (
		url TEXT PRIMARY KEY,
		login TEXT NOT NULL,
		last_login_time TIMESTAMP NOT NULL
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SetValue stores a setting
func (db *DB) SetValue(key, value string) error {
	return setValue(db, key, value)
}

func setValue(e execer, key, value string) error {
	if _, err := e.Exec(upsertSetting, key, value); err != nil {
		return fmt.Errorf("failed to save setting %q: %w", key, err)
	}
	return nil
}

// Value returns a setting, or def if it was never stored
func (db *DB) Value(key, def string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return def, nil
		}
		return "", fmt.Errorf("failed to get setting %q: %w", key, err)
	}

	return value, nil
}

// LoadCredentials returns the remembered credentials. Only Remember is filled
// when the user chose not to be remembered.
func (db *DB) LoadCredentials() (Credentials, error) {
	var creds Credentials

	remember, err := db.Value(KeyRemember, "false")
	if err != nil {
		return creds, err
	}
	creds.Remember, _ = strconv.ParseBool(remember)
	if !creds.Remember {
		return creds, nil
	}

	fields := []struct {
		key string
		dst *string
	}{
		{KeyURL, &creds.URL},
		{KeyUser, &creds.Login},
		{KeyPassword, &creds.Password},
		{KeyAPIKey, &creds.APIKey},
		{KeyAccessToken, &creds.AccessToken},
	}
	for _, f := range fields {
		if *f.dst, err = db.Value(f.key, ""); err != nil {
			return creds, err
		}
	}

	return creds, nil
}

// SaveCredentials stores the credentials when Remember is set and blanks the
// stored ones otherwise
func (db *DB) SaveCredentials(creds Credentials) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if !creds.Remember {
		creds = Credentials{}
	}
	values := [][2]string{
		{KeyRemember, strconv.FormatBool(creds.Remember)},
		{KeyURL, creds.URL},
		{KeyUser, creds.Login},
		{KeyPassword, creds.Password},
		{KeyAPIKey, creds.APIKey},
		{KeyAccessToken, creds.AccessToken},
	}
	for _, kv := range values {
		if err := setValue(tx, kv[0], kv[1]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credentials: %w", err)
	}

	return nil
}

// GetLastLoginTime gets the last successful login time for a Redmine URL
func (db *DB) GetLastLoginTime(url string) (time.Time, string, error) {
	var (
		lastLogin time.Time
		login     string
	)
	query := `SELECT last_login_time, login FROM login_metadata WHERE url = ?`

	err := db.QueryRow(query, url).Scan(&lastLogin, &login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Never logged in
			return time.Time{}, "", nil
		}
		return time.Time{}, "", fmt.Errorf("failed to get last login time: %w", err)
	}

	return lastLogin, login, nil
}

// UpdateLastLoginTime records a successful login
func (db *DB) UpdateLastLoginTime(url, login string, loginTime time.Time) error {
	query := `
	INSERT INTO login_metadata (url, login, last_login_time)
	VALUES (?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		login = excluded.login,
		last_login_time = excluded.last_login_time
	`

	_, err := db.Exec(query, url, login, loginTime)
	if err != nil {
		return fmt.Errorf("failed to update last login time: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
