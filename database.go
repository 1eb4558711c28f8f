package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// AccountRow represents a registered account
type AccountRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	UID        string  `json:"uid"`
	Name       string  `json:"name"`
	BestScore  int     `json:"best_score"`
	BestLength float64 `json:"best_length"`
	Games      int     `json:"games"`
	Kills      int     `json:"kills"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL for better concurrency between the stats writer and HTTP reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leaderboard (
		uid TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		best_score INTEGER NOT NULL DEFAULT 0,
		best_length REAL NOT NULL DEFAULT 0,
		games INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leaderboard_score ON leaderboard(best_score);
	CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// MergeFinalStats upserts a death record: best score/length are kept as
// maxima, games played increments, kills accumulate.
func (db *DB) MergeFinalStats(fs FinalStats) error {
	_, err := db.conn.Exec(`
		INSERT INTO leaderboard (uid, name, best_score, best_length, games, kills, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			name = excluded.name,
			best_score = MAX(best_score, excluded.best_score),
			best_length = MAX(best_length, excluded.best_length),
			games = games + 1,
			kills = kills + excluded.kills,
			updated_at = excluded.updated_at`,
		fs.UID, fs.Name, fs.Score, fs.Length, fs.Kills, fs.At.Format(time.RFC3339),
	)
	return err
}

// GetLeaderboard returns the top rows ordered by best score
func (db *DB) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	rows, err := db.conn.Query(`
		SELECT uid, name, best_score, best_length, games, kills
		FROM leaderboard ORDER BY best_score DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UID, &e.Name, &e.BestScore, &e.BestLength, &e.Games, &e.Kills); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetPlayerStats returns one leaderboard row, or nil if absent
func (db *DB) GetPlayerStats(uid string) (*LeaderboardEntry, error) {
	row := db.conn.QueryRow(`
		SELECT uid, name, best_score, best_length, games, kills
		FROM leaderboard WHERE uid = ?`, uid)
	e := &LeaderboardEntry{}
	err := row.Scan(&e.UID, &e.Name, &e.BestScore, &e.BestLength, &e.Games, &e.Kills)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// CreateAccount creates a registered account (returns account ID)
func (db *DB) CreateAccount(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO accounts (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetAccountByUsername returns an account by username, nil if absent
func (db *DB) GetAccountByUsername(username string) (*AccountRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM accounts WHERE username = ?",
		username,
	)
	a := &AccountRow{}
	err := row.Scan(&a.ID, &a.Username, &a.PassHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM accounts WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetSetting returns a settings value, empty string if absent
func (db *DB) GetSetting(key string) string {
	var v string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err != nil {
		return ""
	}
	return v
}

// SetSetting upserts a settings value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
