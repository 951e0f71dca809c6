// Package accounts is the durable record store behind authentication and
// progression. Records are keyed by a uuid and unique by username.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("accounts: not found")
var ErrUsernameTaken = errors.New("accounts: username taken")

// Account holds a player's persistent identity and progression.
//
// Password is stored and compared as plain text. That is carried over from
// the source system's stored credential format; hashing it would change
// externally observable behavior. Known weakness, not an endorsement.
type Account struct {
	ID        string
	Username  string
	Password  string
	XP        int64
	Level     int
	SkinID    string
	HighScore int64
}

// Progress is the subset of fields flushed back at disconnect or on a
// skin change. Nil pointers leave the stored value untouched.
type Progress struct {
	XP        *int64
	Level     *int
	SkinID    *string
	HighScore *int64
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			xp INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			skin_id TEXT NOT NULL DEFAULT 'starter',
			high_score INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) FindByUsername(ctx context.Context, username string) (Account, error) {
	var a Account
	row := s.db.QueryRowContext(ctx,
		`SELECT id,username,password,xp,level,skin_id,high_score FROM players WHERE username=?`,
		username)
	err := row.Scan(&a.ID, &a.Username, &a.Password, &a.XP, &a.Level, &a.SkinID, &a.HighScore)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

// Create inserts a fresh account. The store assigns the id; the username
// UNIQUE constraint rejects duplicates.
func (s *Store) Create(ctx context.Context, a Account) (Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Level < 1 {
		a.Level = 1
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players(id,username,password,xp,level,skin_id,high_score,created_at,updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Username, a.Password, a.XP, a.Level, a.SkinID, a.HighScore, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Account{}, ErrUsernameTaken
		}
		return Account{}, err
	}
	return a, nil
}

// UpdateByID applies a partial progression update.
func (s *Store) UpdateByID(ctx context.Context, id string, p Progress) error {
	sets := []string{"updated_at=?"}
	args := []any{time.Now().UTC().Format(time.RFC3339Nano)}
	if p.XP != nil {
		sets = append(sets, "xp=?")
		args = append(args, *p.XP)
	}
	if p.Level != nil {
		sets = append(sets, "level=?")
		args = append(args, *p.Level)
	}
	if p.SkinID != nil {
		sets = append(sets, "skin_id=?")
		args = append(args, *p.SkinID)
	}
	if p.HighScore != nil {
		sets = append(sets, "high_score=?")
		args = append(args, *p.HighScore)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET `+strings.Join(sets, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
