package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/teemow/mailrules/internal/auth"
	"github.com/teemow/mailrules/internal/mail"
	"github.com/teemow/mailrules/internal/rules"
)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	user_key      TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	expires_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS rules (
	id          TEXT PRIMARY KEY,
	user_key    TEXT NOT NULL,
	name        TEXT NOT NULL,
	condition   TEXT NOT NULL,
	action      TEXT NOT NULL,
	folder_name TEXT NOT NULL DEFAULT '',
	is_active   INTEGER NOT NULL DEFAULT 1,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rules_user_created ON rules(user_key, created_at);

CREATE TABLE IF NOT EXISTS folders (
	user_key   TEXT NOT NULL,
	label_id   TEXT NOT NULL,
	id         TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_key, label_id)
);
`

// OpenSQLite opens (and if necessary initializes) a SQLite-backed store
// at the given path.
func OpenSQLite(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", path, err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent engine runs.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{
		Credentials: &sqliteCredentialStore{db: db},
		Rules:       &sqliteRuleStore{db: db},
		Folders:     &sqliteFolderStore{db: db},
		closeFn:     db.Close,
	}, nil
}

type sqliteCredentialStore struct {
	db *sql.DB
}

func (s *sqliteCredentialStore) Get(ctx context.Context, userKey string) (auth.Credential, error) {
	var cred auth.Credential
	err := s.db.QueryRowContext(ctx,
		`SELECT email, access_token, refresh_token, expires_at FROM credentials WHERE user_key = ?`,
		userKey,
	).Scan(&cred.Email, &cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Credential{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Credential{}, fmt.Errorf("failed to query credential: %w", err)
	}
	return cred, nil
}

// Upsert is an explicit update-then-insert rather than provider-specific
// ON CONFLICT syntax, keeping the two branches of the contract visible.
func (s *sqliteCredentialStore) Upsert(ctx context.Context, userKey string, cred auth.Credential) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET email = ?, access_token = ?, refresh_token = ?, expires_at = ? WHERE user_key = ?`,
		cred.Email, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, userKey)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO credentials (user_key, email, access_token, refresh_token, expires_at) VALUES (?, ?, ?, ?, ?)`,
		userKey, cred.Email, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

func (s *sqliteCredentialStore) Delete(ctx context.Context, userKey string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_key = ?`, userKey); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

type sqliteRuleStore struct {
	db *sql.DB
}

func (s *sqliteRuleStore) List(ctx context.Context, userKey string) ([]rules.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_key, name, condition, action, folder_name, is_active, created_at, updated_at
		 FROM rules WHERE user_key = ? ORDER BY created_at ASC, id ASC`,
		userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []rules.Rule
	for rows.Next() {
		var r rules.Rule
		if err := rows.Scan(&r.ID, &r.UserKey, &r.Name, &r.Condition, &r.Action,
			&r.Parameters.FolderName, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return out, nil
}

func (s *sqliteRuleStore) Create(ctx context.Context, rule rules.Rule) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (id, user_key, name, condition, action, folder_name, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserKey, rule.Name, rule.Condition, string(rule.Action),
		rule.Parameters.FolderName, rule.IsActive, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

func (s *sqliteRuleStore) Update(ctx context.Context, rule rules.Rule) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET name = ?, condition = ?, action = ?, folder_name = ?, is_active = ?, updated_at = ?
		 WHERE id = ? AND user_key = ?`,
		rule.Name, rule.Condition, string(rule.Action), rule.Parameters.FolderName,
		rule.IsActive, rule.UpdatedAt, rule.ID, rule.UserKey)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return rules.ErrNotFound
	}
	return nil
}

func (s *sqliteRuleStore) Delete(ctx context.Context, userKey, id string) error {
	// No existence check: deleting an absent rule is a no-op
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ? AND user_key = ?`, id, userKey); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

type sqliteFolderStore struct {
	db *sql.DB
}

func (s *sqliteFolderStore) List(ctx context.Context, userKey string) ([]mail.Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_key, name, label_id, created_at FROM folders WHERE user_key = ? ORDER BY created_at ASC`,
		userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []mail.Folder
	for rows.Next() {
		var f mail.Folder
		if err := rows.Scan(&f.ID, &f.UserKey, &f.Name, &f.LabelID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate folders: %w", err)
	}
	return out, nil
}

func (s *sqliteFolderStore) Upsert(ctx context.Context, userKey string, folder mail.Folder) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE folders SET id = ?, name = ?, created_at = ? WHERE user_key = ? AND label_id = ?`,
		folder.ID, folder.Name, folder.CreatedAt, userKey, folder.LabelID)
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO folders (user_key, label_id, id, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		userKey, folder.LabelID, folder.ID, folder.Name, folder.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}
	return nil
}
