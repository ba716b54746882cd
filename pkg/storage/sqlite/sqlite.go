// Package sqlite stores clients and identity providers in SQLite,
// using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/zitadel/dynconfig/pkg/idp"
	"github.com/zitadel/dynconfig/pkg/op"
)

const schema = `
CREATE TABLE IF NOT EXISTS clients (
	id TEXT PRIMARY KEY,
	document TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS identity_providers (
	scheme TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	enabled INTEGER NOT NULL DEFAULT 0,
	properties TEXT NOT NULL DEFAULT '{}'
);
`

// Open opens the database at dsn and creates the tables if they do not exist.
// An in-memory database lives in a single connection, so the pool is
// limited to one for such a dsn.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if inMemory(dsn) {
		db.SetMaxOpenConns(1)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func inMemory(dsn string) bool {
	name, query, _ := strings.Cut(dsn, "?")
	name = strings.TrimPrefix(name, "file:")
	return name == "" || name == ":memory:" || strings.Contains("&"+query+"&", "&mode=memory&")
}

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout=5000;`); err != nil {
		return fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// ClientStore implements [op.ClientStore] and [op.ClientReader].
// Clients are kept as their JSON document.
type ClientStore struct {
	db *sql.DB
}

func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

func (s *ClientStore) Save(ctx context.Context, client *op.Client) (string, error) {
	c := client.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal client: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO clients (id, document) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET document = excluded.document
	`, c.ID, string(doc))
	if err != nil {
		return "", fmt.Errorf("insert client: %w", err)
	}
	return c.ID, nil
}

func (s *ClientStore) GetClient(ctx context.Context, clientID string) (*op.Client, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM clients WHERE id = ?`, clientID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", op.ErrClientNotFound, clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("query client: %w", err)
	}
	client := new(op.Client)
	if err := json.Unmarshal([]byte(doc), client); err != nil {
		return nil, fmt.Errorf("unmarshal client %s: %w", clientID, err)
	}
	return client, nil
}

func (s *ClientStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ProviderStore implements [idp.Store], [idp.Lister] and [idp.Writer].
type ProviderStore struct {
	db *sql.DB
}

func NewProviderStore(db *sql.DB) *ProviderStore {
	return &ProviderStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*idp.Record, error) {
	var (
		record     idp.Record
		enabled    int
		properties string
	)
	if err := row.Scan(&record.Scheme, &record.Type, &record.DisplayName, &enabled, &properties); err != nil {
		return nil, err
	}
	record.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(properties), &record.Properties); err != nil {
		return nil, fmt.Errorf("unmarshal properties of %s: %w", record.Scheme, err)
	}
	if len(record.Properties) == 0 {
		record.Properties = nil
	}
	return &record, nil
}

func (s *ProviderStore) GetByScheme(ctx context.Context, scheme string) (*idp.Record, error) {
	record, err := scanRecord(s.db.QueryRowContext(ctx, `
		SELECT scheme, type, display_name, enabled, properties
		FROM identity_providers WHERE scheme = ?
	`, scheme))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", idp.ErrNotFound, scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("query identity provider: %w", err)
	}
	return record, nil
}

func (s *ProviderStore) List(ctx context.Context) ([]*idp.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scheme, type, display_name, enabled, properties
		FROM identity_providers ORDER BY scheme
	`)
	if err != nil {
		return nil, fmt.Errorf("query identity providers: %w", err)
	}
	defer rows.Close()

	var records []*idp.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity provider: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity providers: %w", err)
	}
	return records, nil
}

func (s *ProviderStore) Save(ctx context.Context, record *idp.Record) error {
	if record.Scheme == "" {
		return errors.New("scheme must not be empty")
	}
	properties := record.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	doc, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO identity_providers (scheme, type, display_name, enabled, properties)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (scheme) DO UPDATE SET
			type = excluded.type,
			display_name = excluded.display_name,
			enabled = excluded.enabled,
			properties = excluded.properties
	`, record.Scheme, record.Type, record.DisplayName, boolToInt(record.Enabled), string(doc))
	if err != nil {
		return fmt.Errorf("upsert identity provider: %w", err)
	}
	return nil
}

func (s *ProviderStore) Delete(ctx context.Context, scheme string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM identity_providers WHERE scheme = ?`, scheme)
	if err != nil {
		return fmt.Errorf("delete identity provider: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete identity provider: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", idp.ErrNotFound, scheme)
	}
	return nil
}

func (s *ProviderStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
