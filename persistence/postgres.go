// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"markov/chain"
)

// Postgres schema (reference):
//
// CREATE TABLE IF NOT EXISTS snapshots (
//   tenant_id      TEXT PRIMARY KEY,
//   schema_version INT NOT NULL,
//   body           BYTEA NOT NULL,
//   updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
// );

const snapshotSchemaVersion = 1

// PostgresConn is the narrow seam PostgresBackend depends on, so tests can
// substitute a fake instead of a live database. SQLPostgresConn is the
// production implementation over *sql.DB.
type PostgresConn interface {
	LoadSnapshot(ctx context.Context, tenantID string) ([]byte, error)
	SaveSnapshot(ctx context.Context, tenantID string, schemaVersion int, body []byte) error
}

// SQLPostgresConn implements PostgresConn against a real *sql.DB.
type SQLPostgresConn struct {
	db *sql.DB
}

// NewSQLPostgresConn wraps db. Callers own db's lifecycle.
func NewSQLPostgresConn(db *sql.DB) *SQLPostgresConn {
	return &SQLPostgresConn{db: db}
}

func (c *SQLPostgresConn) LoadSnapshot(ctx context.Context, tenantID string) ([]byte, error) {
	var body []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT body FROM snapshots WHERE tenant_id = $1`, tenantID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: select snapshot: %w", err)
	}
	return body, nil
}

func (c *SQLPostgresConn) SaveSnapshot(ctx context.Context, tenantID string, schemaVersion int, body []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO snapshots (tenant_id, schema_version, body, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tenant_id) DO UPDATE
			SET schema_version = EXCLUDED.schema_version,
			    body = EXCLUDED.body,
			    updated_at = EXCLUDED.updated_at`,
		tenantID, schemaVersion, body)
	if err != nil {
		return fmt.Errorf("postgres: upsert snapshot: %w", err)
	}
	return nil
}

// PostgresBackend persists snapshots in a single-row-per-tenant table,
// upserted on every save.
type PostgresBackend struct {
	conn PostgresConn
}

// NewPostgresBackend wraps conn.
func NewPostgresBackend(conn PostgresConn) *PostgresBackend {
	return &PostgresBackend{conn: conn}
}

func (b *PostgresBackend) Load(ctx context.Context, tenantID string) ([]byte, error) {
	return b.conn.LoadSnapshot(ctx, tenantID)
}

func (b *PostgresBackend) Save(ctx context.Context, tenantID string, data []byte) error {
	return b.conn.SaveSnapshot(ctx, tenantID, snapshotSchemaVersion, data)
}
