package repository

// Schema definitions for the Heron audit database.
// Compatible with both SQLite and PostgreSQL.

const schemaPredictions = `
CREATE TABLE IF NOT EXISTS predictions (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    amount DOUBLE PRECISION NOT NULL,
    old_balance DOUBLE PRECISION,
    new_balance DOUBLE PRECISION,
    probability DOUBLE PRECISION NOT NULL,
    is_fraud INTEGER NOT NULL DEFAULT 0,
    request_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);
CREATE INDEX IF NOT EXISTS idx_predictions_fraud ON predictions(is_fraud);
`

const schemaDeletionEvents = `
CREATE TABLE IF NOT EXISTS deletion_events (
    id TEXT PRIMARY KEY,
    transaction_id BIGINT NOT NULL,
    request_id TEXT NOT NULL DEFAULT '',
    deleted_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deletion_events_tx ON deletion_events(transaction_id);
CREATE INDEX IF NOT EXISTS idx_deletion_events_deleted ON deletion_events(deleted_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaPredictions,
		schemaDeletionEvents,
	}
}
