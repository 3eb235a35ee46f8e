package schema

import "github.com/pkg/errors"

var postgresBootstrap = []string{
	`CREATE TABLE IF NOT EXISTS entities (
  id UUID PRIMARY KEY,
  name VARCHAR(255) NOT NULL UNIQUE,
  display_name VARCHAR(255) NOT NULL,
  description TEXT,
  schema_definition JSONB NOT NULL DEFAULT '{}',
  metadata JSONB NOT NULL DEFAULT '{}',
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  created_by UUID
)`,
	`CREATE TABLE IF NOT EXISTS entity_instances (
  id UUID PRIMARY KEY,
  entity_id UUID NOT NULL REFERENCES entities (id),
  uuid UUID NOT NULL UNIQUE,
  status VARCHAR(32) NOT NULL DEFAULT 'ACTIVE',
  registered_at TIMESTAMPTZ NOT NULL,
  expires_at TIMESTAMPTZ,
  context JSONB NOT NULL DEFAULT '{}',
  metadata JSONB NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  created_by UUID
)`,
	`CREATE INDEX IF NOT EXISTS entity_instances_entity_idx ON entity_instances (entity_id, registered_at DESC)`,
	`CREATE TABLE IF NOT EXISTS variables (
  id BIGSERIAL,
  entity_id UUID NOT NULL,
  entity_instance_id UUID NOT NULL,
  variable_name VARCHAR(255) NOT NULL,
  variable_type VARCHAR(32) NOT NULL,
  value_string TEXT,
  value_int BIGINT,
  value_float DOUBLE PRECISION,
  value_bool BOOLEAN,
  value_json JSONB,
  value_timestamp TIMESTAMPTZ,
  value_binary BYTEA,
  value_uuid UUID,
  is_indexed BOOLEAN NOT NULL DEFAULT FALSE,
  is_sensitive BOOLEAN NOT NULL DEFAULT FALSE,
  is_encrypted BOOLEAN NOT NULL DEFAULT FALSE,
  registered_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  created_by UUID,
  PRIMARY KEY (id, entity_id, registered_at)
) PARTITION BY LIST (entity_id)`,
	`CREATE TABLE IF NOT EXISTS variable_partitions (
  partition_name VARCHAR(255) PRIMARY KEY,
  parent_name VARCHAR(255) NOT NULL,
  entity_id UUID NOT NULL,
  entity_name VARCHAR(255) NOT NULL,
  range_start TIMESTAMPTZ,
  range_end TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL
)`,
}

// sqlite has no declarative partitioning, variable_partitions is bookkeeping only.
// Timestamp columns are declared TIMESTAMP so the driver scans them as time.Time.
var sqliteBootstrap = []string{
	`CREATE TABLE IF NOT EXISTS entities (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  description TEXT,
  schema_definition TEXT NOT NULL DEFAULT '{}',
  metadata TEXT NOT NULL DEFAULT '{}',
  is_active BOOLEAN NOT NULL DEFAULT 1,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  created_by TEXT
)`,
	`CREATE TABLE IF NOT EXISTS entity_instances (
  id TEXT PRIMARY KEY,
  entity_id TEXT NOT NULL REFERENCES entities (id),
  uuid TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'ACTIVE',
  registered_at TIMESTAMP NOT NULL,
  expires_at TIMESTAMP,
  context TEXT NOT NULL DEFAULT '{}',
  metadata TEXT NOT NULL DEFAULT '{}',
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  created_by TEXT
)`,
	`CREATE INDEX IF NOT EXISTS entity_instances_entity_idx ON entity_instances (entity_id, registered_at DESC)`,
	`CREATE TABLE IF NOT EXISTS variables (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  entity_id TEXT NOT NULL,
  entity_instance_id TEXT NOT NULL,
  variable_name TEXT NOT NULL,
  variable_type TEXT NOT NULL,
  value_string TEXT,
  value_int INTEGER,
  value_float REAL,
  value_bool BOOLEAN,
  value_json TEXT,
  value_timestamp TIMESTAMP,
  value_binary BLOB,
  value_uuid TEXT,
  is_indexed BOOLEAN NOT NULL DEFAULT 0,
  is_sensitive BOOLEAN NOT NULL DEFAULT 0,
  is_encrypted BOOLEAN NOT NULL DEFAULT 0,
  registered_at TIMESTAMP NOT NULL,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL,
  created_by TEXT
)`,
	`CREATE TABLE IF NOT EXISTS variable_partitions (
  partition_name TEXT PRIMARY KEY,
  parent_name TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  entity_name TEXT NOT NULL,
  range_start TIMESTAMP,
  range_end TIMESTAMP,
  created_at TIMESTAMP NOT NULL
)`,
}

// Bootstrap returns the statements creating the base tables for a driver.
// Every statement is safe to run again.
func Bootstrap(driver string) ([]string, error) {
	switch driver {
	case "postgres":
		return postgresBootstrap, nil
	case "sqlite":
		return sqliteBootstrap, nil
	}
	return nil, errors.Errorf("no schema for database driver %s", driver)
}
