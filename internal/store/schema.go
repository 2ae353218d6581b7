// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

// schemaVersion1 is the run archive schema.
const schemaVersion1 = 1

// schema1 is the run archive DDL. Chains and residuals keep the full
// JSON payload next to the columns the viewer filters on; the payload
// is authoritative, the columns exist for WHERE clauses and indexes.
var schema1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	rules_version TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	duration_ms   INTEGER NOT NULL,
	stats         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chains (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	id         TEXT NOT NULL,
	confidence TEXT NOT NULL,
	favorable  TEXT NOT NULL,
	status     TEXT NOT NULL,
	payload    TEXT NOT NULL,
	PRIMARY KEY (run_id, id)
);

CREATE TABLE IF NOT EXISTS residuals (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	raw_number TEXT NOT NULL,
	tier       TEXT NOT NULL,
	reason     TEXT NOT NULL,
	payload    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chains_outcome ON chains(run_id, confidence, favorable);
CREATE INDEX IF NOT EXISTS idx_residuals_run ON residuals(run_id);
`
