package store

const schemaFavorites = `
CREATE TABLE IF NOT EXISTS favorites (
    sign_id INTEGER PRIMARY KEY,
    created_at TEXT NOT NULL
);
`

const schemaLookups = `
CREATE TABLE IF NOT EXISTS lookups (
    id TEXT PRIMARY KEY,
    timestamp TEXT NOT NULL,
    sign TEXT NOT NULL,
    timeframe TEXT NOT NULL DEFAULT 'daily',
    provider TEXT NOT NULL DEFAULT '',
    success INTEGER NOT NULL DEFAULT 0,
    latency_ms INTEGER NOT NULL DEFAULT 0,
    error_message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_lookups_timestamp ON lookups(timestamp);
CREATE INDEX IF NOT EXISTS idx_lookups_provider ON lookups(provider);
`

const schemaRewriteCache = `
CREATE TABLE IF NOT EXISTS rewrite_cache (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    created_at TEXT NOT NULL,
    expires_at TEXT NOT NULL,
    hit_count INTEGER NOT NULL DEFAULT 0,
    last_hit TEXT
);
CREATE INDEX IF NOT EXISTS idx_rewrite_cache_expires ON rewrite_cache(expires_at);
`

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    applied_at TEXT NOT NULL
);
`
