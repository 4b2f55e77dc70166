package storage

// Schema is the complete database schema. Timestamps are Unix seconds
// (UTC); analytics dates are Tehran-local "YYYY-MM-DD" strings.
//
// channel_analytics.hour and .time_slot use -1, not NULL, for the rollup
// granularities: SQLite treats NULLs as distinct in unique constraints,
// which would break the one-row-per-(channel,date,hour,slot) invariant.
const Schema = `
CREATE TABLE IF NOT EXISTS channels (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    telegram_id   TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL,
    username      TEXT,
    is_active     INTEGER NOT NULL DEFAULT 1,
    last_sync_at  INTEGER,
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    api_message_id      INTEGER NOT NULL,
    telegram_message_id INTEGER NOT NULL,
    channel_id          INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
    text                TEXT,
    text_normalized     TEXT,
    date                INTEGER NOT NULL,
    views               INTEGER,
    forwards            INTEGER,
    extra_data          TEXT,
    created_at          INTEGER NOT NULL,
    updated_at          INTEGER NOT NULL,
    UNIQUE(channel_id, telegram_message_id)
);
CREATE INDEX IF NOT EXISTS idx_messages_channel_date ON messages(channel_id, date);
CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date);
CREATE INDEX IF NOT EXISTS idx_messages_unnormalized ON messages(id) WHERE text IS NOT NULL AND text_normalized IS NULL;

CREATE TABLE IF NOT EXISTS dictionaries (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    description TEXT,
    is_active   INTEGER NOT NULL DEFAULT 1,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dictionary_categories (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    dictionary_id INTEGER NOT NULL REFERENCES dictionaries(id) ON DELETE CASCADE,
    parent_id     INTEGER REFERENCES dictionary_categories(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    description   TEXT,
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_categories_dictionary ON dictionary_categories(dictionary_id);
CREATE INDEX IF NOT EXISTS idx_categories_name ON dictionary_categories(name);

CREATE TABLE IF NOT EXISTS dictionary_words (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    category_id     INTEGER NOT NULL REFERENCES dictionary_categories(id) ON DELETE CASCADE,
    word            TEXT NOT NULL,
    normalized_word TEXT NOT NULL,
    is_active       INTEGER NOT NULL DEFAULT 1,
    extra_data      TEXT,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_words_normalized ON dictionary_words(normalized_word);
CREATE INDEX IF NOT EXISTS idx_words_category ON dictionary_words(category_id);

CREATE TABLE IF NOT EXISTS message_words (
    message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    word_id    INTEGER NOT NULL REFERENCES dictionary_words(id) ON DELETE CASCADE,
    matched_at INTEGER NOT NULL,
    PRIMARY KEY (message_id, word_id)
);
CREATE INDEX IF NOT EXISTS idx_message_words_word ON message_words(word_id);

CREATE TABLE IF NOT EXISTS sync_states (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    direction       TEXT NOT NULL UNIQUE,
    current_offset  INTEGER NOT NULL DEFAULT 0,
    total_available INTEGER,
    messages_synced INTEGER NOT NULL DEFAULT 0,
    is_running      INTEGER NOT NULL DEFAULT 0,
    is_completed    INTEGER NOT NULL DEFAULT 0,
    last_sync_at    INTEGER,
    last_error      TEXT,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS channel_analytics (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    channel_id     INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
    date           TEXT NOT NULL,
    hour           INTEGER NOT NULL DEFAULT -1,
    time_slot      INTEGER NOT NULL DEFAULT -1,
    jalali_date    TEXT,
    day_of_week    INTEGER NOT NULL,
    message_count  INTEGER NOT NULL DEFAULT 0,
    match_count    INTEGER NOT NULL DEFAULT 0,
    top_symbols    TEXT,
    top_industries TEXT,
    top_categories TEXT,
    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL,
    UNIQUE(channel_id, date, hour, time_slot)
);
CREATE INDEX IF NOT EXISTS idx_analytics_channel_date ON channel_analytics(channel_id, date);
CREATE INDEX IF NOT EXISTS idx_analytics_date ON channel_analytics(date);
`
