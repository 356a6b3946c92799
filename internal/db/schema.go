package db

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    email               TEXT UNIQUE NOT NULL,
    full_name           TEXT,
    password_hash       TEXT NOT NULL,
    is_active           INTEGER DEFAULT 1 CHECK(is_active IN (0, 1)),
    country             TEXT,
    settlement_country  TEXT,
    country_selected    INTEGER DEFAULT 0 CHECK(country_selected IN (0, 1)),
    profile_photo       TEXT,
    street_address      TEXT,
    city                TEXT,
    postal_code         TEXT,
    phone_number        TEXT,
    created_at          DATETIME DEFAULT (datetime('now'))
);

-- One row per checklist entry. Both tracker instances (onboarding tasks and
-- settlement steps) live here; the task instance is keyed additionally by
-- category (the settlement country), the step instance uses category = ''.
CREATE TABLE IF NOT EXISTS progress_items (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id        INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    tracker         TEXT NOT NULL CHECK(tracker IN ('task','step')),
    category        TEXT NOT NULL DEFAULT '',
    sequence_index  INTEGER NOT NULL,
    title           TEXT NOT NULL,
    description     TEXT DEFAULT '',
    status          TEXT DEFAULT 'pending' CHECK(status IN ('pending','in_progress','completed')),
    unlocked        INTEGER DEFAULT 0 CHECK(unlocked IN (0, 1)),
    priority        TEXT DEFAULT 'medium' CHECK(priority IN ('low','medium','high','urgent')),
    is_required     INTEGER DEFAULT 1 CHECK(is_required IN (0, 1)),
    estimated_days  INTEGER,
    created_at      DATETIME DEFAULT (datetime('now')),
    updated_at      DATETIME DEFAULT (datetime('now')),
    UNIQUE (owner_id, tracker, category, sequence_index)
);
CREATE INDEX IF NOT EXISTS idx_progress_owner ON progress_items(owner_id, tracker, category);

CREATE TABLE IF NOT EXISTS documents (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id           INTEGER NOT NULL REFERENCES progress_items(id) ON DELETE CASCADE,
    user_id           INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    filename          TEXT NOT NULL,
    original_filename TEXT NOT NULL,
    file_path         TEXT NOT NULL,
    file_size         INTEGER NOT NULL,
    content_type      TEXT NOT NULL,
    created_at        DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_documents_item ON documents(item_id);
CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(user_id);

CREATE TABLE IF NOT EXISTS questions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title       TEXT NOT NULL,
    content     TEXT NOT NULL,
    category    TEXT DEFAULT 'general' CHECK(category IN ('housing','banking','legal','work','education','healthcare','transportation','social','general')),
    is_resolved INTEGER DEFAULT 0 CHECK(is_resolved IN (0, 1)),
    view_count  INTEGER DEFAULT 0,
    created_at  DATETIME DEFAULT (datetime('now')),
    updated_at  DATETIME
);
CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category);
CREATE INDEX IF NOT EXISTS idx_questions_created ON questions(created_at);

CREATE TABLE IF NOT EXISTS answers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
    user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    content     TEXT NOT NULL,
    is_accepted INTEGER DEFAULT 0 CHECK(is_accepted IN (0, 1)),
    created_at  DATETIME DEFAULT (datetime('now')),
    updated_at  DATETIME
);
CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id);

-- The UNIQUE (target, voter) constraint is what makes voting race-safe:
-- concurrent inserts for the same pair collapse to one row via upsert.
CREATE TABLE IF NOT EXISTS question_votes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
    user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    is_upvote   INTEGER NOT NULL CHECK(is_upvote IN (0, 1)),
    created_at  DATETIME DEFAULT (datetime('now')),
    UNIQUE (question_id, user_id)
);

CREATE TABLE IF NOT EXISTS answer_votes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    answer_id   INTEGER NOT NULL REFERENCES answers(id) ON DELETE CASCADE,
    user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    is_upvote   INTEGER NOT NULL CHECK(is_upvote IN (0, 1)),
    created_at  DATETIME DEFAULT (datetime('now')),
    UNIQUE (answer_id, user_id)
);

CREATE TABLE IF NOT EXISTS password_reset_tokens (
    token      TEXT PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    expires_at DATETIME NOT NULL,
    used       INTEGER DEFAULT 0 CHECK(used IN (0, 1)),
    created_at DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_reset_tokens_user ON password_reset_tokens(user_id);

-- Observability: audit log
CREATE TABLE IF NOT EXISTS audit_log (
    entry_id TEXT PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    action TEXT NOT NULL,
    transport TEXT NOT NULL DEFAULT 'http',
    user_id TEXT,
    request_id TEXT,
    parameters TEXT,
    result TEXT,
    error_message TEXT,
    duration_ms INTEGER,
    status TEXT NOT NULL DEFAULT 'success'
);
CREATE INDEX IF NOT EXISTS idx_audit_log_time ON audit_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
CREATE INDEX IF NOT EXISTS idx_audit_log_user ON audit_log(user_id);
`
