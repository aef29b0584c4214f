package database

const schema = `
CREATE TABLE IF NOT EXISTS schools (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	city TEXT DEFAULT '',
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	nickname TEXT NOT NULL UNIQUE,
	school_id TEXT,
	strikes INTEGER NOT NULL DEFAULT 0,
	posts_count INTEGER NOT NULL DEFAULT 0,
	likes_received_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	FOREIGN KEY (school_id) REFERENCES schools(id)
);
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	author_id TEXT NOT NULL,
	school_id TEXT NOT NULL,
	content TEXT NOT NULL,
	comments_count INTEGER NOT NULL DEFAULT 0,
	likes_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	FOREIGN KEY (author_id) REFERENCES profiles(id) ON DELETE CASCADE,
	FOREIGN KEY (school_id) REFERENCES schools(id)
);
CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL,
	author_id TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME,
	FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
	FOREIGN KEY (author_id) REFERENCES profiles(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS likes (
	post_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	created_at DATETIME,
	PRIMARY KEY (post_id, user_id),
	FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
	FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
);
-- Reports point at a post or a comment; the target reference is logical
-- (no FK) because the two live in different tables. Deleting content
-- removes its report rows inside the same transaction.
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	target_id TEXT NOT NULL,
	target_type TEXT NOT NULL CHECK (target_type IN ('post', 'comment')),
	reporter_id TEXT NOT NULL,
	reason TEXT NOT NULL,
	created_at DATETIME,
	FOREIGN KEY (reporter_id) REFERENCES profiles(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS mod_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	target_id TEXT,
	details TEXT
);
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME
);

-- --- INDEXES ---
CREATE INDEX IF NOT EXISTS idx_posts_school_created ON posts(school_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_reports_dedup ON reports(target_id, target_type, reporter_id); -- One report per reporter per target
CREATE INDEX IF NOT EXISTS idx_reports_target ON reports(target_id, target_type);
CREATE INDEX IF NOT EXISTS idx_mod_actions_time ON mod_actions(timestamp DESC);
`
