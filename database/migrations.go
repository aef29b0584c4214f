// crushnote/database/migrations.go
package database

// migration represents a single database schema migration.
type migration struct {
	Version uint
	Query   string
}

// allMigrations holds all schema changes in order.
var allMigrations = []migration{
	{
		Version: 1,
		Query: `
-- Track when a profile last received a strike, for the moderator view
ALTER TABLE profiles ADD COLUMN last_strike_at DATETIME;

CREATE INDEX IF NOT EXISTS idx_profiles_strikes ON profiles(strikes);
		`,
	},
}
