package journal

import (
	"database/sql"

	"github.com/HerbHall/netwarden/internal/store"
)

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create logs table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS logs (
						id TEXT PRIMARY KEY,
						level TEXT NOT NULL,
						message TEXT NOT NULL,
						source_type TEXT NOT NULL,
						source_id TEXT NOT NULL,
						metadata TEXT,
						created_at TIMESTAMP NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_logs_created ON logs(created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level, created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_logs_source ON logs(source_type, source_id)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
