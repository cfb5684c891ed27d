package inventory

import (
	"database/sql"
	"fmt"

	"github.com/HerbHall/netwarden/internal/store"
)

const deviceColumnsDDL = `
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	ip_address TEXT NOT NULL,
	username TEXT,
	password_encrypted TEXT,
	snmp_community TEXT,
	status TEXT NOT NULL DEFAULT 'unknown',
	last_check TIMESTAMP,
	latency DOUBLE PRECISION,
	packet_loss DOUBLE PRECISION,
	cpu_usage INTEGER,
	ram_usage INTEGER,
	ram_total BIGINT,
	ram_used BIGINT,
	disk_usage INTEGER,
	disk_total DOUBLE PRECISION,
	disk_used DOUBLE PRECISION,
	uptime TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL`

func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create router and windows server tables",
			Up: func(tx *sql.Tx) error {
				var stmts []string
				for _, table := range []string{tableRouters, tableWindowsServers} {
					stmts = append(stmts,
						fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s\n)", table, deviceColumnsDDL),
						fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_ip ON %s(ip_address)", table, table),
						fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status)", table, table),
					)
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
