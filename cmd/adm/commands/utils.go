package commands

import (
	"database/sql"
	"fmt"
	"net/url"
)

// maskDatabaseURL hides credentials in a connection URL for display
func maskDatabaseURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return raw
	}
	parsed.User = url.UserPassword("***", "***")
	return parsed.String()
}

// describeConnection summarizes the live database connection for status output
func describeConnection(db *sql.DB) string {
	if db == nil {
		return "not connected"
	}

	var dbName string
	if err := db.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		return "connected (database unknown)"
	}

	var host sql.NullString
	if err := db.QueryRow("SELECT inet_server_addr()::text").Scan(&host); err != nil || !host.Valid {
		return fmt.Sprintf("connected to %s", dbName)
	}
	return fmt.Sprintf("connected to %s on %s", dbName, host.String)
}
