// package repositories provides persistence layer implementations for moodmix.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

var errUnknownSequence = errors.New("unknown sequence table")

// sequenceTables lists the tables with a companion <table>_sequence counter.
var sequenceTables = map[string]bool{
	"playlists": true,
}

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Only tables created with a sequence counter are accepted; the name is interpolated into SQL.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !sequenceTables[table] {
		return 0, fmt.Errorf("%w: %s", errUnknownSequence, table)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1 RETURNING value", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}
