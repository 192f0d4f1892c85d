package snapshot

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

const createTable = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("init table: %w", err)
	}
	return db, nil
}

// ExportSQLite replaces the contents of table kv in the database at path
// with the live pairs of src. The export runs in a single transaction.
func ExportSQLite(src Source, path string) (int, error) {
	pairs, err := collect(src)
	if err != nil {
		return 0, err
	}

	db, err := openSQLite(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec("DELETE FROM kv"); err != nil {
		tx.Rollback()
		return 0, err
	}

	stmt, err := tx.Prepare("INSERT INTO kv (key, value) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for k, v := range pairs {
		if _, err := stmt.Exec(k, v); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	slog.Info("Snapshot exported", "component", "snapshot", "path", path, "keys", len(pairs))
	return len(pairs), nil
}

// ImportSQLite sets every row of table kv in the database at path into dst,
// in key order.
func ImportSQLite(dst Sink, path string) (int, error) {
	db, err := openSQLite(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	rows, err := db.Query("SELECT key, value FROM kv ORDER BY key ASC")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return n, err
		}
		if err := dst.Set(k, v); err != nil {
			return n, fmt.Errorf("set %q: %w", k, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}

	slog.Info("Snapshot imported", "component", "snapshot", "path", path, "keys", n)
	return n, nil
}
