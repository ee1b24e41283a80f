// Package store keeps a SQLite snapshot of normalized listening history so
// rankings can be queried without re-reading the exports.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const createTablesQuery = `
CREATE TABLE IF NOT EXISTS User (
  name TEXT PRIMARY KEY,
  last_updated DATETIME
);

CREATE TABLE IF NOT EXISTS Artist (
  name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS Album (
  artist TEXT,
  name TEXT,
  FOREIGN KEY (artist) REFERENCES Artist(name),
  PRIMARY KEY (artist, name)
);

CREATE TABLE IF NOT EXISTS Track (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  artist TEXT,
  album TEXT,
  name TEXT,
  uri TEXT,
  FOREIGN KEY (artist) REFERENCES Artist(name),
  UNIQUE (artist, album, name)
);

CREATE TABLE IF NOT EXISTS Listen (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user TEXT,
  track INTEGER,
  date INTEGER,
  year INTEGER,
  ms_played INTEGER,
  platform TEXT,
  device TEXT,
  FOREIGN KEY (track) REFERENCES Track(id)
);

CREATE INDEX IF NOT EXISTS listen_date ON Listen (date);
`

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(createTablesQuery); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema adds columns introduced after the first snapshot format.
// Boolean flags are nullable: NULL means the export did not carry them.
func ensureSchema(db *sql.DB) error {
	columns := []struct{ table, column, typeDef string }{
		{"Listen", "shuffle", "INTEGER"},
		{"Listen", "skipped", "INTEGER"},
		{"Listen", "country", "TEXT"},
	}
	for _, c := range columns {
		if err := addColumnIfNotExists(db, c.table, c.column, c.typeDef); err != nil {
			return err
		}
	}
	return nil
}

func addColumnIfNotExists(db *sql.DB, table, column, typeDef string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if !exists {
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typeDef)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("adding column %s.%s: %w", table, column, err)
		}
	}
	return nil
}

func columnExists(db *sql.DB, tableName string, columnName string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dfltValue interface{}
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}
	return false, rows.Err()
}
