// Package catalog indexes installed SWORD modules' .conf files into a
// small SQLite database, from which a named module's versification and
// driver can be looked up. The osis2mod CLI does not consult it, including
// in "-a" append mode.
//
// modernc.org/sqlite (a pure-Go driver) is the default; build with the
// cgo_sqlite tag to switch to mattn/go-sqlite3 for CGO-linked sqlite3,
// matching the same build-tag split the teacher's core/sqlite package
// documents for trading portability against native performance.
package catalog

import (
	"database/sql"
	"fmt"

	"github.com/swordtoolkit/osis2mod/internal/swordconf"
)

const schema = `
CREATE TABLE IF NOT EXISTS modules (
	name          TEXT PRIMARY KEY,
	mod_drv       TEXT NOT NULL,
	data_path     TEXT NOT NULL,
	versification TEXT NOT NULL,
	encoding      TEXT,
	compressed    INTEGER NOT NULL,
	encrypted     INTEGER NOT NULL,
	conf_path     TEXT NOT NULL
);
`

// Catalog is a handle on the module index database.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if necessary) the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open(sqlDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Rebuild clears and repopulates the catalog from every .conf file found
// under swordPath/mods.d.
func (c *Catalog) Rebuild(swordPath string) (int, error) {
	confs, err := swordconf.LoadFromPath(swordPath)
	if err != nil {
		return 0, err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning catalog rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM modules"); err != nil {
		return 0, fmt.Errorf("clearing catalog: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO modules (name, mod_drv, data_path, versification, encoding, compressed, encrypted, conf_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, conf := range confs {
		versification := conf.Versification
		if versification == "" {
			versification = "KJV"
		}
		compressed := 0
		if conf.IsCompressed() {
			compressed = 1
		}
		encrypted := 0
		if conf.IsEncrypted() {
			encrypted = 1
		}
		if _, err := stmt.Exec(conf.ModuleName, conf.ModDrv, conf.DataPath, versification, conf.Encoding, compressed, encrypted, conf.FilePath); err != nil {
			return count, fmt.Errorf("indexing module %s: %w", conf.ModuleName, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing catalog rebuild: %w", err)
	}
	return count, nil
}

// ModuleRecord is one catalog entry.
type ModuleRecord struct {
	Name          string
	ModDrv        string
	DataPath      string
	Versification string
	Encoding      string
	Compressed    bool
	Encrypted     bool
	ConfPath      string
}

// Lookup returns the catalog record for name, or sql.ErrNoRows if the
// module isn't indexed.
func (c *Catalog) Lookup(name string) (*ModuleRecord, error) {
	row := c.db.QueryRow(`SELECT name, mod_drv, data_path, versification, encoding, compressed, encrypted, conf_path
		FROM modules WHERE name = ?`, name)

	var rec ModuleRecord
	var compressed, encrypted int
	if err := row.Scan(&rec.Name, &rec.ModDrv, &rec.DataPath, &rec.Versification, &rec.Encoding, &compressed, &encrypted, &rec.ConfPath); err != nil {
		return nil, err
	}
	rec.Compressed = compressed != 0
	rec.Encrypted = encrypted != 0
	return &rec, nil
}

// List returns every indexed module, ordered by name.
func (c *Catalog) List() ([]*ModuleRecord, error) {
	rows, err := c.db.Query(`SELECT name, mod_drv, data_path, versification, encoding, compressed, encrypted, conf_path
		FROM modules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	defer rows.Close()

	var out []*ModuleRecord
	for rows.Next() {
		var rec ModuleRecord
		var compressed, encrypted int
		if err := rows.Scan(&rec.Name, &rec.ModDrv, &rec.DataPath, &rec.Versification, &rec.Encoding, &compressed, &encrypted, &rec.ConfPath); err != nil {
			return nil, err
		}
		rec.Compressed = compressed != 0
		rec.Encrypted = encrypted != 0
		out = append(out, &rec)
	}
	return out, rows.Err()
}
