package database

import (
	"database/sql"
	"fmt"
	"visionary-backend/internal/models"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// these next 2 extremely speed up performance of sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	return nil
}

func readPragmaValues(db *sql.DB) error {
	var journalModeValue string
	err := db.QueryRow("PRAGMA journal_mode").Scan(&journalModeValue)
	if err != nil {
		return err
	}
	fmt.Printf("sqlite PRAGMA journal_mode: %s\n", journalModeValue)

	var synchronousValue int
	err = db.QueryRow("PRAGMA synchronous").Scan(&synchronousValue)
	if err != nil {
		return err
	}

	var synchronousValueStr string
	switch synchronousValue {
	case 0:
		synchronousValueStr = "off"
	case 1:
		synchronousValueStr = "normal"
	case 2:
		synchronousValueStr = "full"
	case 3:
		synchronousValueStr = "extra"
	default:
		return fmt.Errorf("synchronous value is unsupported")
	}

	fmt.Printf("sqlite PRAGMA synchronous: %s\n", synchronousValueStr)

	return nil
}

// Setup opens sqlite when the service is self contained and mysql/mariadb
// otherwise, then creates the tables.
func Setup(cfg *models.ConfigFile) (*sql.DB, error) {
	var db *sql.DB
	var err error

	if cfg.SelfContained {
		path := cfg.SqlitePath
		if path == "" {
			path = "./database.db"
		}
		fmt.Printf("Connecting to database sqlite at %s...\n", path)

		db, err = sql.Open("sqlite", path)
		if err != nil {
			return db, err
		}

		// there can be sqlite busy errors if this is not set to 1
		db.SetMaxOpenConns(1)

		err = setPragmaValues(db)
		if err != nil {
			return db, err
		}

		err = readPragmaValues(db)
		if err != nil {
			return db, err
		}
	} else {
		fmt.Println("Connecting to database mysql/mariadb...")

		db, err = sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s", cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase))
		if err != nil {
			return db, err
		}

		db.SetMaxOpenConns(10)
	}

	err = setupTables(db)
	if err != nil {
		return db, err
	}

	return db, nil
}

func setupTables(db *sql.DB) error {
	// every write bumps version, readers use it to drop stale change events.
	// LONGTEXT since a mysql TEXT stops at 64KB, sqlite reads it as TEXT.
	_, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS kv_store (
				name VARCHAR(128) PRIMARY KEY,
				value LONGTEXT NOT NULL,
				version BIGINT NOT NULL
			);
	`)
	return err
}
