package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// LoadFixtures loads SQL fixture files into the database
func LoadFixtures(db *sql.DB, fixturesPath string, files []string) error {
	for _, file := range files {
		path := filepath.Join(fixturesPath, file)
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read fixture %s: %w", file, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("load fixture %s: %w", file, err)
		}
	}

	return nil
}

// CountServices returns the number of rows for a source in a country
func CountServices(db *sql.DB, source, country string) (int, error) {
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM services WHERE source = $1 AND country = $2", source, country).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count services %s/%s: %w", source, country, err)
	}
	return count, nil
}
