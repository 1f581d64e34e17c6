package database

import (
	"os"
	"path/filepath"

	"dinohash/pkg/config"
)

// tablePath returns the base path of a table's files.
func (db *Database) tablePath(name string) string {
	return filepath.Join(db.basepath, name)
}

// tableExists reports whether either file of the table at basePath exists.
func tableExists(basePath string) bool {
	for _, suffix := range []string{config.DirectorySuffix, config.BucketSuffix} {
		if _, err := os.Stat(basePath + suffix); err == nil {
			return true
		}
	}
	return false
}

func checkName(name string) error {
	if name == "" || nonWord.MatchString(name) {
		return ErrBadTableName
	}
	return nil
}
