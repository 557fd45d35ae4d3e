// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ldvpath derives file paths from the ldvctl base directory.
//
// The base directory (--dir flag) contains:
//
//	ldvctl.yaml    Config file
//	ledger.yaml    YAML journal (path configurable)
//	ledger.db      SQLite ledger written by "ldvctl ledger import"
package ldvpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ConfigFileName is the well-known config file name within the base directory.
	ConfigFileName = "ldvctl.yaml"
	// DefaultJournalFileName is the default YAML journal file name.
	DefaultJournalFileName = "ledger.yaml"
	// DefaultDatabaseFileName is the default SQLite ledger file name.
	DefaultDatabaseFileName = "ledger.db"
)

// ConfigFilePath returns the path to the config file within the base directory.
func ConfigFilePath(dirPath string) string {
	return filepath.Join(dirPath, ConfigFileName)
}

// DefaultDatabaseFilePath returns the default SQLite ledger path within the base directory.
func DefaultDatabaseFilePath(dirPath string) string {
	return filepath.Join(dirPath, DefaultDatabaseFileName)
}

// ResolvePath resolves a user-supplied path against the base directory.
//
// A leading ~ expands to the home directory. Relative paths are joined to dirPath.
func ResolvePath(dirPath string, path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDirPath, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get home directory: %w", err)
		}
		path = filepath.Join(homeDirPath, strings.TrimPrefix(path, "~"))
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(dirPath, path), nil
}

// IsDatabasePath returns true if the path names a SQLite ledger rather than a YAML journal.
func IsDatabasePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	default:
		return false
	}
}
