package config

import (
	"os"
	"path/filepath"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "erdview.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "erdview.yml"

// FindConfigFile returns the config file in dir, or "" when there is none.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from startDir to the first directory holding a
// config file, giving up after maxLevels parents. Returns "" if none is found.
func FindProjectRoot(startDir string, maxLevels int) string {
	dir := startDir
	for i := 0; i <= maxLevels; i++ {
		if FindConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
	return ""
}

// ResolvePaths makes the relative file paths of c relative to baseDir.
// In-memory sqlite paths are left alone.
func (c *Config) ResolvePaths(baseDir string) {
	if c.Store.Path != ":memory:" {
		c.Store.Path = resolvePath(c.Store.Path, baseDir)
	}
	c.Cache.Path = resolvePath(c.Cache.Path, baseDir)
	c.Server.Dump = resolvePath(c.Server.Dump, baseDir)
	if c.Source.Path != ":memory:" {
		c.Source.Path = resolvePath(c.Source.Path, baseDir)
	}
}

func resolvePath(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
