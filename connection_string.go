package liteinspect

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardKnop/liteinspect/internal/pkg/logging"
)

// ConnectionConfig holds parsed connection string parameters
type ConnectionConfig struct {
	FilePath       string // Database file path
	LogLevel       string // Log level: debug, info, warn, error (default: warn)
	MaxCachedPages int    // Raw pages kept in memory (default: 0, no cache)
	Mmap           bool   // Map the file into memory instead of reading it (default: false)
	Parallelism    int    // Subtrees a row count visits at once (default: 1)
}

// DefaultConnectionConfig returns default configuration
func DefaultConnectionConfig(filePath string) *ConnectionConfig {
	return &ConnectionConfig{
		FilePath:    filePath,
		LogLevel:    "warn",
		Parallelism: 1,
	}
}

// ParseConnectionString parses a connection string with optional query parameters.
//
// Format: /path/to/database.db?param1=value1&param2=value2
//
// Supported parameters:
//   - log_level=debug|info|warn|error : Set logging level (default: warn)
//   - max_cached_pages=N              : Cache up to N pages (default: 0)
//   - mmap=true|false                 : Memory-map the database file (default: false)
//   - parallelism=N                   : Count up to N subtrees concurrently (default: 1)
//
// Examples:
//   - "./my.db"                             : Default settings
//   - "./my.db?mmap=true"                   : Read pages from a memory mapping
//   - "./my.db?log_level=debug"             : Enable debug logging
//   - "./my.db?parallelism=4&max_cached_pages=64" : Parallel count with a page cache
func ParseConnectionString(connStr string) (*ConnectionConfig, error) {
	// Split on first '?' to separate path from query params
	parts := strings.SplitN(connStr, "?", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("connection string has no database path")
	}

	config := DefaultConnectionConfig(parts[0])

	// No query parameters
	if len(parts) == 1 {
		return config, nil
	}

	queryParams, err := url.ParseQuery(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid connection string query parameters: %w", err)
	}

	if logLevel := queryParams.Get("log_level"); logLevel != "" {
		logLevel = strings.ToLower(logLevel)
		switch logLevel {
		case "debug", "info", "warn", "error":
			config.LogLevel = logLevel
		default:
			return nil, fmt.Errorf("invalid log_level parameter: must be 'debug', 'info', 'warn', or 'error', got %q", logLevel)
		}
	}

	if maxPagesStr := queryParams.Get("max_cached_pages"); maxPagesStr != "" {
		maxPages, err := strconv.Atoi(maxPagesStr)
		if err != nil {
			return nil, fmt.Errorf("invalid max_cached_pages parameter: must be a positive integer, got %q", maxPagesStr)
		}
		if maxPages < 0 {
			return nil, fmt.Errorf("invalid max_cached_pages parameter: must be non-negative, got %d", maxPages)
		}
		config.MaxCachedPages = maxPages
	}

	if mmapStr := queryParams.Get("mmap"); mmapStr != "" {
		useMmap, err := strconv.ParseBool(mmapStr)
		if err != nil {
			return nil, fmt.Errorf("invalid mmap parameter: must be 'true' or 'false', got %q", mmapStr)
		}
		config.Mmap = useMmap
	}

	if parallelismStr := queryParams.Get("parallelism"); parallelismStr != "" {
		parallelism, err := strconv.Atoi(parallelismStr)
		if err != nil || parallelism < 1 {
			return nil, fmt.Errorf("invalid parallelism parameter: must be a positive integer, got %q", parallelismStr)
		}
		config.Parallelism = parallelism
	}

	return config, nil
}

// GetZapLevel converts log level string to zap.Level
func (c *ConnectionConfig) GetZapLevel() zap.AtomicLevel {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zap.NewAtomicLevelAt(level)
}
