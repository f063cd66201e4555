package repl

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// History backends.
const (
	HistoryBackendFile = "file"
	HistoryBackendBolt = "bolt"
)

// HistoryConfig holds all history-related configuration.
//
// File path supports multiple formats:
//   - Empty string: Memory-only history (no persistence)
//   - Absolute path: "/home/user/.repl_history"
//   - Home directory: "~/.repl_history"
//   - Relative path: "./repl_history" (converted to absolute)
//
// Backend selects how File is written: "file" keeps one entry per line and
// rotates by size, "bolt" keeps entries in a bbolt database and appends each
// entry as it is recorded.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`       // Enable/disable history functionality
	MaxEntries  int    `yaml:"max_entries"`   // Maximum number of entries to keep in memory (default: 1000)
	File        string `yaml:"file"`          // File path for history persistence (empty = memory only)
	Backend     string `yaml:"backend"`       // "file" (default) or "bolt"
	MaxFileSize int64  `yaml:"max_file_size"` // Maximum file size in bytes before rotation (default: 1MB)
	MaxBackups  int    `yaml:"max_backups"`   // Maximum number of backup files to keep (default: 3)
}

// DefaultHistoryConfig returns a memory-only history configuration.
func DefaultHistoryConfig() *HistoryConfig {
	return &HistoryConfig{
		Enabled:     true,
		MaxEntries:  1000,
		File:        "",
		Backend:     HistoryBackendFile,
		MaxFileSize: 1024 * 1024, // 1MB
		MaxBackups:  3,
	}
}

// GetDefaultHistoryFile returns the default history file path following XDG Base Directory Specification.
// Returns ~/.config/repl/history or $XDG_CONFIG_HOME/repl/history if XDG_CONFIG_HOME is set.
func GetDefaultHistoryFile() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "repl", "history")
}

// HistoryStore persists history entries.
type HistoryStore interface {
	// Load returns the stored entries, oldest first.
	Load() ([]string, error)
	// Add records one new entry. Stores that only write on Save may ignore it.
	Add(entry string) error
	// Save writes the complete in-memory history.
	Save(entries []string) error
	Close() error
}

// HistoryManager keeps the lines entered in a session and persists them
// through a HistoryStore.
type HistoryManager struct {
	config  *HistoryConfig
	store   HistoryStore
	history []string
}

// NewHistoryManager creates a new history manager with the given configuration.
// Nothing is read from disk until LoadHistory.
func NewHistoryManager(config *HistoryConfig) *HistoryManager {
	if config == nil {
		config = DefaultHistoryConfig()
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1000
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = 1024 * 1024 // 1MB default
	}
	if config.MaxBackups < 0 {
		config.MaxBackups = 3
	}

	// Expand and convert file path to absolute path if specified
	if config.File != "" {
		if absPath, err := expandHistoryPath(config.File); err == nil {
			config.File = absPath
		}
	}

	hm := &HistoryManager{
		config:  config,
		history: make([]string, 0),
	}
	if config.Enabled && config.File != "" {
		switch config.Backend {
		case HistoryBackendBolt:
			hm.store = newBoltHistoryStore(config.File, config.MaxEntries)
		default:
			hm.store = &fileHistoryStore{
				path:        config.File,
				maxFileSize: config.MaxFileSize,
				maxBackups:  config.MaxBackups,
			}
		}
	}
	return hm
}

// NewHistoryManagerWithStore creates a history manager backed by a custom store.
func NewHistoryManagerWithStore(config *HistoryConfig, store HistoryStore) *HistoryManager {
	hm := NewHistoryManager(config)
	hm.store = store
	return hm
}

// IsEnabled returns whether history functionality is enabled
func (hm *HistoryManager) IsEnabled() bool {
	return hm.config.Enabled
}

// LoadHistory loads history from the configured store
func (hm *HistoryManager) LoadHistory() error {
	if !hm.config.Enabled || hm.store == nil {
		return nil
	}
	entries, err := hm.store.Load()
	if err != nil {
		return err
	}
	hm.history = append(hm.history[:0], entries...)
	hm.trim()
	return nil
}

// SaveHistory saves the current history to the configured store
func (hm *HistoryManager) SaveHistory() error {
	if !hm.config.Enabled || hm.store == nil {
		return nil
	}
	return hm.store.Save(hm.history)
}

// Close saves the history and releases the store.
func (hm *HistoryManager) Close() error {
	if hm.store == nil {
		return nil
	}
	err := hm.SaveHistory()
	if cerr := hm.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// AddEntry adds a new entry to the history. Consecutive duplicates are
// ignored.
func (hm *HistoryManager) AddEntry(entry string) error {
	if !hm.config.Enabled || strings.TrimSpace(entry) == "" {
		return nil
	}
	if len(hm.history) > 0 && hm.history[len(hm.history)-1] == entry {
		return nil
	}

	hm.history = append(hm.history, entry)
	hm.trim()

	if hm.store != nil {
		if err := hm.store.Add(entry); err != nil {
			return fmt.Errorf("failed to record history entry: %w", err)
		}
	}
	return nil
}

// GetHistory returns a copy of the current history
func (hm *HistoryManager) GetHistory() []string {
	if !hm.config.Enabled {
		return []string{}
	}
	return append([]string{}, hm.history...)
}

// Len returns the number of entries in memory.
func (hm *HistoryManager) Len() int {
	return len(hm.history)
}

// Entry returns the entry at index i, oldest first.
func (hm *HistoryManager) Entry(i int) (string, bool) {
	if i < 0 || i >= len(hm.history) {
		return "", false
	}
	return hm.history[i], true
}

// SetHistory replaces the current history
func (hm *HistoryManager) SetHistory(history []string) {
	if !hm.config.Enabled {
		return
	}
	hm.history = append([]string{}, history...)
	hm.trim()
}

// ClearHistory clears the current history
func (hm *HistoryManager) ClearHistory() {
	if !hm.config.Enabled {
		return
	}
	hm.history = []string{}
}

func (hm *HistoryManager) trim() {
	if len(hm.history) > hm.config.MaxEntries {
		hm.history = hm.history[len(hm.history)-hm.config.MaxEntries:]
	}
}

// fileHistoryStore keeps one entry per line and rotates the file once it
// grows past maxFileSize.
type fileHistoryStore struct {
	path        string
	maxFileSize int64
	maxBackups  int
}

func (s *fileHistoryStore) Load() ([]string, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // File doesn't exist yet, that's ok
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			entries = append(entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	return entries, nil
}

func (s *fileHistoryStore) Add(string) error { return nil }

func (s *fileHistoryStore) Save(entries []string) error {
	rotated, err := s.rotateIfNeeded()
	if err != nil {
		return fmt.Errorf("failed to rotate history file: %w", err)
	}
	if rotated {
		// Keep only half of the entries to avoid immediate rotation
		if keep := len(entries) / 2; keep >= 100 {
			entries = entries[len(entries)-keep:]
		}
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create history file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, entry := range entries {
		if _, err := fmt.Fprintln(w, entry); err != nil {
			return fmt.Errorf("failed to write history entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

func (s *fileHistoryStore) Close() error { return nil }

// rotateIfNeeded rotates the history file when it has reached maxFileSize.
func (s *fileHistoryStore) rotateIfNeeded() (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.Size() < s.maxFileSize {
		return false, nil
	}
	return true, s.rotate()
}

// rotate shifts path.1..path.N-1 up by one and moves path to path.1.
func (s *fileHistoryStore) rotate() error {
	if s.maxBackups <= 0 {
		// If no backups allowed, just truncate the file
		return os.Truncate(s.path, 0)
	}

	oldestBackup := s.path + "." + strconv.Itoa(s.maxBackups)
	if _, err := os.Stat(oldestBackup); err == nil {
		if err := os.Remove(oldestBackup); err != nil {
			return fmt.Errorf("failed to remove oldest backup: %w", err)
		}
	}

	for i := s.maxBackups - 1; i >= 1; i-- {
		oldFile := s.path + "." + strconv.Itoa(i)
		newFile := s.path + "." + strconv.Itoa(i+1)

		if _, err := os.Stat(oldFile); err == nil {
			if err := os.Rename(oldFile, newFile); err != nil {
				return fmt.Errorf("failed to rotate backup %d: %w", i, err)
			}
		}
	}

	if err := os.Rename(s.path, s.path+".1"); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}
	return nil
}

// expandHistoryPath expands and validates the history file path
// Supports:
// - Absolute paths: /home/user/.history
// - Home directory expansion: ~/.history or ~/config/.history
// - Relative paths: ./.history or config/.history (converted to absolute)
func expandHistoryPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to convert to absolute path: %w", err)
	}
	return absPath, nil
}
