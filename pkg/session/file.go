package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore persists conversation history as one JSONL file per session.
// It satisfies Store and survives process restarts, unlike MemoryStore.
type FileStore struct {
	dir        string
	writeLocks map[string]*sync.Mutex
	locksMu    sync.Mutex
}

type fileEntry struct {
	SessionID string `json:"session_id"`
	Turn      Turn   `json:"turn"`
}

// NewFileStore creates a file-backed history store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".assigny", "sessions")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	log.Info().Str("dir", dir).Msg("Session store initialized")

	return &FileStore{
		dir:        dir,
		writeLocks: make(map[string]*sync.Mutex),
	}, nil
}

// validateSessionID rejects ids that could escape the sessions directory.
func (s *FileStore) validateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if strings.Contains(sessionID, "..") {
		return fmt.Errorf("session id cannot contain '..'")
	}
	if strings.ContainsAny(sessionID, "/\\") {
		return fmt.Errorf("session id cannot contain path separators")
	}
	if strings.Contains(sessionID, "\x00") {
		return fmt.Errorf("session id cannot contain null bytes")
	}
	return nil
}

func (s *FileStore) sessionPath(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".jsonl")
}

func (s *FileStore) writeLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	if lock, ok := s.writeLocks[sessionID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.writeLocks[sessionID] = lock
	return lock
}

// Turns loads the ordered history for a session, skipping corrupt lines.
func (s *FileStore) Turns(sessionID string) ([]Turn, error) {
	if err := s.validateSessionID(sessionID); err != nil {
		return nil, err
	}

	file, err := os.Open(s.sessionPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	var turns []Turn
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var entry fileEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			log.Warn().
				Str("session_id", sessionID).
				Int("line", lineNum).
				Err(err).
				Msg("Failed to parse session line, skipping")
			continue
		}
		if entry.Turn.Role == "" || entry.Turn.Content == "" {
			log.Warn().
				Str("session_id", sessionID).
				Int("line", lineNum).
				Msg("Invalid session entry, skipping")
			continue
		}

		turns = append(turns, entry.Turn)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	return turns, nil
}

// Append appends turns to the session file, creating it on first use.
func (s *FileStore) Append(sessionID string, turns ...Turn) error {
	if err := s.validateSessionID(sessionID); err != nil {
		return err
	}

	lock := s.writeLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	file, err := os.OpenFile(s.sessionPath(sessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	for _, turn := range turns {
		if turn.Role == "" {
			return fmt.Errorf("turn role cannot be empty")
		}
		if turn.Content == "" {
			return fmt.Errorf("turn content cannot be empty")
		}

		data, err := json.Marshal(fileEntry{SessionID: sessionID, Turn: turn})
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write turn: %w", err)
		}
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync session file: %w", err)
	}

	return nil
}

// ListSessions lists all persisted session ids.
func (s *FileStore) ListSessions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(entry.Name(), ".jsonl"))
	}
	return sessions, nil
}
