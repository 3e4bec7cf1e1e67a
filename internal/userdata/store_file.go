package userdata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const fileSuffix = ".json"

// ErrInvalidSessionID is returned when a session id cannot name a cache entry.
var ErrInvalidSessionID = errors.New("userdata: invalid session id")

// FileStore keeps one session's envelope in a JSON file.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore returns the store for sessionID under dir. Session ids must be
// UUIDs.
func NewFileStore(fsys afero.Fs, dir, sessionID string) (*FileStore, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	return &FileStore{fs: fsys, path: filepath.Join(dir, sessionID+fileSuffix)}, nil
}

// FileStoreFactory opens FileStores under dir.
func FileStoreFactory(fsys afero.Fs, dir string) StoreFactory {
	return func(sessionID string) (Store, error) {
		return NewFileStore(fsys, dir, sessionID)
	}
}

// Path is the file that holds the entry.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context) (*Envelope, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	return decodeEnvelope(data)
}

// Set writes to a temporary file and renames it over the entry so readers
// never observe a partial write.
func (s *FileStore) Set(_ context.Context, env *Envelope) error {
	data, err := encodeEnvelope(env)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

// FileEntry describes one persisted entry found on disk.
type FileEntry struct {
	SessionID string
	Size      int64
	Envelope  *Envelope
	Err       error
}

// ListFileEntries reads every entry under dir. Entries that fail to decode
// are returned with Err set.
func ListFileEntries(fsys afero.Fs, dir string) ([]FileEntry, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list cache dir: %w", err)
	}

	var entries []FileEntry
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		sid := strings.TrimSuffix(name, fileSuffix)
		store, err := NewFileStore(fsys, dir, sid)
		if err != nil {
			continue
		}
		env, err := store.Get(context.Background())
		entries = append(entries, FileEntry{SessionID: sid, Size: info.Size(), Envelope: env, Err: err})
	}
	return entries, nil
}
