package keymgr

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"github.com/arcliffe/openidcore/pkg/errors"
)

const (
	keyFilePrefix    = "signing-key-"
	keyFileExtension = ".json"
)

// FileSystemKeyStore persists each serialized key as one JSON file in a
// directory. Unreadable files are logged and skipped, never fatal.
type FileSystemKeyStore struct {
	directory string
	logger    logr.Logger
}

var _ SigningKeyStore = (*FileSystemKeyStore)(nil)

func NewFileSystemKeyStore(directory string, logger logr.Logger) *FileSystemKeyStore {
	return &FileSystemKeyStore{
		directory: directory,
		logger:    logger,
	}
}

func (s *FileSystemKeyStore) LoadKeys(_ context.Context) ([]SerializedKey, error) {
	if err := os.MkdirAll(s.directory, 0o700); err != nil {
		return nil, errors.Wrap(errors.CodeStorageUnavailable, "keymgr: failed to create key directory", err)
	}

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageUnavailable, "keymgr: failed to read key directory", err)
	}

	var out []SerializedKey
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, keyFilePrefix) || !strings.HasSuffix(name, keyFileExtension) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.directory, name))
		if err != nil {
			s.logger.Error(err, "failed to read key file", "file", name)
			continue
		}

		var key SerializedKey
		if err := json.Unmarshal(data, &key); err != nil {
			s.logger.Error(err, "failed to parse key file", "file", name)
			continue
		}

		out = append(out, key)
	}

	return out, nil
}

func (s *FileSystemKeyStore) StoreKey(_ context.Context, key SerializedKey) error {
	if err := os.MkdirAll(s.directory, 0o700); err != nil {
		return errors.Wrap(errors.CodeStorageUnavailable, "keymgr: failed to create key directory", err)
	}

	data, err := json.Marshal(key)
	if err != nil {
		return errors.Wrap(errors.CodeUnknown, "keymgr: failed to marshal key", err)
	}

	if err := os.WriteFile(s.keyFilePath(key.ID), data, 0o600); err != nil {
		return errors.Wrap(errors.CodeStorageUnavailable, "keymgr: failed to write key file", err)
	}

	return nil
}

func (s *FileSystemKeyStore) DeleteKey(_ context.Context, id string) error {
	if err := os.Remove(s.keyFilePath(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.CodeStorageUnavailable, "keymgr: failed to delete key file", err)
	}
	return nil
}

func (s *FileSystemKeyStore) keyFilePath(id string) string {
	return filepath.Join(s.directory, keyFilePrefix+id+keyFileExtension)
}
