package portraitserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// DiskStore keeps portraits under {root}/portraits/{characterID}/.
type DiskStore struct {
	root   string
	logger *zap.Logger
	now    func() time.Time
}

func NewDiskStore(root string, logger *zap.Logger) *DiskStore {
	return &DiskStore{root: root, logger: logger, now: time.Now}
}

func (s *DiskStore) Save(_ context.Context, characterID string, data []byte) (StoredPortrait, error) {
	dir := filepath.Join(s.root, portraitsDir, characterID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredPortrait{}, fmt.Errorf("%w %q: %w", ErrCreateDirectory, dir, err)
	}

	filename := portraitFilename(s.now())
	fullPath := filepath.Join(dir, filename)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return StoredPortrait{}, fmt.Errorf("%w %q: %w", ErrSaveImage, fullPath, err)
	}

	s.removeStale(dir, filename)

	info, err := os.Stat(fullPath)
	if err != nil {
		return StoredPortrait{}, fmt.Errorf("%w: stat %q: %w", ErrSaveImage, fullPath, err)
	}

	return StoredPortrait{
		CharacterID: characterID,
		Filename:    filename,
		PublicPath:  publicPath(characterID, filename),
		Size:        info.Size(),
	}, nil
}

// removeStale deletes every portrait in dir except keep. Best effort.
func (s *DiskStore) removeStale(dir, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("list portraits for cleanup", zap.String("dir", dir), zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == keep || !isPortraitFile(e.Name()) {
			continue
		}
		stale := filepath.Join(dir, e.Name())
		if err := os.Remove(stale); err != nil {
			s.logger.Warn("could not remove stale portrait", zap.String("path", stale), zap.Error(err))
			continue
		}
		s.logger.Debug("removed stale portrait", zap.String("path", stale))
	}
}

func (s *DiskStore) Open(_ context.Context, characterID, filename string) (io.ReadCloser, int64, error) {
	fullPath := filepath.Join(s.root, portraitsDir, characterID, filename)
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, ErrPortraitNotFound
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, ErrPortraitNotFound
	}
	return f, info.Size(), nil
}
