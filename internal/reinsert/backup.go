package reinsert

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/google/uuid"
)

// Backuper stores a durable copy of a ROM image before it is modified.
type Backuper interface {
	// Backup stores data, the unmodified contents of the ROM at path, and
	// returns where the copy was written. The copy must be on stable storage
	// when Backup returns without error.
	Backup(path string, data []byte, session uuid.UUID) (string, error)
}

// FileBackup writes backups as files. An empty Dir places the backup next to
// the ROM image.
type FileBackup struct {
	Dir string
}

// Backup writes data to <name>.<session>.bak and syncs file and directory.
func (b FileBackup) Backup(path string, data []byte, session uuid.UUID) (string, error) {
	dir := b.Dir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	backupPath := filepath.Join(dir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), session))

	file, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", &romerr.IOError{Op: "creating backup", Path: backupPath, Err: err}
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return "", &romerr.IOError{Op: "writing backup", Path: backupPath, Err: err}
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return "", &romerr.IOError{Op: "syncing backup", Path: backupPath, Err: err}
	}
	if err := file.Close(); err != nil {
		return "", &romerr.IOError{Op: "closing backup", Path: backupPath, Err: err}
	}
	if err := syncDir(dir); err != nil {
		return "", err
	}
	return backupPath, nil
}

// syncDir makes a newly created directory entry durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return &romerr.IOError{Op: "opening directory", Path: dir, Err: err}
	}
	defer func() { _ = d.Close() }()
	if err := d.Sync(); err != nil {
		return &romerr.IOError{Op: "syncing directory", Path: dir, Err: err}
	}
	return nil
}

// MemoryBackup keeps backups in memory. It is used for dry runs that never
// save the image.
type MemoryBackup struct {
	mu      sync.Mutex
	backups map[string][]byte
}

// Backup stores a copy of data keyed by path and session.
func (b *MemoryBackup) Backup(path string, data []byte, session uuid.UUID) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.backups == nil {
		b.backups = map[string][]byte{}
	}
	key := fmt.Sprintf("%s.%s.bak", path, session)
	b.backups[key] = append([]byte(nil), data...)
	return key, nil
}

// Get returns a stored backup.
func (b *MemoryBackup) Get(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.backups[key]
	return data, ok
}
