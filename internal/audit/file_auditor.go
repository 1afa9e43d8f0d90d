package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/darmiel/idgate/internal/core"
)

var ErrAuditorClosed = errors.New("auditor is closed")

var _ core.Auditor = (*FileAuditor)(nil)

// FileAuditor appends audit entries to a file as JSON lines. It cannot be
// queried, New pairs it with an InMemoryAuditor for the admin view.
type FileAuditor struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *json.Encoder
}

func NewFileAuditor(path string) (*FileAuditor, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log '%s': %w", path, err)
	}
	return &FileAuditor{
		path:    path,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

func (f *FileAuditor) Log(entry core.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return ErrAuditorClosed
	}
	if err := f.encoder.Encode(entry); err != nil {
		return fmt.Errorf("appending %s entry to '%s': %w", entry.Action, f.path, err)
	}
	return nil
}

// Close flushes the file to disk. Closing twice is a no-op.
func (f *FileAuditor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	file := f.file
	f.file = nil
	return errors.Join(file.Sync(), file.Close())
}
