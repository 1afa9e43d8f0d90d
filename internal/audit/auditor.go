package audit

import (
	"errors"
	"fmt"

	"github.com/darmiel/idgate/internal/core"
)

// Auditor types accepted by New.
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeNoop   = "noop"
)

// Tee fans every entry out to all auditors. Reads are served by the first
// auditor implementing core.AuditReader.
type Tee struct {
	auditors []core.Auditor
}

var _ core.Auditor = (*Tee)(nil)

func NewTee(auditors ...core.Auditor) *Tee {
	return &Tee{auditors: auditors}
}

func (t *Tee) Log(entry core.AuditEntry) error {
	var errs []error
	for _, a := range t.auditors {
		if err := a.Log(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Tee) Close() error {
	var errs []error
	for _, a := range t.auditors {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reader returns the first auditor that can be queried.
func (t *Tee) Reader() (core.AuditReader, bool) {
	for _, a := range t.auditors {
		if r, ok := a.(core.AuditReader); ok {
			return r, true
		}
	}
	return nil, false
}

// New builds an auditor of the given type. File auditors also keep a memory
// copy so that the admin endpoints can read recent entries.
func New(typ, path string) (core.Auditor, error) {
	switch typ {
	case "", TypeMemory:
		return NewInMemoryAuditor(0), nil
	case TypeNoop:
		return NewNoopAuditor(), nil
	case TypeFile:
		if path == "" {
			return nil, fmt.Errorf("audit path is required for type '%s'", TypeFile)
		}
		fa, err := NewFileAuditor(path)
		if err != nil {
			return nil, err
		}
		return NewTee(NewInMemoryAuditor(0), fa), nil
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", typ)
	}
}

// ReaderOf returns a queryable view of a, if it has one.
func ReaderOf(a core.Auditor) (core.AuditReader, bool) {
	switch v := a.(type) {
	case core.AuditReader:
		return v, true
	case *Tee:
		return v.Reader()
	default:
		return nil, false
	}
}
