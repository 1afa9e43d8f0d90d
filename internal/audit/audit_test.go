package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/idgate/internal/core"
)

func entry(id, subject string) core.AuditEntry {
	return core.AuditEntry{ID: id, Time: time.Now(), Action: core.ActionLogin, Subject: subject, Success: true}
}

func TestInMemoryAuditor(t *testing.T) {
	a := NewInMemoryAuditor(3)
	for _, id := range []string{"1", "2", "3", "4"} {
		require.NoError(t, a.Log(entry(id, "s-"+id)))
	}

	recent, err := a.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "2", recent[0].ID, "oldest entry is dropped")

	recent, err = a.GetRecent(1)
	require.NoError(t, err)
	assert.Equal(t, "4", recent[0].ID)

	found, err := a.Find(func(e core.AuditEntry) bool { return e.Subject == "s-3" }, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "3", found[0].ID)
}

func TestFileAuditor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	a, err := New(TypeFile, path)
	require.NoError(t, err)
	require.NoError(t, a.Log(entry("1", "a")))
	require.NoError(t, a.Log(entry("2", "b")))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e core.AuditEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"1", "2"}, ids)

	r, ok := ReaderOf(a)
	require.True(t, ok)
	recent, err := r.GetRecent(5)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestFileAuditor_LogAfterClose(t *testing.T) {
	a, err := NewFileAuditor(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.Log(entry("1", "a")), ErrAuditorClosed)
}

func TestNew(t *testing.T) {
	a, err := New("", "")
	require.NoError(t, err)
	_, ok := ReaderOf(a)
	assert.True(t, ok)

	a, err = New(TypeNoop, "")
	require.NoError(t, err)
	_, ok = ReaderOf(a)
	assert.False(t, ok)

	_, err = New(TypeFile, "")
	assert.Error(t, err)

	_, err = New("syslog", "")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	assert.Empty(t, Fingerprint(""))
	assert.Equal(t, Fingerprint("abc"), Fingerprint("abc"))
	assert.NotEqual(t, Fingerprint("abc"), Fingerprint("abd"))
}
