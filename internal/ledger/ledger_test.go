package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/anapay2zaim/internal/apperrors"
	"fjacquet/anapay2zaim/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "processed_emails.txt"), &logging.MockLogger{})
	require.NoError(t, err)

	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Contains("anything"))
}

func TestLoad_ReadsExistingRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_emails.txt")
	require.NoError(t, os.WriteFile(path, []byte("a@example.com\n\n  b@example.com  \na@example.com\n"), 0600))

	l, err := Open(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Contains("a@example.com"))
	assert.True(t, l.Contains("b@example.com"))
	assert.False(t, l.Contains("c@example.com"))
}

func TestRecord_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "processed_emails.txt")

	first, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Record("msg-1@121.ana.co.jp"))
	require.NoError(t, first.Record("msg-2@121.ana.co.jp"))
	assert.True(t, first.Contains("msg-1@121.ana.co.jp"))

	second, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Len())
	assert.True(t, second.Contains("msg-1@121.ana.co.jp"))
	assert.True(t, second.Contains("msg-2@121.ana.co.jp"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "msg-1@121.ana.co.jp\nmsg-2@121.ana.co.jp\n", string(data))
}

func TestRecord_DuplicateIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_emails.txt")
	l := New(path, nil)

	require.NoError(t, l.Record("dup"))
	require.NoError(t, l.Record("dup"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "dup\n", string(data))
	assert.Equal(t, 1, l.Len())
}

func TestRecord_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_emails.txt")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0600))

	l, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, l.Record("new"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(data))
}

func TestRecord_RejectsInvalidIDs(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "processed_emails.txt"), nil)

	for _, id := range []string{"", "   ", "a\nb"} {
		err := l.Record(id)
		require.Error(t, err)
		var ledgerErr *apperrors.LedgerIOError
		assert.True(t, errors.As(err, &ledgerErr))
	}
	assert.Equal(t, 0, l.Len())
}

func TestRecord_IOErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	l := New(filepath.Join(blocker, "processed_emails.txt"), nil)
	err := l.Record("msg")

	require.Error(t, err)
	var ledgerErr *apperrors.LedgerIOError
	require.True(t, errors.As(err, &ledgerErr))
	assert.True(t, apperrors.IsFatal(err))
	assert.False(t, l.Contains("msg"))
}

func TestLoad_IOErrorPropagates(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(dir, nil)

	require.Error(t, err)
	var ledgerErr *apperrors.LedgerIOError
	require.True(t, errors.As(err, &ledgerErr))
	assert.Equal(t, dir, ledgerErr.Path)
}
