package rocrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsList(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []any
	}{
		{"nil", nil, nil},
		{"scalar", "a", []any{"a"}},
		{"list", []any{"a", "b"}, []any{"a", "b"}},
		{"typed slice", []string{"a", "b"}, []any{"a", "b"}},
		{"bytes are scalar", []byte("a"), []any{[]byte("a")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, asList(tt.in))
		})
	}
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, stringList([]any{"a", 1, "c"}))
	assert.Equal(t, []string{"solo"}, stringList("solo"))
	assert.Empty(t, stringList(nil))
}

func TestNormValues(t *testing.T) {
	got := normValues([]any{
		map[string]any{"@id": "alice"},
		"plain",
		42,
	})
	assert.Equal(t, []string{"alice", "plain"}, got)
}

func TestParseISOTime(t *testing.T) {
	for _, s := range []string{"2024-05-01T12:00:00Z", "2024-05-01T12:00:00"} {
		ts, err := parseISOTime(s)
		require.NoError(t, err)
		assert.Equal(t, 2024, ts.Year())
	}
	_, err := parseISOTime("yesterday")
	assert.Error(t, err)
}

func TestWalkTreeExclude(t *testing.T) {
	top := t.TempDir()
	writeTestFile(t, top, "a.txt", "a")
	writeTestFile(t, top, ".git/config", "x")
	writeTestFile(t, top, "sub/b.txt", "b")

	var seen []string
	err := walkTree(top, []string{".git"}, func(path string, d fs.DirEntry) error {
		rel, err := relSlash(top, path)
		require.NoError(t, err)
		seen = append(seen, rel)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(seen)
	assert.Equal(t, []string{"a.txt", "sub", "sub/b.txt"}, seen)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "src.txt", "payload")

	dst := filepath.Join(dir, "nested", "dst.txt")
	require.NoError(t, copyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// Copying a file onto itself leaves it intact.
	require.NoError(t, copyFile(src, src))
	data, err = os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}
