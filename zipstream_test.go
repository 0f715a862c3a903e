package rocrate

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readZipMembers(t *testing.T, data []byte) map[string]string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	members := make(map[string]string, len(r.File))
	for _, member := range r.File {
		src, err := member.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(src)
		require.NoError(t, err)
		require.NoError(t, src.Close())
		members[member.Name] = string(content)
	}
	return members
}

func TestWriteZip(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, src, "data.csv", "a,b\n1,2\n")
	writeTestFile(t, src, "inputs/params.txt", "alpha=1\n")

	c := newTestCrate(t)
	require.NoError(t, c.SetName("zipped"))
	_, err := c.AddFile(filepath.Join(src, "data.csv"), "")
	require.NoError(t, err)
	_, err = c.AddDataset(filepath.Join(src, "inputs"), "")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "crate.zip")
	require.NoError(t, c.WriteZip(context.Background(), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	members := readZipMembers(t, data)

	assert.Equal(t, "a,b\n1,2\n", members["data.csv"])
	assert.Equal(t, "alpha=1\n", members["inputs/params.txt"])
	assert.Contains(t, members[MetadataBasename], `"@graph"`)
	assert.Contains(t, members[MetadataBasename], "zipped")
}

func TestStreamZipMatchesWriteZip(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, src, "data.csv", "a,b\n1,2\n")

	c := newTestCrate(t)
	_, err := c.AddFile(filepath.Join(src, "data.csv"), "")
	require.NoError(t, err)

	// A tiny chunk size forces many yields; the concatenation must still
	// be a valid archive.
	var streamed bytes.Buffer
	for chunk, err := range c.StreamZip(context.Background(), 16) {
		require.NoError(t, err)
		assert.LessOrEqual(t, len(chunk), 16)
		streamed.Write(chunk)
	}

	members := readZipMembers(t, streamed.Bytes())
	assert.Equal(t, "a,b\n1,2\n", members["data.csv"])
	assert.Contains(t, members, MetadataBasename)
}

func TestWriteZipSelfExclusion(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, src, "a.txt", "a")

	c, err := NewFromTree(src)
	require.NoError(t, err)

	// Writing the archive into the crate's own source tree must not
	// recurse into the growing archive.
	out := filepath.Join(src, "crate.zip")
	require.NoError(t, c.WriteZip(context.Background(), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	members := readZipMembers(t, data)
	assert.Contains(t, members, "a.txt")
	assert.NotContains(t, members, "crate.zip")
}

func TestStreamZipUnlistedFiles(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, src, "listed.txt", "listed")
	writeTestFile(t, src, "extra/unlisted.txt", "unlisted")

	c, err := NewFromTree(src)
	require.NoError(t, err)
	require.NoError(t, c.DeleteID("extra/unlisted.txt"))
	require.NoError(t, c.DeleteID("extra/"))

	var streamed bytes.Buffer
	for chunk, err := range c.StreamZip(context.Background(), 0) {
		require.NoError(t, err)
		streamed.Write(chunk)
	}

	members := readZipMembers(t, streamed.Bytes())
	assert.Equal(t, "listed", members["listed.txt"])
	assert.Equal(t, "unlisted", members["extra/unlisted.txt"])
}

func TestStreamZipAbandoned(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, src, "data.csv", "a,b\n1,2\n")

	c := newTestCrate(t)
	_, err := c.AddFile(filepath.Join(src, "data.csv"), "")
	require.NoError(t, err)

	chunks := 0
	for _, err := range c.StreamZip(context.Background(), 8) {
		require.NoError(t, err)
		chunks++
		if chunks == 2 {
			break
		}
	}
	assert.Equal(t, 2, chunks)
}

func TestFileStreamCompleteness(t *testing.T) {
	content := strings.Repeat("0123456789", 41)
	src := t.TempDir()
	p := writeTestFile(t, src, "blob.bin", content)

	c := newTestCrate(t)
	f, err := c.AddFile(p, "", WithRecordSize(true))
	require.NoError(t, err)

	var got bytes.Buffer
	for part, err := range f.Stream(context.Background(), 64) {
		require.NoError(t, err)
		assert.Equal(t, "blob.bin", part.Path)
		assert.LessOrEqual(t, len(part.Data), 64)
		got.Write(part.Data)
	}
	assert.Equal(t, len(content), got.Len())
	assert.Equal(t, content, got.String())
	assert.Equal(t, "410", f.Get("contentSize"))
}

func TestDatasetStreamRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/a.txt":
			io.WriteString(w, "alpha")
		case "/data/sub/b.txt":
			io.WriteString(w, "beta")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	var logs bytes.Buffer
	c, err := New(WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	d, err := c.AddDataset(srv.URL+"/data", "", WithFetchRemote(true))
	require.NoError(t, err)
	d.setRaw("hasPart", []any{
		map[string]any{"@id": "a.txt"},
		map[string]any{"name": "entry without id"},
		map[string]any{"@id": "sub/b.txt"},
	})

	var paths []string
	var payload bytes.Buffer
	for part, err := range d.Stream(context.Background(), 0) {
		require.NoError(t, err)
		paths = append(paths, part.Path)
		payload.Write(part.Data)
	}
	// The entry without @id is skipped with a warning; the rest stream
	// from the base URL joined with their relative ids.
	assert.Equal(t, []string{"data/a.txt", "data/sub/b.txt"}, paths)
	assert.Equal(t, "alphabeta", payload.String())
	assert.Contains(t, logs.String(), "missing @id")
}

func TestDatasetStreamRemoteInvalidPart(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, err := New(WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	d, err := c.AddDataset(srv.URL+"/data", "", WithFetchRemote(true))
	require.NoError(t, err)

	for name, part := range map[string]string{
		"absolute path": "/etc/passwd",
		"absolute URL":  "http://elsewhere.example/x.txt",
	} {
		t.Run(name, func(t *testing.T) {
			d.setRaw("hasPart", []any{map[string]any{"@id": part}})
			var streamErr error
			for _, err := range d.Stream(context.Background(), 0) {
				streamErr = err
			}
			require.ErrorIs(t, streamErr, ErrInvalidReference)
		})
	}
}

func TestOpenZipRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, src, "data.csv", "a,b\n1,2\n")

	c := newTestCrate(t)
	require.NoError(t, c.SetName("zip round trip"))
	_, err := c.AddFile(filepath.Join(src, "data.csv"), "")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "crate.zip")
	require.NoError(t, c.WriteZip(context.Background(), out))

	loaded, err := Open(out)
	require.NoError(t, err)
	assert.Equal(t, "zip round trip", loaded.Name())
	f, ok := loaded.Dereference("data.csv").(*File)
	require.True(t, ok)
	payload, err := os.ReadFile(f.Source())
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(payload))

	// Close removes the temporary extraction dir.
	extracted := loaded.Source()
	require.NoError(t, loaded.Close())
	_, err = os.Stat(extracted)
	require.True(t, os.IsNotExist(err))
}

func TestMemoryBuffer(t *testing.T) {
	b := &memoryBuffer{}
	n, err := b.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	chunk := b.next(5)
	assert.Equal(t, "hello", string(chunk))
	assert.Equal(t, 6, b.Len())

	// Chunks are stable copies, unaffected by later writes.
	_, err = b.Write([]byte("xxxxxxxx"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(chunk))

	rest := b.next(100)
	assert.Equal(t, " worldxxxxxxxx", string(rest))
	assert.Equal(t, 0, b.Len())
}
