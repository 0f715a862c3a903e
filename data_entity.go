package rocrate

import (
	"context"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rocrateio/rocrate-go/id"
)

// DefaultChunkSize is the chunk size used by streaming operations when the
// caller does not specify one.
const DefaultChunkSize = 8192

// FilePart is one chunk of a data entity's byte stream: a crate-relative
// destination path and a block of that file's content. Chunks belonging to
// one path are always emitted contiguously.
type FilePart struct {
	Path string
	Data []byte
}

// Writable is the capability set of entities that materialize payload
// bytes: data entities plus the default metadata and preview entities.
type Writable interface {
	Node

	// Write materializes the entity's content under the base directory.
	Write(ctx context.Context, base string) error

	// Stream produces the entity's content as a lazy sequence of
	// (path, chunk) pairs. Each call starts a fresh sequence; resources
	// are released even if the caller abandons iteration early.
	Stream(ctx context.Context, chunkSize int) iter.Seq2[FilePart, error]
}

// DataEntity is a generic data entity: it appears in the root dataset's
// hasPart list but carries no locally materializable bytes. It is the
// fallback type for hasPart members whose declared types match no
// registered data entity type.
type DataEntity struct {
	*Entity
}

// NewDataEntity creates a generic data entity.
func NewDataEntity(c *Crate, identifier string, props Properties) (*DataEntity, error) {
	if identifier == "" {
		return nil, newErrorf("NewDataEntity", KindValidation, ErrInvalidPath, "identifier is required")
	}
	e := &DataEntity{newEntity(c, identifier, nil)}
	if err := e.applyProperties(props); err != nil {
		return nil, err
	}
	return e, nil
}

// Write is a no-op: a generic data entity has no byte-stream capability.
func (e *DataEntity) Write(ctx context.Context, base string) error { return nil }

// Stream yields nothing: a generic data entity has no byte-stream
// capability.
func (e *DataEntity) Stream(ctx context.Context, chunkSize int) iter.Seq2[FilePart, error] {
	return func(yield func(FilePart, error) bool) {}
}

// FileOrDir holds the shared state of file and directory entities: the
// source the bytes come from (a local path or a URL) and the remote
// handling flags.
type FileOrDir struct {
	DataEntity
	source      string
	fetchRemote bool
	validateURL bool
	recordSize  bool
}

// Source returns the local path or URL the entity's bytes come from, or
// the empty string if the entity was declared without a source.
func (f *FileOrDir) Source() string { return f.source }

// resolveDestID derives an entity identifier from a source and an optional
// destination path, mirroring the crate layout rules: an explicit
// destination must be relative; without one, the identifier defaults to
// the source's base name, or to the source URL itself when remote content
// is referenced rather than fetched.
func resolveDestID(op, source, dest string, fetchRemote, dirLike bool) (string, error) {
	var identifier string
	switch {
	case dest != "":
		if filepath.IsAbs(dest) || strings.HasPrefix(dest, "/") {
			return "", newErrorf(op, KindValidation, ErrInvalidPath, "dest path must be relative: %s", dest)
		}
		identifier = path.Clean(filepath.ToSlash(dest))
	case source == "":
		return "", newErrorf(op, KindValidation, ErrInvalidPath, "dest path must be provided if source is not given")
	case id.IsURL(source):
		if fetchRemote {
			identifier = path.Base(source)
		} else {
			identifier = source
		}
	default:
		identifier = path.Base(strings.TrimRight(filepath.ToSlash(source), "/"))
	}
	if dirLike {
		identifier = strings.TrimRight(identifier, "/") + "/"
	}
	return identifier, nil
}

func initFileOrDir(f *FileOrDir, e *Entity, source string, cfg fileOptions) error {
	f.DataEntity = DataEntity{e}
	f.source = source
	f.fetchRemote = cfg.fetchRemote
	f.validateURL = cfg.validateURL
	f.recordSize = cfg.recordSize
	return f.applyProperties(cfg.properties)
}

// File is a single-blob data entity.
type File struct {
	FileOrDir
}

// NewFile creates a File entity. source may be a local path or a URL; dest,
// when given, must be a crate-relative path and becomes the identifier.
func NewFile(c *Crate, source, dest string, opts ...FileOption) (*File, error) {
	const op = "NewFile"
	cfg := newFileOptions(opts)
	identifier, err := resolveDestID(op, source, dest, cfg.fetchRemote, false)
	if err != nil {
		return nil, err
	}
	f := &File{}
	e := newEntity(c, identifier, []keyValue{{"@type", "File"}})
	if err := initFileOrDir(&f.FileOrDir, e, source, cfg); err != nil {
		return nil, err
	}
	return f, nil
}

// Write materializes the file under base. Local sources are copied
// byte-for-byte; a missing local source fails with ErrNotFound. URL
// sources are downloaded when the entity was created with fetch-remote;
// with validate-url the response headers are recorded and the body is
// discarded.
func (f *File) Write(ctx context.Context, base string) error {
	const op = "File.Write"
	out := filepath.Join(base, filepath.FromSlash(f.id))

	if f.source != "" && id.IsURL(f.source) {
		if !f.fetchRemote && !f.validateURL {
			return nil
		}
		resp, err := f.crate.httpGet(ctx, f.source)
		if err != nil {
			return newError(op, KindNetwork, err)
		}
		defer resp.Body.Close()
		f.recordRemoteMetadata(resp.Header.Get("Content-Length"), resp.Header.Get("Content-Type"), resp.Header.Get("Last-Modified"))
		if !f.fetchRemote {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return newError(op, KindIO, err)
		}
		dst, err := os.Create(out)
		if err != nil {
			return newError(op, KindIO, err)
		}
		if _, err := io.Copy(dst, resp.Body); err != nil {
			dst.Close()
			return newError(op, KindNetwork, err)
		}
		return dst.Close()
	}

	if f.source == "" {
		f.crate.logger().Warn("no source for file entity", "id", f.id)
		return nil
	}
	if _, err := os.Stat(f.source); err != nil {
		return newErrorf(op, KindNotFound, ErrNotFound, "%s", f.source)
	}
	if err := copyFile(f.source, out); err != nil {
		return newError(op, KindIO, err)
	}
	if f.recordSize {
		if info, err := os.Stat(out); err == nil {
			f.setRaw("contentSize", strconv.FormatInt(info.Size(), 10))
		}
	}
	return nil
}

// Stream produces the file's bytes as (identifier, chunk) pairs. The sum
// of chunk lengths equals the file size and their concatenation equals the
// file content. URL sources yield nothing unless the entity was created
// with fetch-remote; with validate-url the response headers are recorded
// and the body is discarded.
func (f *File) Stream(ctx context.Context, chunkSize int) iter.Seq2[FilePart, error] {
	return func(yield func(FilePart, error) bool) {
		if f.source != "" && id.IsURL(f.source) {
			f.streamFromURL(ctx, chunkSize, yield)
			return
		}
		if f.source == "" {
			f.crate.logger().Warn("no source for file entity", "id", f.id)
			return
		}
		src, err := os.Open(f.source)
		if err != nil {
			yield(FilePart{}, newErrorf("File.Stream", KindNotFound, ErrNotFound, "%s", f.source))
			return
		}
		defer src.Close()
		size, ok := copyChunks(ctx, src, f.id, chunkSize, yield)
		if ok && f.recordSize {
			f.setRaw("contentSize", strconv.FormatInt(size, 10))
		}
	}
}

func (f *File) streamFromURL(ctx context.Context, chunkSize int, yield func(FilePart, error) bool) {
	if !f.fetchRemote && !f.validateURL {
		return
	}
	resp, err := f.crate.httpGet(ctx, f.source)
	if err != nil {
		yield(FilePart{}, newError("File.Stream", KindNetwork, err))
		return
	}
	defer resp.Body.Close()
	f.recordRemoteMetadata(resp.Header.Get("Content-Length"), resp.Header.Get("Content-Type"), resp.Header.Get("Last-Modified"))
	if !f.fetchRemote {
		return
	}
	size, ok := copyChunks(ctx, resp.Body, f.id, chunkSize, yield)
	if ok && f.recordSize {
		f.setRaw("contentSize", strconv.FormatInt(size, 10))
	}
}

// recordRemoteMetadata stamps validation metadata from response headers.
func (f *File) recordRemoteMetadata(contentLength, contentType, lastModified string) {
	if !f.validateURL {
		return
	}
	if contentLength != "" {
		f.setRaw("contentSize", contentLength)
	}
	if contentType != "" {
		f.setRaw("encodingFormat", contentType)
	}
	if !f.fetchRemote {
		if lastModified == "" {
			lastModified = isoNow()
		}
		f.setRaw("sdDatePublished", lastModified)
	}
}

// copyChunks reads src to exhaustion in chunkSize blocks, yielding each as
// a FilePart under outPath. It reports the byte count and whether the
// sequence ran to completion.
func copyChunks(ctx context.Context, src io.Reader, outPath string, chunkSize int, yield func(FilePart, error) bool) (int64, bool) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			yield(FilePart{}, err)
			return total, false
		}
		n, err := src.Read(buf)
		if n > 0 {
			total += int64(n)
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !yield(FilePart{Path: outPath, Data: chunk}, nil) {
				return total, false
			}
		}
		if err == io.EOF {
			return total, true
		}
		if err != nil {
			yield(FilePart{}, err)
			return total, false
		}
	}
}

// Dataset is a directory-like data entity. Its identifier always ends
// with a single trailing slash, so "data" and "data/" converge.
type Dataset struct {
	FileOrDir
}

// NewDataset creates a Dataset (directory) entity.
func NewDataset(c *Crate, source, dest string, opts ...FileOption) (*Dataset, error) {
	const op = "NewDataset"
	cfg := newFileOptions(opts)
	identifier, err := resolveDestID(op, source, dest, cfg.fetchRemote, true)
	if err != nil {
		return nil, err
	}
	d := &Dataset{}
	e := newEntity(c, identifier, []keyValue{{"@type", "Dataset"}})
	if err := initFileOrDir(&d.FileOrDir, e, source, cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// Write materializes the directory under base. A local source directory
// must exist (ErrNotFound otherwise); its unlisted files are copied only
// when the crate itself has no source tree, since otherwise the crate-level
// walk covers them. A URL source is either validated (sdDatePublished
// stamped) or, with fetch-remote, has every hasPart entry streamed from
// the base URL.
func (d *Dataset) Write(ctx context.Context, base string) error {
	if d.source != "" && id.IsURL(d.source) {
		return d.writeFromURL(ctx, base)
	}
	return d.copyFolder(ctx, base)
}

func (d *Dataset) copyFolder(ctx context.Context, base string) error {
	const op = "Dataset.Write"
	out := filepath.Join(base, filepath.FromSlash(d.id))
	if d.source == "" {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return newError(op, KindIO, err)
		}
		return nil
	}
	if _, err := os.Stat(d.source); err != nil {
		return newErrorf(op, KindNotFound, ErrNotFound, "%s", d.source)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return newError(op, KindIO, err)
	}
	if d.crate.source == "" {
		return d.crate.copyUnlisted(ctx, d.source, out)
	}
	return nil
}

func (d *Dataset) writeFromURL(ctx context.Context, base string) error {
	const op = "Dataset.Write"
	if d.validateURL && !d.fetchRemote {
		resp, err := d.crate.httpGet(ctx, d.source)
		if err != nil {
			return newError(op, KindNetwork, err)
		}
		resp.Body.Close()
		d.setRaw("sdDatePublished", isoNow())
	}
	if !d.fetchRemote {
		return nil
	}
	var (
		outPath string
		outFile *os.File
	)
	for part, err := range d.streamFromURL(ctx, DefaultChunkSize) {
		if err != nil {
			if outFile != nil {
				outFile.Close()
			}
			return err
		}
		target := filepath.Join(base, filepath.FromSlash(part.Path))
		if target != outPath {
			if outFile != nil {
				if err := outFile.Close(); err != nil {
					return newError(op, KindIO, err)
				}
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return newError(op, KindIO, err)
			}
			f, err := os.Create(target)
			if err != nil {
				return newError(op, KindIO, err)
			}
			outPath, outFile = target, f
		}
		if _, err := outFile.Write(part.Data); err != nil {
			outFile.Close()
			return newError(op, KindIO, err)
		}
	}
	if outFile != nil {
		return outFile.Close()
	}
	return nil
}

// Stream produces the directory's content file by file, chunks of one
// file emitted contiguously before the next file begins.
func (d *Dataset) Stream(ctx context.Context, chunkSize int) iter.Seq2[FilePart, error] {
	if d.source == "" {
		return func(yield func(FilePart, error) bool) {}
	}
	if id.IsURL(d.source) {
		return d.streamFromURL(ctx, chunkSize)
	}
	return d.streamFromPath(ctx, chunkSize)
}

func (d *Dataset) streamFromPath(ctx context.Context, chunkSize int) iter.Seq2[FilePart, error] {
	const op = "Dataset.Stream"
	return func(yield func(FilePart, error) bool) {
		if _, err := os.Stat(d.source); err != nil {
			yield(FilePart{}, newErrorf(op, KindNotFound, ErrNotFound, "%s", d.source))
			return
		}
		// When the crate was loaded from a source tree, the crate-level
		// walk streams these files; streaming them here would duplicate
		// archive members.
		if d.crate.source != "" {
			return
		}
		stop := false
		err := walkTree(d.source, nil, func(p string, de os.DirEntry) error {
			if stop || de.IsDir() {
				return nil
			}
			rel, err := relSlash(d.source, p)
			if err != nil {
				return err
			}
			src, err := os.Open(p)
			if err != nil {
				return err
			}
			defer src.Close()
			if _, ok := copyChunks(ctx, src, path.Join(d.id, rel), chunkSize, yield); !ok {
				stop = true
			}
			return nil
		})
		if err != nil && !stop {
			yield(FilePart{}, newError(op, KindIO, err))
		}
	}
}

// streamFromURL streams every hasPart entry of a remote dataset from the
// base URL joined with the entry's relative id. Entries missing "@id" are
// skipped with a warning; ids that are absolute URLs or absolute paths
// fail with ErrInvalidReference. Without fetch-remote, the sequence only
// performs URL validation when requested and yields nothing.
func (d *Dataset) streamFromURL(ctx context.Context, chunkSize int) iter.Seq2[FilePart, error] {
	const op = "Dataset.Stream"
	return func(yield func(FilePart, error) bool) {
		if !d.fetchRemote {
			if d.validateURL {
				resp, err := d.crate.httpGet(ctx, d.source)
				if err != nil {
					yield(FilePart{}, newError(op, KindNetwork, err))
					return
				}
				resp.Body.Close()
				d.setRaw("sdDatePublished", isoNow())
			}
			return
		}
		base := strings.TrimRight(d.source, "/")
		for _, entry := range asList(d.GetRaw("hasPart")) {
			part, ok := refTarget(entry)
			if !ok {
				d.crate.logger().Warn("hasPart entry is missing @id, skipping", "id", d.id)
				continue
			}
			if id.IsURL(part) || strings.HasPrefix(part, "/") {
				yield(FilePart{}, newErrorf(op, KindValidation, ErrInvalidReference,
					"%s: part %q is not a relative path", d.source, part))
				return
			}
			resp, err := d.crate.httpGet(ctx, base+"/"+part)
			if err != nil {
				yield(FilePart{}, newError(op, KindNetwork, err))
				return
			}
			_, ok = copyChunks(ctx, resp.Body, path.Join(d.id, part), chunkSize, yield)
			resp.Body.Close()
			if !ok {
				return
			}
		}
	}
}

// RootDataset is the single data entity representing the crate's top-level
// directory. Its identifier defaults to "./" and it stamps a
// datePublished timestamp at creation.
type RootDataset struct {
	Dataset
}

// NewRootDataset creates the root dataset. With no source and no dest the
// identifier defaults to "./".
func NewRootDataset(c *Crate, source, dest string, props Properties) (*RootDataset, error) {
	const op = "NewRootDataset"
	if source == "" && dest == "" {
		dest = "./"
	}
	identifier, err := resolveDestID(op, source, dest, false, true)
	if err != nil {
		return nil, err
	}
	if identifier == "." || identifier == "./" {
		identifier = "./"
	}
	r := &RootDataset{}
	e := newEntity(c, identifier, []keyValue{
		{"@type", "Dataset"},
		{"datePublished", isoNow()},
	})
	if err := initFileOrDir(&r.FileOrDir, e, source, fileOptions{properties: props}); err != nil {
		return nil, err
	}
	return r, nil
}
