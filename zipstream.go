package rocrate

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"

	"go.opentelemetry.io/otel/attribute"
)

// memoryBuffer is the staging area between the zip writer and the chunk
// consumer: the archive writes into it and fixed-size chunks are drained
// out as they accumulate, so the whole crate is never held in memory.
type memoryBuffer struct {
	buf bytes.Buffer
}

func (b *memoryBuffer) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

func (b *memoryBuffer) Len() int { return b.buf.Len() }

// next removes and returns up to n buffered bytes. The returned slice is
// an independent copy, valid across later writes.
func (b *memoryBuffer) next(n int) []byte {
	if n > b.buf.Len() {
		n = b.buf.Len()
	}
	chunk := make([]byte, n)
	copy(chunk, b.buf.Next(n))
	return chunk
}

// errStreamStopped signals that the consumer stopped pulling chunks.
var errStreamStopped = errors.New("stream stopped")

// WriteZip materializes the crate as a deflate-compressed zip archive at
// outPath. If outPath lies inside the crate's source tree it is excluded
// from the archive.
func (c *Crate) WriteZip(ctx context.Context, outPath string) error {
	const op = "Crate.WriteZip"
	f, err := os.Create(outPath)
	if err != nil {
		return newError(op, KindIO, err)
	}
	for chunk, err := range c.streamZip(ctx, DefaultChunkSize, outPath) {
		if err != nil {
			f.Close()
			return err
		}
		if _, err := f.Write(chunk); err != nil {
			f.Close()
			return newError(op, KindIO, err)
		}
	}
	return f.Close()
}

// StreamZip produces the crate as a zip archive byte stream: each data
// and default entity is streamed into one archive member per distinct
// path, then unlisted files from the source tree are appended. Chunks
// are yielded as the internal buffer fills, so memory use stays bounded
// by the chunk size plus the zip writer's own state.
func (c *Crate) StreamZip(ctx context.Context, chunkSize int) iter.Seq2[[]byte, error] {
	return c.streamZip(ctx, chunkSize, "")
}

func (c *Crate) streamZip(ctx context.Context, chunkSize int, outPath string) iter.Seq2[[]byte, error] {
	const op = "Crate.StreamZip"
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return func(yield func([]byte, error) bool) {
		ctx, span := c.tel.start(ctx, "rocrate.stream_zip", attribute.String("rocrate.source", c.source))
		defer span.End()

		buffer := &memoryBuffer{}
		archive := zip.NewWriter(buffer)
		added := make(map[string]bool)

		drain := func() bool {
			for buffer.Len() >= chunkSize {
				chunk := buffer.next(chunkSize)
				c.tel.addBytes(ctx, int64(len(chunk)))
				if !yield(chunk, nil) {
					return false
				}
			}
			return true
		}

		for _, w := range c.writables() {
			var member io.Writer
			current := ""
			for part, err := range w.Stream(ctx, chunkSize) {
				if err != nil {
					yield(nil, err)
					return
				}
				if member == nil || part.Path != current {
					m, err := archive.Create(part.Path)
					if err != nil {
						yield(nil, newError(op, KindIO, err))
						return
					}
					member, current = m, part.Path
					added[part.Path] = true
				}
				if _, err := member.Write(part.Data); err != nil {
					yield(nil, newError(op, KindIO, err))
					return
				}
				if !drain() {
					return
				}
			}
		}

		if c.source != "" {
			err := walkTree(c.source, c.exclude, func(p string, d os.DirEntry) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				// Never include the output archive in itself.
				if outPath != "" && sameFile(outPath, p) {
					return nil
				}
				rel, err := relSlash(c.source, p)
				if err != nil {
					return err
				}
				if added[rel] || c.Dereference(rel) != nil {
					return nil
				}
				member, err := archive.Create(rel)
				if err != nil {
					return err
				}
				src, err := os.Open(p)
				if err != nil {
					return err
				}
				defer src.Close()
				buf := make([]byte, chunkSize)
				for {
					n, err := src.Read(buf)
					if n > 0 {
						if _, err := member.Write(buf[:n]); err != nil {
							return err
						}
						if !drain() {
							return errStreamStopped
						}
					}
					if err == io.EOF {
						return nil
					}
					if err != nil {
						return err
					}
				}
			})
			if errors.Is(err, errStreamStopped) {
				return
			}
			if err != nil {
				yield(nil, newError(op, KindIO, err))
				return
			}
		}

		if err := archive.Close(); err != nil {
			yield(nil, newError(op, KindIO, err))
			return
		}
		for buffer.Len() > 0 {
			chunk := buffer.next(chunkSize)
			c.tel.addBytes(ctx, int64(len(chunk)))
			if !yield(chunk, nil) {
				return
			}
		}
	}
}
