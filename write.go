package rocrate

import (
	"context"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
)

// Write materializes the crate under base: the destination root is
// created, unlisted files from the original source tree are copied
// byte-for-byte, and every data and default entity writes its content.
func (c *Crate) Write(ctx context.Context, base string) error {
	const op = "Crate.Write"
	ctx, span := c.tel.start(ctx, "rocrate.write", attribute.String("rocrate.dest", base))
	defer span.End()

	if err := os.MkdirAll(base, 0o755); err != nil {
		return newError(op, KindIO, err)
	}
	if c.source != "" {
		if err := c.copyUnlisted(ctx, c.source, base); err != nil {
			return newError(op, KindIO, err)
		}
	}
	for _, w := range c.writables() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(ctx, base); err != nil {
			return err
		}
		c.tel.addEntities(ctx, 1)
	}
	return nil
}

// copyUnlisted copies every real file under top that no registered entity
// claims, preserving the directory layout. Files whose destination
// already refers to the same file are skipped.
func (c *Crate) copyUnlisted(ctx context.Context, top, base string) error {
	return walkTree(top, c.exclude, func(p string, d os.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := relSlash(top, p)
		if err != nil {
			return err
		}
		dest := filepath.Join(base, filepath.FromSlash(rel))
		if d.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}
		if c.Dereference(rel) != nil {
			return nil
		}
		return copyFile(p, dest)
	})
}
