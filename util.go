package rocrate

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// anyList reports whether v is a list value and returns its elements.
// All slice kinds except []byte count as lists, so callers can pass
// []string, []int or []Node where a JSON-LD list is expected.
func anyList(v any) ([]any, bool) {
	switch vv := v.(type) {
	case nil:
		return nil, false
	case []any:
		return vv, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asList normalizes a scalar-or-list value to a list, mirroring the
// list-in/list-out cardinality rules used throughout the JSON-LD model.
// A nil value yields an empty list.
func asList(v any) []any {
	if v == nil {
		return nil
	}
	if items, ok := anyList(v); ok {
		return items
	}
	return []any{v}
}

// stringList normalizes a scalar-or-list value to its string elements,
// dropping anything that is not a string.
func stringList(v any) []string {
	items := asList(v)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// normValues returns the normalized string values of a property: for each
// element, a {"@id": ...} reference contributes its target id, a string
// contributes itself.
func normValues(v any) []string {
	var out []string
	for _, item := range asList(v) {
		if target, ok := refTarget(item); ok {
			out = append(out, target)
			continue
		}
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// normalizeJSONValue converts values produced by the ordered JSON decoder
// into the forms the property store uses internally: nested ordered maps
// become plain maps (flattened documents only nest {"@id": ...} references,
// which have a single key, so no ordering is lost) and lists are normalized
// element-wise.
func normalizeJSONValue(v any) any {
	switch vv := v.(type) {
	case *orderedmap.OrderedMap[string, any]:
		out := make(map[string]any, vv.Len())
		for pair := vv.Oldest(); pair != nil; pair = pair.Next() {
			out[pair.Key] = normalizeJSONValue(pair.Value)
		}
		return out
	case orderedmap.OrderedMap[string, any]:
		return normalizeJSONValue(&vv)
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = normalizeJSONValue(item)
		}
		return out
	default:
		return v
	}
}

// isoNow returns the current UTC time in second precision, formatted the
// way datePublished and sdDatePublished stamps are recorded.
func isoNow() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

// parseISOTime parses RFC 3339 timestamps, tolerating a missing time zone.
func parseISOTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

// walkTree walks the file tree rooted at top, skipping any file or
// directory whose base name is in exclude, and calls fn with the path of
// every regular file and directory below top (top itself excluded).
func walkTree(top string, exclude []string, fn func(path string, d fs.DirEntry) error) error {
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}
	return filepath.WalkDir(top, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == top {
			return nil
		}
		if _, excluded := skip[d.Name()]; excluded {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return fn(path, d)
	})
}

// copyFile copies src to dst byte-for-byte, creating parent directories as
// needed. It is a no-op if dst already refers to the same file as src.
func copyFile(src, dst string) error {
	if sameFile(src, dst) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// sameFile reports whether two paths refer to the same underlying file.
func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// relSlash returns the slash-separated path of child relative to parent.
func relSlash(parent, child string) (string, error) {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
