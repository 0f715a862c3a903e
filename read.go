package rocrate

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rocrateio/rocrate-go/id"
)

// graphDoc is the decoded form of a metadata descriptor file.
type graphDoc struct {
	Context json.RawMessage                       `json:"@context"`
	Graph   []*orderedmap.OrderedMap[string, any] `json:"@graph"`
}

// Open loads a crate from a directory or a zip archive. Zip sources are
// extracted to a temporary directory that lives until Close is called.
func Open(source string, opts ...Option) (*Crate, error) {
	const op = "Open"
	c := newCrate(newConfig(opts))
	if c.genPreview {
		p, err := NewPreview(c, "", nil)
		if err != nil {
			return nil, err
		}
		c.Add(p)
	}
	info, err := os.Stat(source)
	if err != nil {
		return nil, newErrorf(op, KindNotFound, ErrNotFound, "%s", source)
	}
	root := source
	if !info.IsDir() {
		extracted, err := extractZip(source)
		if err != nil {
			return nil, err
		}
		c.tempDir = extracted
		root = extracted
	}
	data, err := os.ReadFile(filepath.Join(root, MetadataBasename))
	if errors.Is(err, fs.ErrNotExist) {
		data, err = os.ReadFile(filepath.Join(root, LegacyMetadataBasename))
	}
	if err != nil {
		c.Close()
		return nil, newErrorf(op, KindStructure, ErrInvalidCrate, "missing %s", MetadataBasename)
	}
	if err := c.load(data, root); err != nil {
		c.Close()
		return nil, err
	}
	c.source = root
	return c, nil
}

// OpenGraph loads a crate from the raw content of a metadata descriptor,
// without any backing filesystem tree. Data entities of such a crate
// carry no local sources.
func OpenGraph(data []byte, opts ...Option) (*Crate, error) {
	c := newCrate(newConfig(opts))
	if c.genPreview {
		p, err := NewPreview(c, "", nil)
		if err != nil {
			return nil, err
		}
		c.Add(p)
	}
	if err := c.load(data, ""); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromTree builds a crate from an existing directory, adding every
// file and subdirectory under it as a data entity.
func NewFromTree(source string, opts ...Option) (*Crate, error) {
	const op = "NewFromTree"
	c := newCrate(newConfig(opts))
	info, err := os.Stat(source)
	if err != nil || !info.IsDir() {
		return nil, newErrorf(op, KindValidation, ErrInvalidPath, "%s: not a directory", source)
	}
	if c.genPreview {
		p, err := NewPreview(c, "", nil)
		if err != nil {
			return nil, err
		}
		c.Add(p)
	}
	root, err := NewRootDataset(c, "", "", nil)
	if err != nil {
		return nil, err
	}
	c.Add(root, newMetadata(c, false))

	err = walkTree(source, c.exclude, func(p string, d os.DirEntry) error {
		rel, err := relSlash(source, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			_, err := c.AddDataset(p, rel)
			return err
		}
		switch rel {
		case MetadataBasename, LegacyMetadataBasename:
			return nil
		case PreviewBasename:
			if !c.genPreview {
				preview, err := NewPreview(c, p, nil)
				if err != nil {
					return err
				}
				c.Add(preview)
			}
			return nil
		}
		_, err = c.AddFile(p, rel)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.source = source
	return c, nil
}

// extractZip unpacks a zip archive into a fresh temporary directory,
// rejecting member names that would escape it.
func extractZip(source string) (string, error) {
	const op = "Open"
	r, err := zip.OpenReader(source)
	if err != nil {
		return "", newErrorf(op, KindStructure, ErrInvalidCrate, "%s: not a directory or zip archive", source)
	}
	defer r.Close()
	dir, err := os.MkdirTemp("", "rocrate-")
	if err != nil {
		return "", newError(op, KindIO, err)
	}
	for _, member := range r.File {
		dest := filepath.Join(dir, filepath.FromSlash(member.Name))
		if !strings.HasPrefix(dest, dir+string(os.PathSeparator)) {
			os.RemoveAll(dir)
			return "", newErrorf(op, KindValidation, ErrInvalidPath, "zip member escapes extraction dir: %s", member.Name)
		}
		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				os.RemoveAll(dir)
				return "", newError(op, KindIO, err)
			}
			continue
		}
		if err := extractZipMember(member, dest); err != nil {
			os.RemoveAll(dir)
			return "", newError(op, KindIO, err)
		}
	}
	return dir, nil
}

func extractZipMember(member *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// load decodes a metadata descriptor and populates the crate's graph:
// root and metadata first, then data entities by walking hasPart, then
// everything left as contextual entities.
func (c *Crate) load(data []byte, root string) error {
	const op = "Open"
	var doc graphDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return newErrorf(op, KindStructure, ErrInvalidCrate, "invalid metadata: %v", err)
	}
	if len(doc.Context) == 0 || doc.Graph == nil {
		return newErrorf(op, KindStructure, ErrInvalidCrate, "missing @context or @graph")
	}
	pool := make(map[string]*orderedmap.OrderedMap[string, any], len(doc.Graph))
	order := make([]string, 0, len(doc.Graph))
	for _, member := range doc.Graph {
		raw, ok := member.Get("@id")
		identifier, isString := raw.(string)
		if !ok || !isString {
			return newErrorf(op, KindStructure, ErrInvalidCrate, "graph member without @id")
		}
		if _, dup := pool[identifier]; !dup {
			order = append(order, identifier)
		}
		pool[identifier] = member
	}
	if err := c.readDataEntities(pool, order, root); err != nil {
		return err
	}
	return c.readContextualEntities(pool, order)
}

func (c *Crate) readDataEntities(pool map[string]*orderedmap.OrderedMap[string, any], order []string, root string) error {
	const op = "Open"
	metadataID, rootID, err := findRootEntityID(pool, order)
	if err != nil {
		return err
	}

	rootProps := pool[rootID]
	delete(pool, rootID)
	rootProps.Delete("@id")
	rawParts, _ := rootProps.Delete("hasPart")
	rootSource, rootDest := "", rootID
	if id.IsURL(rootID) {
		rootSource, rootDest = rootID, ""
	}
	rootEntity, err := NewRootDataset(c, rootSource, rootDest, nil)
	if err != nil {
		return err
	}
	if err := rootEntity.applyOrderedProperties(rootProps); err != nil {
		return err
	}
	c.Add(rootEntity)

	mdProps := pool[metadataID]
	delete(pool, metadataID)
	mdProps.Delete("@id")
	legacy := metadataID == LegacyMetadataBasename
	for _, v := range normValues(normalizeJSONValue(rawGet(mdProps, "conformsTo"))) {
		if strings.TrimRight(v, "/") == LegacyProfile {
			legacy = true
		}
	}
	md := newMetadata(c, legacy)
	if err := md.applyOrderedProperties(mdProps); err != nil {
		return err
	}
	c.Add(md)

	if previewProps, ok := pool[PreviewBasename]; ok {
		delete(pool, PreviewBasename)
		if !c.genPreview {
			previewProps.Delete("@id")
			previewSource := ""
			if root != "" {
				previewSource = filepath.Join(root, PreviewBasename)
			}
			preview, err := NewPreview(c, previewSource, nil)
			if err != nil {
				return err
			}
			if err := preview.applyOrderedProperties(previewProps); err != nil {
				return err
			}
			c.Add(preview)
		}
	}

	return c.addParts(asList(normalizeJSONValue(rawParts)), pool, root)
}

// addParts walks a hasPart reference list depth-first, popping each
// referenced entity from the pending pool and constructing it through the
// data type registry. References to ids absent from the pool are silently
// skipped, tolerating inconsistent crates.
func (c *Crate) addParts(parts []any, pool map[string]*orderedmap.OrderedMap[string, any], root string) error {
	const op = "Open"
	dataReg, _ := registries()
	for _, entry := range parts {
		identifier, ok := refTarget(entry)
		if !ok {
			continue
		}
		member, pending := pool[identifier]
		if !pending {
			continue
		}
		delete(pool, identifier)
		member.Delete("@id")
		types, err := declaredTypes(op, identifier, member)
		if err != nil {
			return err
		}
		var node Node
		factory, matched := dataReg.pick(types)
		switch {
		case !matched:
			generic, err := NewDataEntity(c, identifier, nil)
			if err != nil {
				return err
			}
			node = generic
		case id.IsURL(identifier):
			w, err := factory(c, identifier, "")
			if err != nil {
				return err
			}
			node = w
		default:
			w, err := factory(c, filepath.Join(root, filepath.FromSlash(identifier)), identifier)
			if err != nil {
				return err
			}
			node = w
		}
		if err := node.base().applyOrderedProperties(member); err != nil {
			return err
		}
		c.Add(node)
		nested := asList(normalizeJSONValue(rawGet(member, "hasPart")))
		if err := c.addParts(nested, pool, root); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crate) readContextualEntities(pool map[string]*orderedmap.OrderedMap[string, any], order []string) error {
	const op = "Open"
	_, ctxReg := registries()
	for _, identifier := range order {
		member, pending := pool[identifier]
		if !pending {
			continue
		}
		delete(pool, identifier)
		member.Delete("@id")
		types, err := declaredTypes(op, identifier, member)
		if err != nil {
			return err
		}
		for _, t := range types {
			if t == "File" || t == "Dataset" {
				c.log.Warn("entity looks like a data entity but is not listed in the root dataset's hasPart",
					"id", identifier)
				break
			}
		}
		var node Node
		if factory, matched := ctxReg.pick(types); matched {
			node, err = factory(c, identifier, nil)
		} else {
			node, err = NewContextEntity(c, identifier, nil)
		}
		if err != nil {
			return err
		}
		if err := node.base().applyOrderedProperties(member); err != nil {
			return err
		}
		c.Add(node)
	}
	return nil
}

// declaredTypes extracts an entity's "@type" names; an entity with none
// is a structural error.
func declaredTypes(op, identifier string, member *orderedmap.OrderedMap[string, any]) ([]string, error) {
	raw, ok := member.Get("@type")
	if !ok {
		return nil, newErrorf(op, KindStructure, ErrInvalidCrate, "entity %s has no @type", identifier)
	}
	return stringList(asList(normalizeJSONValue(raw))), nil
}

// findRootEntityID locates the metadata descriptor and the root dataset
// in the decoded graph: first by the descriptor's well-known basenames,
// then by scanning for a single entity that conforms to a crate profile
// and points (via about) at an entity present in the graph.
func findRootEntityID(pool map[string]*orderedmap.OrderedMap[string, any], order []string) (string, string, error) {
	const op = "Open"
	for _, basename := range []string{MetadataBasename, LegacyMetadataBasename} {
		member, ok := pool[basename]
		if !ok {
			continue
		}
		about := normValues(normalizeJSONValue(rawGet(member, "about")))
		if len(about) == 0 {
			return "", "", newErrorf(op, KindStructure, ErrInvalidCrate,
				"metadata descriptor %s does not reference the root entity", basename)
		}
		if _, present := pool[about[0]]; !present {
			return "", "", newErrorf(op, KindStructure, ErrInvalidCrate,
				"root entity %s referenced by %s is not in the graph", about[0], basename)
		}
		return basename, about[0], nil
	}
	type candidate struct{ descriptor, root string }
	var candidates []candidate
	for _, identifier := range order {
		member := pool[identifier]
		descriptor := false
		for _, v := range normValues(normalizeJSONValue(rawGet(member, "conformsTo"))) {
			if strings.HasPrefix(v, "https://w3id.org/ro/crate/") {
				descriptor = true
				break
			}
		}
		if !descriptor {
			continue
		}
		about := normValues(normalizeJSONValue(rawGet(member, "about")))
		if len(about) != 1 {
			continue
		}
		if _, present := pool[about[0]]; present {
			candidates = append(candidates, candidate{identifier, about[0]})
		}
	}
	switch len(candidates) {
	case 1:
		return candidates[0].descriptor, candidates[0].root, nil
	case 0:
		return "", "", newErrorf(op, KindStructure, ErrInvalidCrate, "cannot find the metadata descriptor")
	default:
		return "", "", newErrorf(op, KindStructure, ErrInvalidCrate, "multiple metadata descriptor candidates")
	}
}

func rawGet(m *orderedmap.OrderedMap[string, any], key string) any {
	v, _ := m.Get(key)
	return v
}
