package rocrate

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"iter"
	"os"
	"path/filepath"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	// MetadataBasename is the well-known name of the metadata descriptor
	// file at the top level of a crate.
	MetadataBasename = "ro-crate-metadata.json"

	// LegacyMetadataBasename is the descriptor name used by the 1.0
	// specification.
	LegacyMetadataBasename = "ro-crate-metadata.jsonld"

	// PreviewBasename is the well-known name of the optional HTML preview.
	PreviewBasename = "ro-crate-preview.html"

	// Profile is the specification version this library writes.
	Profile = "https://w3id.org/ro/crate/1.1"

	// LegacyProfile is the 1.0 specification version, recognized on read.
	LegacyProfile = "https://w3id.org/ro/crate/1.0"

	// WorkflowProfile is the workflow crate profile declared by crates
	// whose main entity is a computational workflow.
	WorkflowProfile = "https://w3id.org/workflowhub/workflow-ro-crate/1.0"
)

// document is the serialized form of a crate's metadata: a JSON-LD
// context plus a flat entity graph. Graph carries ordered property maps
// so keys serialize in insertion order.
type document struct {
	Context any                                   `json:"@context"`
	Graph   []*orderedmap.OrderedMap[string, any] `json:"@graph"`
}

// Metadata is the crate's self-describing entity: it names the metadata
// descriptor file and, when written, serializes the whole entity graph as
// flattened JSON-LD.
type Metadata struct {
	*Entity
	extraTerms map[string]string
	legacy     bool
}

func newMetadata(c *Crate, legacy bool) *Metadata {
	basename, profile := MetadataBasename, Profile
	if legacy {
		basename, profile = LegacyMetadataBasename, LegacyProfile
	}
	e := newEntity(c, basename, []keyValue{
		{"@type", "CreativeWork"},
		{"conformsTo", map[string]any{"@id": profile}},
		{"about", map[string]any{"@id": "./"}},
	})
	return &Metadata{Entity: e, legacy: legacy}
}

// Profile returns the specification version this descriptor declares.
func (m *Metadata) Profile() string {
	if m.legacy {
		return LegacyProfile
	}
	return Profile
}

// ExtraTerms returns the extra context terms serialized alongside the
// profile context, such as the test vocabulary terms.
func (m *Metadata) ExtraTerms() map[string]string { return m.extraTerms }

func (m *Metadata) addExtraTerms(terms map[string]string) {
	if len(terms) == 0 {
		return
	}
	if m.extraTerms == nil {
		m.extraTerms = make(map[string]string, len(terms))
	}
	for k, v := range terms {
		m.extraTerms[k] = v
	}
}

// Generate flattens the crate's entity graph into its serialized form.
// The preview entity is excluded: it describes a derived artifact, not
// part of the metadata graph.
func (m *Metadata) generate() *document {
	var context any = m.Profile() + "/context"
	if len(m.extraTerms) > 0 {
		context = []any{context, m.extraTerms}
	}
	doc := &document{Context: context}
	for _, n := range m.crate.nodes() {
		if _, isPreview := n.(*Preview); isPreview {
			continue
		}
		doc.Graph = append(doc.Graph, n.base().orderedProps())
	}
	return doc
}

// MarshalJSONLD serializes the crate's metadata document with the
// indentation conventionally used for crate descriptors.
func (m *Metadata) MarshalJSONLD() ([]byte, error) {
	data, err := json.MarshalIndent(m.generate(), "", "    ")
	if err != nil {
		return nil, newError("Metadata.MarshalJSONLD", KindStructure, err)
	}
	return data, nil
}

// Write serializes the metadata descriptor under base.
func (m *Metadata) Write(ctx context.Context, base string) error {
	data, err := m.MarshalJSONLD()
	if err != nil {
		return err
	}
	out := filepath.Join(base, filepath.FromSlash(m.id))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return newError("Metadata.Write", KindIO, err)
	}
	return nil
}

// Stream produces the serialized descriptor in chunks.
func (m *Metadata) Stream(ctx context.Context, chunkSize int) iter.Seq2[FilePart, error] {
	return func(yield func(FilePart, error) bool) {
		data, err := m.MarshalJSONLD()
		if err != nil {
			yield(FilePart{}, err)
			return
		}
		copyChunks(ctx, bytes.NewReader(data), m.id, chunkSize, yield)
	}
}

// Preview is the optional HTML preview entity. With a source it behaves
// like a file copy; without one, a minimal preview page is generated from
// the root dataset's descriptive properties.
type Preview struct {
	*Entity
	source string
}

// NewPreview creates the preview entity. source, if non-empty, is an
// existing HTML file to use instead of the generated page.
func NewPreview(c *Crate, source string, props Properties) (*Preview, error) {
	e := newEntity(c, PreviewBasename, []keyValue{
		{"@type", "CreativeWork"},
		{"about", map[string]any{"@id": "./"}},
	})
	p := &Preview{Entity: e, source: source}
	if err := p.applyProperties(props); err != nil {
		return nil, err
	}
	return p, nil
}

// Source returns the path of the user-supplied preview file, if any.
func (p *Preview) Source() string { return p.source }

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<title>{{.Name}}</title>
</head>
<body>
<h1>{{.Name}}</h1>
{{with .Description}}<p>{{.}}</p>{{end}}
<h2>Contents</h2>
<ul>
{{range .Parts}}<li><a href="{{.}}">{{.}}</a></li>
{{end}}</ul>
</body>
</html>
`))

func (p *Preview) generateHTML() ([]byte, error) {
	root := p.crate.RootDataset()
	data := struct {
		Name        string
		Description string
		Parts       []string
	}{Name: "RO-Crate"}
	if root != nil {
		if name, ok := root.Get("name").(string); ok && name != "" {
			data.Name = name
		}
		if desc, ok := root.Get("description").(string); ok {
			data.Description = desc
		}
		for _, entry := range asList(root.GetRaw("hasPart")) {
			if ref, ok := refTarget(entry); ok {
				data.Parts = append(data.Parts, ref)
			}
		}
	}
	var buf bytes.Buffer
	if err := previewTemplate.Execute(&buf, data); err != nil {
		return nil, newError("Preview", KindIO, err)
	}
	return buf.Bytes(), nil
}

// Write materializes the preview under base, copying the source file when
// one was supplied and rendering the generated page otherwise.
func (p *Preview) Write(ctx context.Context, base string) error {
	const op = "Preview.Write"
	out := filepath.Join(base, filepath.FromSlash(p.id))
	if p.source != "" {
		if err := copyFile(p.source, out); err != nil {
			return newError(op, KindIO, err)
		}
		return nil
	}
	data, err := p.generateHTML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return newError(op, KindIO, err)
	}
	return nil
}

// Stream produces the preview content in chunks.
func (p *Preview) Stream(ctx context.Context, chunkSize int) iter.Seq2[FilePart, error] {
	return func(yield func(FilePart, error) bool) {
		if p.source != "" {
			src, err := os.Open(p.source)
			if err != nil {
				yield(FilePart{}, newErrorf("Preview.Stream", KindNotFound, ErrNotFound, "%s", p.source))
				return
			}
			defer src.Close()
			copyChunks(ctx, src, p.id, chunkSize, yield)
			return
		}
		data, err := p.generateHTML()
		if err != nil {
			yield(FilePart{}, err)
			return
		}
		copyChunks(ctx, bytes.NewReader(data), p.id, chunkSize, yield)
	}
}
