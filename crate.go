package rocrate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rocrateio/rocrate-go/id"
)

// Crate is an in-memory research object: an entity graph keyed by
// canonical id, with dedicated slots for the root dataset, the metadata
// descriptor and the optional preview. A Crate instance is not safe for
// concurrent mutation; callers needing concurrency must serialize access.
type Crate struct {
	resolver *id.Resolver
	entities *orderedmap.OrderedMap[string, Node]

	rootDataset *RootDataset
	metadata    *Metadata
	preview     *Preview

	// source is the directory the crate was loaded from ("" for crates
	// built programmatically); tempDir is the extraction directory when
	// the crate was opened from a zip.
	source  string
	tempDir string

	exclude    []string
	genPreview bool
	log        *slog.Logger
	client     *http.Client
	converter  WorkflowConverter
	tel        *telemetry
}

func newCrate(cfg config) *Crate {
	return &Crate{
		resolver:   id.NewResolver(),
		entities:   orderedmap.New[string, Node](),
		exclude:    cfg.exclude,
		genPreview: cfg.genPreview,
		log:        cfg.logger,
		client:     cfg.httpClient,
		converter:  cfg.converter,
		tel:        newTelemetry(cfg.tracerProvider, cfg.meterProvider),
	}
}

// New creates an empty crate with a fresh root dataset and metadata
// descriptor.
func New(opts ...Option) (*Crate, error) {
	c := newCrate(newConfig(opts))
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
	return c, nil
}

// Close releases resources held by the crate. For crates opened from a
// zip this removes the temporary extraction directory.
func (c *Crate) Close() error {
	if c.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(c.tempDir)
	c.tempDir = ""
	if err != nil {
		return newError("Crate.Close", KindIO, err)
	}
	return nil
}

func (c *Crate) logger() *slog.Logger { return c.log }

func (c *Crate) httpGet(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	return resp, nil
}

// Source returns the directory the crate was loaded from, or the empty
// string for a crate built programmatically.
func (c *Crate) Source() string { return c.source }

// RootDataset returns the crate's root data entity.
func (c *Crate) RootDataset() *RootDataset { return c.rootDataset }

// Metadata returns the crate's metadata descriptor entity.
func (c *Crate) Metadata() *Metadata { return c.metadata }

// Preview returns the crate's preview entity, or nil if it has none.
func (c *Crate) Preview() *Preview { return c.preview }

// ResolveID normalizes an entity identifier to its canonical form: the
// per-crate map key. Canonical ids are local to one crate instance.
func (c *Crate) ResolveID(identifier string) string {
	return c.resolver.Canonical(identifier)
}

// Add registers entities in the crate. An entity whose canonical id
// collides with one already registered replaces it. Data entities are
// appended to the root dataset's hasPart on first registration.
func (c *Crate) Add(nodes ...Node) {
	for _, n := range nodes {
		key := n.CanonicalID()
		switch e := n.(type) {
		case *RootDataset:
			c.rootDataset = e
		case *Metadata:
			c.metadata = e
		case *Preview:
			c.preview = e
		default:
			if _, writable := n.(Writable); writable {
				if _, exists := c.entities.Get(key); !exists {
					_ = c.rootDataset.Append("hasPart", n)
				}
			}
		}
		c.entities.Set(key, n)
	}
}

// Delete removes entities from the crate. The root dataset and the
// metadata descriptor cannot be deleted. Deleting a data entity removes
// it from the root dataset's hasPart (dropping the property entirely when
// the list becomes empty). References held by or pointing at the deleted
// entity are not rewritten, so the graph may be left inconsistent.
func (c *Crate) Delete(nodes ...Node) error {
	const op = "Crate.Delete"
	for _, n := range nodes {
		if n == nil {
			continue
		}
		switch {
		case Node(c.rootDataset) == n:
			return newErrorf(op, KindOperation, ErrInvalidOperation, "cannot delete the root data entity")
		case Node(c.metadata) == n:
			return newErrorf(op, KindOperation, ErrInvalidOperation, "cannot delete the metadata entity")
		case c.preview != nil && Node(c.preview) == n:
			c.preview = nil
		default:
			if _, writable := n.(Writable); writable {
				c.removePart(n)
			}
		}
		c.entities.Delete(n.CanonicalID())
	}
	return nil
}

// DeleteID deletes the entity registered under the given identifier.
// Unknown identifiers are ignored.
func (c *Crate) DeleteID(identifier string) error {
	if n := c.Dereference(identifier); n != nil {
		return c.Delete(n)
	}
	return nil
}

func (c *Crate) removePart(n Node) {
	canonical := n.CanonicalID()
	var kept []any
	for _, entry := range asList(c.rootDataset.GetRaw("hasPart")) {
		if ref, ok := refTarget(entry); ok && c.resolver.Canonical(ref) == canonical {
			continue
		}
		kept = append(kept, entry)
	}
	if len(kept) == 0 {
		c.rootDataset.Delete("hasPart")
		return
	}
	c.rootDataset.setRaw("hasPart", kept)
}

// Dereference returns the entity registered under the given identifier
// (normalized first), or nil.
func (c *Crate) Dereference(identifier string) Node {
	n, _ := c.entities.Get(c.resolver.Canonical(identifier))
	return n
}

// Get is an alias for Dereference.
func (c *Crate) Get(identifier string) Node { return c.Dereference(identifier) }

// nodes returns all registered entities in insertion order.
func (c *Crate) nodes() []Node {
	out := make([]Node, 0, c.entities.Len())
	for pair := c.entities.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Entities returns every entity in the crate, in registration order.
func (c *Crate) Entities() []Node { return c.nodes() }

func isDefault(n Node) bool {
	switch n.(type) {
	case *RootDataset, *Metadata, *Preview:
		return true
	}
	return false
}

// DefaultEntities returns the root dataset, metadata descriptor and
// preview (when present).
func (c *Crate) DefaultEntities() []Node {
	var out []Node
	for _, n := range c.nodes() {
		if isDefault(n) {
			out = append(out, n)
		}
	}
	return out
}

// DataEntities returns the entities with byte-stream capability,
// excluding the defaults.
func (c *Crate) DataEntities() []Node {
	var out []Node
	for _, n := range c.nodes() {
		if _, writable := n.(Writable); writable && !isDefault(n) {
			out = append(out, n)
		}
	}
	return out
}

// ContextualEntities returns the entities with no byte-stream capability:
// people, organizations, languages, test suites and the like.
func (c *Crate) ContextualEntities() []Node {
	var out []Node
	for _, n := range c.nodes() {
		if _, writable := n.(Writable); !writable && !isDefault(n) {
			out = append(out, n)
		}
	}
	return out
}

// writables returns the data entities followed by the default entities,
// the order materialization proceeds in.
func (c *Crate) writables() []Writable {
	var out []Writable
	for _, n := range c.DataEntities() {
		out = append(out, n.(Writable))
	}
	for _, n := range c.DefaultEntities() {
		if w, ok := n.(Writable); ok {
			out = append(out, w)
		}
	}
	return out
}

// EntitiesByType returns the entities whose declared types include all of
// the given type names; with exact set, the declared set must match the
// given one exactly.
func (c *Crate) EntitiesByType(exact bool, types ...string) []Node {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []Node
	for _, n := range c.nodes() {
		declared := make(map[string]bool)
		for _, t := range n.Types() {
			declared[t] = true
		}
		if exact && len(declared) != len(want) {
			continue
		}
		match := true
		for t := range want {
			if !declared[t] {
				match = false
				break
			}
		}
		if match {
			out = append(out, n)
		}
	}
	return out
}

// Name returns the root dataset's name.
func (c *Crate) Name() string {
	s, _ := c.rootDataset.Get("name").(string)
	return s
}

// SetName sets the root dataset's name.
func (c *Crate) SetName(name string) error { return c.rootDataset.Set("name", name) }

// Description returns the root dataset's description.
func (c *Crate) Description() string {
	s, _ := c.rootDataset.Get("description").(string)
	return s
}

// SetDescription sets the root dataset's description.
func (c *Crate) SetDescription(desc string) error { return c.rootDataset.Set("description", desc) }

// Keywords returns the root dataset's keywords.
func (c *Crate) Keywords() []string { return stringList(asList(c.rootDataset.Get("keywords"))) }

// SetKeywords sets the root dataset's keywords.
func (c *Crate) SetKeywords(keywords ...string) error {
	return c.rootDataset.Set("keywords", keywords)
}

// License returns the root dataset's license: a string, a Node, or nil.
func (c *Crate) License() any { return c.rootDataset.Get("license") }

// SetLicense sets the root dataset's license to a string or an entity.
func (c *Crate) SetLicense(license any) error { return c.rootDataset.Set("license", license) }

// DatePublished returns the root dataset's publication date.
func (c *Crate) DatePublished() (time.Time, bool) { return c.rootDataset.DatePublished() }

// SetDatePublished sets the root dataset's publication date.
func (c *Crate) SetDatePublished(t time.Time) { c.rootDataset.SetDatePublished(t) }

// Creator returns the root dataset's creator(s).
func (c *Crate) Creator() any { return c.rootDataset.Get("creator") }

// SetCreator sets the root dataset's creator(s).
func (c *Crate) SetCreator(creator any) error { return c.rootDataset.Set("creator", creator) }

// Publisher returns the root dataset's publisher(s).
func (c *Crate) Publisher() any { return c.rootDataset.Get("publisher") }

// SetPublisher sets the root dataset's publisher(s).
func (c *Crate) SetPublisher(publisher any) error { return c.rootDataset.Set("publisher", publisher) }

// CreativeWorkStatus returns the root dataset's creativeWorkStatus.
func (c *Crate) CreativeWorkStatus() string {
	s, _ := c.rootDataset.Get("creativeWorkStatus").(string)
	return s
}

// SetCreativeWorkStatus sets the root dataset's creativeWorkStatus.
func (c *Crate) SetCreativeWorkStatus(status string) error {
	return c.rootDataset.Set("creativeWorkStatus", status)
}

// MainEntity returns the crate's main workflow, or nil.
func (c *Crate) MainEntity() *ComputationalWorkflow {
	switch w := c.rootDataset.Get("mainEntity").(type) {
	case *ComputationalWorkflow:
		return w
	case *WorkflowDescription:
		return &w.ComputationalWorkflow
	case *Workflow:
		return &w.ComputationalWorkflow
	}
	return nil
}

// SetMainEntity records the crate's main workflow.
func (c *Crate) SetMainEntity(w *ComputationalWorkflow) error {
	return c.rootDataset.Set("mainEntity", w)
}

// TestDir returns the dataset registered under "test", if any.
func (c *Crate) TestDir() *Dataset {
	if d, ok := c.Dereference("test").(*Dataset); ok {
		return d
	}
	return nil
}

// ExamplesDir returns the dataset registered under "examples", if any.
func (c *Crate) ExamplesDir() *Dataset {
	if d, ok := c.Dereference("examples").(*Dataset); ok {
		return d
	}
	return nil
}

// TestSuites returns the test suites referenced from the root dataset
// (via mentions or about, plus the legacy reference from the test
// directory), without duplicates.
func (c *Crate) TestSuites() []*TestSuite {
	seen := make(map[string]bool)
	var out []*TestSuite
	collect := func(v any) {
		for _, item := range asList(v) {
			s, ok := item.(*TestSuite)
			if !ok || seen[s.CanonicalID()] {
				continue
			}
			seen[s.CanonicalID()] = true
			out = append(out, s)
		}
	}
	collect(c.rootDataset.Get("mentions"))
	collect(c.rootDataset.Get("about"))
	if td := c.TestDir(); td != nil {
		collect(td.Get("about"))
	}
	return out
}

// AddFile creates a File entity and registers it.
func (c *Crate) AddFile(source, dest string, opts ...FileOption) (*File, error) {
	f, err := NewFile(c, source, dest, opts...)
	if err != nil {
		return nil, err
	}
	c.Add(f)
	return f, nil
}

// AddDataset creates a Dataset (directory) entity and registers it.
func (c *Crate) AddDataset(source, dest string, opts ...FileOption) (*Dataset, error) {
	d, err := NewDataset(c, source, dest, opts...)
	if err != nil {
		return nil, err
	}
	c.Add(d)
	return d, nil
}

// AddTree adds a local directory and, recursively, every file and
// subdirectory under it as individual entities, each dataset listing its
// direct children in hasPart.
func (c *Crate) AddTree(source, dest string) (*Dataset, error) {
	const op = "Crate.AddTree"
	if source == "" {
		return nil, newErrorf(op, KindValidation, ErrInvalidPath, "source must refer to an existing local directory")
	}
	top, err := c.AddDataset(source, dest)
	if err != nil {
		return nil, err
	}
	children, err := os.ReadDir(source)
	if err != nil {
		return nil, newError(op, KindIO, err)
	}
	for _, child := range children {
		childSource := filepath.Join(source, child.Name())
		childDest := path.Join(top.ID(), child.Name())
		var node Node
		if child.IsDir() {
			node, err = c.AddTree(childSource, childDest)
		} else {
			node, err = c.AddFile(childSource, childDest)
		}
		if err != nil {
			return nil, err
		}
		if err := top.Append("hasPart", node); err != nil {
			return nil, err
		}
	}
	return top, nil
}

// WorkflowSpec holds the optional settings of AddWorkflow.
type WorkflowSpec struct {
	Dest       string
	Properties Properties

	// Main promotes the workflow to the crate's main entity and stamps
	// the workflow crate profile on the metadata descriptor.
	Main bool

	// Lang names the workflow language in the built-in vocabulary
	// (default "cwl"); Language overrides it with an existing entity.
	Lang        string
	Language    *ComputerLanguage
	LangVersion string

	// GenCWL derives an abstract CWL description of the workflow through
	// the crate's workflow converter and links it via subjectOf.
	GenCWL bool

	FetchRemote bool
	ValidateURL bool
	RecordSize  bool
}

// AddWorkflow adds a workflow file to the crate, wiring its language
// entity and, when requested, the main-entity and profile bookkeeping of
// a workflow crate.
func (c *Crate) AddWorkflow(ctx context.Context, source string, spec WorkflowSpec) (*ComputationalWorkflow, error) {
	return c.addWorkflow(ctx, source, spec, false)
}

func (c *Crate) addWorkflow(ctx context.Context, source string, spec WorkflowSpec, abstract bool) (*ComputationalWorkflow, error) {
	const op = "Crate.AddWorkflow"
	opts := []FileOption{
		WithProperties(spec.Properties),
		WithFetchRemote(spec.FetchRemote),
		WithValidateURL(spec.ValidateURL),
		WithRecordSize(spec.RecordSize),
	}
	var workflow *ComputationalWorkflow
	if abstract {
		w, err := NewWorkflowDescription(c, source, spec.Dest, opts...)
		if err != nil {
			return nil, err
		}
		workflow = &w.ComputationalWorkflow
		c.Add(w)
	} else {
		w, err := NewComputationalWorkflow(c, source, spec.Dest, opts...)
		if err != nil {
			return nil, err
		}
		workflow = w
		c.Add(w)
	}

	lang := spec.Language
	if lang == nil {
		name := spec.Lang
		if name == "" {
			name = "cwl"
		}
		var err error
		lang, err = LanguageByName(c, name, spec.LangVersion)
		if err != nil {
			return nil, err
		}
		c.Add(lang)
	} else if lang.crate != c {
		return nil, newErrorf(op, KindValidation, ErrInvalidReference, "language entity belongs to another crate")
	}
	if err := workflow.SetLanguage(lang); err != nil {
		return nil, err
	}

	if spec.Main {
		if err := c.SetMainEntity(workflow); err != nil {
			return nil, err
		}
		c.stampWorkflowProfile()
	}

	langKey := lang.ID()
	if i := strings.LastIndex(langKey, "#"); i >= 0 {
		langKey = langKey[i+1:]
	}
	if spec.GenCWL && langKey != "cwl" {
		if langKey != "galaxy" {
			return nil, newErrorf(op, KindOperation, ErrInvalidOperation,
				"conversion from %s to abstract CWL not supported", lang.Name())
		}
		if c.converter == nil {
			return nil, newErrorf(op, KindOperation, ErrInvalidOperation, "no workflow converter configured")
		}
		tmp, err := os.CreateTemp("", "rocrate-cwl-*")
		if err != nil {
			return nil, newError(op, KindIO, err)
		}
		tmp.Close()
		if err := c.converter(ctx, source, tmp.Name()); err != nil {
			os.Remove(tmp.Name())
			return nil, newError(op, KindOperation, err)
		}
		base := path.Base(filepath.ToSlash(source))
		cwlDest := strings.TrimSuffix(base, path.Ext(base)) + ".cwl"
		abstractSpec := WorkflowSpec{
			Dest:        cwlDest,
			Properties:  spec.Properties,
			Lang:        "cwl",
			FetchRemote: spec.FetchRemote,
			RecordSize:  spec.RecordSize,
		}
		description, err := c.addWorkflow(ctx, tmp.Name(), abstractSpec, true)
		if err != nil {
			return nil, err
		}
		if err := workflow.SetSubjectOf(description); err != nil {
			return nil, err
		}
	}
	return workflow, nil
}

// stampWorkflowProfile merges the workflow crate profile into the
// metadata descriptor's conformsTo set.
func (c *Crate) stampWorkflowProfile() {
	profiles := map[string]bool{WorkflowProfile: true}
	for _, v := range normValues(c.metadata.GetRaw("conformsTo")) {
		profiles[strings.TrimRight(v, "/")] = true
	}
	sorted := make([]string, 0, len(profiles))
	for p := range profiles {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)
	refs := make([]any, len(sorted))
	for i, p := range sorted {
		refs[i] = map[string]any{"@id": p}
	}
	c.metadata.setRaw("conformsTo", refs)
}

// TestSuiteSpec holds the optional settings of AddTestSuite.
type TestSuiteSpec struct {
	Identifier string
	Name       string
	MainEntity *ComputationalWorkflow
	Properties Properties
}

// AddTestSuite adds a test suite and references it from the root dataset
// (via mentions, or about when the crate has no main workflow). The test
// vocabulary terms are added to the metadata context.
func (c *Crate) AddTestSuite(spec TestSuiteSpec) (*TestSuite, error) {
	refProp := "mentions"
	mainEntity := spec.MainEntity
	if mainEntity == nil {
		mainEntity = c.MainEntity()
		if mainEntity == nil {
			refProp = "about"
		}
	}
	suite, err := NewTestSuite(c, spec.Identifier, spec.Properties)
	if err != nil {
		return nil, err
	}
	c.Add(suite)
	if _, named := spec.Properties["name"]; !named {
		name := spec.Name
		if name == "" {
			name = strings.TrimPrefix(suite.ID(), "#")
		}
		suite.SetName(name)
	}
	if mainEntity != nil {
		if err := suite.Set("mainEntity", mainEntity); err != nil {
			return nil, err
		}
	}
	if err := c.rootDataset.Append(refProp, suite); err != nil {
		return nil, err
	}
	c.metadata.addExtraTerms(vocabulary().TestingTerms)
	return suite, nil
}

func (c *Crate) validateSuite(op string, suite *TestSuite) error {
	if suite == nil {
		return newErrorf(op, KindValidation, ErrInvalidReference, "suite is required")
	}
	if suite.crate != c {
		return newErrorf(op, KindValidation, ErrInvalidReference, "suite belongs to another crate")
	}
	return nil
}

// TestInstanceSpec holds the optional settings of AddTestInstance.
type TestInstanceSpec struct {
	Identifier string
	Name       string
	Resource   string

	// Service names the test service in the built-in vocabulary (default
	// "jenkins"); ServiceEntity overrides it with an existing entity.
	Service       string
	ServiceEntity *TestService

	Properties Properties
}

// AddTestInstance adds an execution instance of a test suite, running at
// the given service URL.
func (c *Crate) AddTestInstance(suite *TestSuite, url string, spec TestInstanceSpec) (*TestInstance, error) {
	const op = "Crate.AddTestInstance"
	if err := c.validateSuite(op, suite); err != nil {
		return nil, err
	}
	instance, err := NewTestInstance(c, spec.Identifier, spec.Properties)
	if err != nil {
		return nil, err
	}
	c.Add(instance)
	instance.SetURL(url)
	instance.SetResource(spec.Resource)
	service := spec.ServiceEntity
	if service == nil {
		name := spec.Service
		if name == "" {
			name = "jenkins"
		}
		service, err = ServiceByName(c, name)
		if err != nil {
			return nil, err
		}
		c.Add(service)
	} else if service.crate != c {
		return nil, newErrorf(op, KindValidation, ErrInvalidReference, "service entity belongs to another crate")
	}
	if err := instance.SetService(service); err != nil {
		return nil, err
	}
	if _, named := spec.Properties["name"]; !named {
		name := spec.Name
		if name == "" {
			name = strings.TrimPrefix(instance.ID(), "#")
		}
		instance.SetName(name)
	}
	if err := suite.Append("instance", instance); err != nil {
		return nil, err
	}
	c.metadata.addExtraTerms(vocabulary().TestingTerms)
	return instance, nil
}

// TestDefinitionSpec holds the optional settings of AddTestDefinition.
type TestDefinitionSpec struct {
	Dest       string
	Properties Properties

	// Engine names the test engine in the built-in vocabulary (default
	// "planemo"); EngineEntity overrides it with an existing entity.
	Engine        string
	EngineEntity  *SoftwareApplication
	EngineVersion string

	FetchRemote bool
	ValidateURL bool
	RecordSize  bool
}

// AddTestDefinition adds the definition file of a test suite, wiring the
// engine it conforms to.
func (c *Crate) AddTestDefinition(suite *TestSuite, source string, spec TestDefinitionSpec) (*TestDefinition, error) {
	const op = "Crate.AddTestDefinition"
	if err := c.validateSuite(op, suite); err != nil {
		return nil, err
	}
	definition, err := NewTestDefinition(c, source, spec.Dest,
		WithProperties(spec.Properties),
		WithFetchRemote(spec.FetchRemote),
		WithValidateURL(spec.ValidateURL),
		WithRecordSize(spec.RecordSize))
	if err != nil {
		return nil, err
	}
	c.Add(definition)
	engine := spec.EngineEntity
	if engine == nil {
		name := spec.Engine
		if name == "" {
			name = "planemo"
		}
		engine, err = ApplicationByName(c, name)
		if err != nil {
			return nil, err
		}
		c.Add(engine)
	} else if engine.crate != c {
		return nil, newErrorf(op, KindValidation, ErrInvalidReference, "engine entity belongs to another crate")
	}
	if err := definition.SetEngine(engine); err != nil {
		return nil, err
	}
	if spec.EngineVersion != "" {
		if err := definition.SetEngineVersion(spec.EngineVersion); err != nil {
			return nil, err
		}
	}
	if err := suite.Set("definition", definition); err != nil {
		return nil, err
	}
	c.metadata.addExtraTerms(vocabulary().TestingTerms)
	return definition, nil
}

// ActionSpec holds the optional settings of AddAction.
type ActionSpec struct {
	Identifier string
	Object     []Node
	Result     []Node
	Properties Properties
}

// AddAction adds an action entity (CreateAction by default) describing a
// run of the given instrument, and references it from the root dataset's
// mentions.
func (c *Crate) AddAction(instrument Node, spec ActionSpec) (*ContextEntity, error) {
	props := make(Properties, len(spec.Properties)+1)
	for k, v := range spec.Properties {
		props[k] = v
	}
	if _, typed := props["@type"]; !typed {
		props["@type"] = "CreateAction"
	}
	action, err := NewContextEntity(c, spec.Identifier, props)
	if err != nil {
		return nil, err
	}
	c.Add(action)
	if err := action.Set("instrument", instrument); err != nil {
		return nil, err
	}
	if _, named := props["name"]; !named {
		if err := action.Set("name", strings.TrimPrefix(action.ID(), "#")); err != nil {
			return nil, err
		}
	}
	if len(spec.Object) > 0 {
		if err := action.Set("object", spec.Object); err != nil {
			return nil, err
		}
	}
	if len(spec.Result) > 0 {
		if err := action.Set("result", spec.Result); err != nil {
			return nil, err
		}
	}
	if err := c.rootDataset.Append("mentions", action); err != nil {
		return nil, err
	}
	return action, nil
}

// AddJSONLD adds a contextual entity from a JSON-LD property map, which
// must carry @id and @type. Adding an id already present in the crate is
// an error.
func (c *Crate) AddJSONLD(jsonld Properties) (*ContextEntity, error) {
	const op = "Crate.AddJSONLD"
	identifier, hasID := jsonld["@id"].(string)
	_, hasType := jsonld["@type"]
	if len(jsonld) == 0 || !hasID || !hasType {
		return nil, newErrorf(op, KindValidation, ErrInvalidReference,
			"a non-empty JSON-LD map with @id and @type is required")
	}
	if c.Get(identifier) != nil {
		return nil, newErrorf(op, KindOperation, ErrInvalidOperation,
			"entity %s already exists in the crate", identifier)
	}
	props := make(Properties, len(jsonld)-1)
	for k, v := range jsonld {
		if k != "@id" {
			props[k] = v
		}
	}
	entity, err := NewContextEntity(c, identifier, props)
	if err != nil {
		return nil, err
	}
	c.Add(entity)
	return entity, nil
}

// UpdateJSONLD updates an existing entity from a JSON-LD property map,
// which must carry @id. Other @-prefixed keys are ignored.
func (c *Crate) UpdateJSONLD(jsonld Properties) (Node, error) {
	const op = "Crate.UpdateJSONLD"
	identifier, hasID := jsonld["@id"].(string)
	if len(jsonld) == 0 || !hasID {
		return nil, newErrorf(op, KindValidation, ErrInvalidReference,
			"a non-empty JSON-LD map with @id is required")
	}
	entity := c.Get(identifier)
	if entity == nil {
		return nil, newErrorf(op, KindNotFound, ErrNotFound,
			"entity %s does not exist in the crate", identifier)
	}
	for _, key := range sortedKeys(jsonld) {
		if strings.HasPrefix(key, "@") {
			continue
		}
		encoded, err := encodeValue(op, jsonld[key])
		if err != nil {
			return nil, err
		}
		entity.base().setRaw(key, encoded)
	}
	return entity, nil
}

// AddOrUpdateJSONLD adds the entity described by a JSON-LD property map,
// or updates it if its @id is already registered.
func (c *Crate) AddOrUpdateJSONLD(jsonld Properties) (Node, error) {
	const op = "Crate.AddOrUpdateJSONLD"
	identifier, hasID := jsonld["@id"].(string)
	if len(jsonld) == 0 || !hasID {
		return nil, newErrorf(op, KindValidation, ErrInvalidReference,
			"a non-empty JSON-LD map with @id is required")
	}
	if c.Get(identifier) == nil {
		return c.AddJSONLD(jsonld)
	}
	return c.UpdateJSONLD(jsonld)
}
