package rocrate

import (
	"context"
	"path"
	"strings"
)

// WorkflowConverter translates a workflow file from one language to
// another, writing the result to destPath. It backs the optional
// Galaxy-to-CWL conversion hook of AddWorkflow; the library ships no
// converter of its own.
type WorkflowConverter func(ctx context.Context, srcPath, destPath string) error

// ComputationalWorkflow is a file entity describing an executable
// workflow. Besides File it is typed SoftwareSourceCode and
// ComputationalWorkflow, and its name defaults to the identifier without
// extension.
type ComputationalWorkflow struct {
	File
}

// NewComputationalWorkflow creates a workflow file entity.
func NewComputationalWorkflow(c *Crate, source, dest string, opts ...FileOption) (*ComputationalWorkflow, error) {
	const op = "NewComputationalWorkflow"
	cfg := newFileOptions(opts)
	identifier, err := resolveDestID(op, source, dest, cfg.fetchRemote, false)
	if err != nil {
		return nil, err
	}
	w := &ComputationalWorkflow{}
	e := newEntity(c, identifier, workflowSkeleton(identifier, []string{"File", "SoftwareSourceCode", "ComputationalWorkflow"}))
	if err := initFileOrDir(&w.FileOrDir, e, source, cfg); err != nil {
		return nil, err
	}
	return w, nil
}

func workflowSkeleton(identifier string, types []string) []keyValue {
	return []keyValue{
		{"@type", types},
		{"name", strings.TrimSuffix(identifier, path.Ext(identifier))},
	}
}

// Language returns the workflow's programming language entity, or nil if
// none is recorded.
func (w *ComputationalWorkflow) Language() *ComputerLanguage {
	if l, ok := w.Get("programmingLanguage").(*ComputerLanguage); ok {
		return l
	}
	return nil
}

// SetLanguage records the workflow's programming language.
func (w *ComputationalWorkflow) SetLanguage(lang *ComputerLanguage) error {
	return w.Set("programmingLanguage", lang)
}

// SubjectOf returns the entity this workflow is the subject of, typically
// its abstract (CWL) description in a workflow crate.
func (w *ComputationalWorkflow) SubjectOf() Node {
	if n, ok := w.Get("subjectOf").(Node); ok {
		return n
	}
	return nil
}

// SetSubjectOf links this workflow to its abstract description.
func (w *ComputationalWorkflow) SetSubjectOf(n Node) error {
	return w.Set("subjectOf", n)
}

// WorkflowDescription is an abstract, human-oriented description of a
// workflow (typed HowTo rather than ComputationalWorkflow). A workflow
// crate places the CWL rendering of a converted workflow here.
type WorkflowDescription struct {
	ComputationalWorkflow
}

// NewWorkflowDescription creates an abstract workflow description entity.
func NewWorkflowDescription(c *Crate, source, dest string, opts ...FileOption) (*WorkflowDescription, error) {
	const op = "NewWorkflowDescription"
	cfg := newFileOptions(opts)
	identifier, err := resolveDestID(op, source, dest, cfg.fetchRemote, false)
	if err != nil {
		return nil, err
	}
	w := &WorkflowDescription{}
	e := newEntity(c, identifier, workflowSkeleton(identifier, []string{"File", "SoftwareSourceCode", "HowTo"}))
	if err := initFileOrDir(&w.FileOrDir, e, source, cfg); err != nil {
		return nil, err
	}
	return w, nil
}

// Workflow is the legacy workflow entity type from the 1.0 workflow crate
// profile, kept so that old crates load into a faithful in-memory graph.
type Workflow struct {
	ComputationalWorkflow
}

// NewWorkflow creates a legacy workflow entity.
func NewWorkflow(c *Crate, source, dest string, opts ...FileOption) (*Workflow, error) {
	const op = "NewWorkflow"
	cfg := newFileOptions(opts)
	identifier, err := resolveDestID(op, source, dest, cfg.fetchRemote, false)
	if err != nil {
		return nil, err
	}
	w := &Workflow{}
	e := newEntity(c, identifier, workflowSkeleton(identifier, []string{"File", "SoftwareSourceCode", "Workflow"}))
	if err := initFileOrDir(&w.FileOrDir, e, source, cfg); err != nil {
		return nil, err
	}
	return w, nil
}

// TestDefinition is a file entity holding the definition of a test suite,
// conforming to a test engine such as Planemo.
type TestDefinition struct {
	File
}

// NewTestDefinition creates a test definition file entity.
func NewTestDefinition(c *Crate, source, dest string, opts ...FileOption) (*TestDefinition, error) {
	const op = "NewTestDefinition"
	cfg := newFileOptions(opts)
	identifier, err := resolveDestID(op, source, dest, cfg.fetchRemote, false)
	if err != nil {
		return nil, err
	}
	d := &TestDefinition{}
	e := newEntity(c, identifier, []keyValue{{"@type", []string{"File", "TestDefinition"}}})
	if err := initFileOrDir(&d.FileOrDir, e, source, cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// Engine returns the test engine this definition conforms to, or nil.
func (d *TestDefinition) Engine() *SoftwareApplication {
	if a, ok := d.Get("conformsTo").(*SoftwareApplication); ok {
		return a
	}
	return nil
}

// SetEngine records the test engine this definition conforms to.
func (d *TestDefinition) SetEngine(engine *SoftwareApplication) error {
	return d.Set("conformsTo", engine)
}

// EngineVersion returns the required engine version, or the empty string.
func (d *TestDefinition) EngineVersion() string {
	if v, ok := d.Get("engineVersion").(string); ok {
		return v
	}
	return ""
}

// SetEngineVersion records the required engine version.
func (d *TestDefinition) SetEngineVersion(version string) error {
	return d.Set("engineVersion", version)
}
