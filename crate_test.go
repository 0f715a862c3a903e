package rocrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestNewCrateDefaults(t *testing.T) {
	c := newTestCrate(t)

	root := c.RootDataset()
	require.NotNil(t, root)
	assert.Equal(t, "./", root.ID())
	_, ok := root.DatePublished()
	assert.True(t, ok)

	md := c.Metadata()
	require.NotNil(t, md)
	assert.Equal(t, MetadataBasename, md.ID())
	assert.Equal(t, Profile, md.Profile())

	assert.Nil(t, c.Preview())
	assert.Len(t, c.Entities(), 2)
	assert.Len(t, c.DefaultEntities(), 2)
	assert.Empty(t, c.DataEntities())
	assert.Empty(t, c.ContextualEntities())
}

func TestCrateGenPreview(t *testing.T) {
	c, err := New(WithGenPreview(true))
	require.NoError(t, err)
	require.NotNil(t, c.Preview())
	assert.Equal(t, PreviewBasename, c.Preview().ID())
}

func TestCrateRootAccessors(t *testing.T) {
	c := newTestCrate(t)

	require.NoError(t, c.SetName("my crate"))
	require.NoError(t, c.SetDescription("a test crate"))
	require.NoError(t, c.SetKeywords("one", "two"))
	require.NoError(t, c.SetLicense("https://creativecommons.org/licenses/by/4.0/"))
	require.NoError(t, c.SetCreativeWorkStatus("draft"))

	assert.Equal(t, "my crate", c.Name())
	assert.Equal(t, "a test crate", c.Description())
	assert.Equal(t, []string{"one", "two"}, c.Keywords())
	assert.Equal(t, "https://creativecommons.org/licenses/by/4.0/", c.License())
	assert.Equal(t, "draft", c.CreativeWorkStatus())
}

func TestCrateAddFileHasPart(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "data.csv", "a,b\n1,2\n")
	c := newTestCrate(t)

	f, err := c.AddFile(src, "")
	require.NoError(t, err)
	assert.Equal(t, "data.csv", f.ID())

	parts := asList(c.RootDataset().GetRaw("hasPart"))
	require.Len(t, parts, 1)
	ref, ok := refTarget(parts[0])
	require.True(t, ok)
	assert.Equal(t, "data.csv", ref)

	// Re-adding the same destination replaces the entity without
	// duplicating the hasPart entry.
	_, err = c.AddFile(src, "data.csv")
	require.NoError(t, err)
	assert.Len(t, asList(c.RootDataset().GetRaw("hasPart")), 1)
	assert.Len(t, c.DataEntities(), 1)
}

func TestCrateDereferenceSpelling(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	c := newTestCrate(t)

	d, err := c.AddDataset(filepath.Join(dir, "data"), "")
	require.NoError(t, err)
	assert.Equal(t, "data/", d.ID())

	// Spelling variants of the same path converge on one entity.
	assert.Same(t, Node(d), c.Dereference("data"))
	assert.Same(t, Node(d), c.Dereference("data/"))
	assert.Same(t, Node(d), c.Dereference("./data/"))
	assert.Nil(t, c.Dereference("other"))
}

func TestCrateAddFileValidation(t *testing.T) {
	c := newTestCrate(t)

	_, err := c.AddFile("", "")
	require.ErrorIs(t, err, ErrInvalidPath)

	_, err = c.AddFile("source.txt", "/absolute/dest.txt")
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestCrateAddRemoteFile(t *testing.T) {
	c := newTestCrate(t)

	// Without fetch-remote the URL itself is the identifier.
	ref, err := c.AddFile("https://example.com/data/table.csv", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/data/table.csv", ref.ID())

	fetched, err := c.AddFile("https://example.com/data/other.csv", "", WithFetchRemote(true))
	require.NoError(t, err)
	assert.Equal(t, "other.csv", fetched.ID())
}

func TestCrateDeleteInvariants(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "data.csv", "x")
	c := newTestCrate(t)

	err := c.Delete(c.RootDataset())
	require.ErrorIs(t, err, ErrInvalidOperation)
	err = c.Delete(c.Metadata())
	require.ErrorIs(t, err, ErrInvalidOperation)

	f, err := c.AddFile(src, "")
	require.NoError(t, err)
	require.NoError(t, c.Delete(f))
	assert.Nil(t, c.Dereference("data.csv"))
	// The hasPart property disappears with its last member.
	assert.Nil(t, c.RootDataset().GetRaw("hasPart"))
}

func TestCrateDeleteID(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "data.csv", "x")
	c := newTestCrate(t)

	_, err := c.AddFile(src, "")
	require.NoError(t, err)
	require.NoError(t, c.DeleteID("data.csv"))
	assert.Empty(t, c.DataEntities())

	// Unknown ids are ignored.
	require.NoError(t, c.DeleteID("missing.csv"))
}

func TestCrateAddTree(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "tree/a.txt", "a")
	writeTestFile(t, dir, "tree/sub/b.txt", "b")
	c := newTestCrate(t)

	top, err := c.AddTree(filepath.Join(dir, "tree"), "")
	require.NoError(t, err)
	assert.Equal(t, "tree/", top.ID())

	require.IsType(t, &File{}, c.Dereference("tree/a.txt"))
	require.IsType(t, &Dataset{}, c.Dereference("tree/sub/"))
	require.IsType(t, &File{}, c.Dereference("tree/sub/b.txt"))

	parts := normValues(top.GetRaw("hasPart"))
	assert.ElementsMatch(t, []string{"tree/a.txt", "tree/sub/"}, parts)
}

func TestCrateAddWorkflow(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "analysis.cwl", "cwlVersion: v1.2\n")
	c := newTestCrate(t)

	wf, err := c.AddWorkflow(context.Background(), src, WorkflowSpec{Main: true})
	require.NoError(t, err)
	assert.Equal(t, "analysis.cwl", wf.ID())
	assert.Equal(t, "analysis", wf.Get("name"))
	assert.ElementsMatch(t, []string{"File", "SoftwareSourceCode", "ComputationalWorkflow"}, wf.Types())

	lang := wf.Language()
	require.NotNil(t, lang)
	assert.Equal(t, "Common Workflow Language", lang.Name())

	require.NotNil(t, c.MainEntity())
	assert.Equal(t, wf.ID(), c.MainEntity().ID())

	profiles := normValues(c.Metadata().GetRaw("conformsTo"))
	assert.Contains(t, profiles, Profile)
	assert.Contains(t, profiles, WorkflowProfile)
}

func TestCrateAddWorkflowUnknownLanguage(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "analysis.wdl", "workflow {}\n")
	c := newTestCrate(t)

	_, err := c.AddWorkflow(context.Background(), src, WorkflowSpec{Lang: "wdl"})
	require.ErrorIs(t, err, ErrUnknownName)
}

func TestCrateAddWorkflowGenCWLUnsupported(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "analysis.nf", "process {}\n")
	c := newTestCrate(t)

	_, err := c.AddWorkflow(context.Background(), src, WorkflowSpec{Lang: "nextflow", GenCWL: true})
	require.ErrorIs(t, err, ErrInvalidOperation)
}

func TestCrateAddWorkflowGenCWL(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "pipeline.ga", "{}\n")
	converter := func(ctx context.Context, srcPath, destPath string) error {
		return os.WriteFile(destPath, []byte("cwlVersion: v1.2\n"), 0o644)
	}
	c, err := New(WithWorkflowConverter(converter))
	require.NoError(t, err)

	wf, err := c.AddWorkflow(context.Background(), src, WorkflowSpec{Lang: "galaxy", GenCWL: true})
	require.NoError(t, err)

	description, ok := wf.SubjectOf().(*WorkflowDescription)
	require.True(t, ok)
	assert.Equal(t, "pipeline.cwl", description.ID())
	assert.Contains(t, description.Types(), "HowTo")
}

func TestCrateTestSuiteWiring(t *testing.T) {
	dir := t.TempDir()
	defSrc := writeTestFile(t, dir, "test-defn.yml", "tests: []\n")
	c := newTestCrate(t)

	suite, err := c.AddTestSuite(TestSuiteSpec{})
	require.NoError(t, err)
	assert.Equal(t, suite.Name(), suite.ID()[1:])

	// Without a main workflow the suite is referenced via about.
	about := normValues(c.RootDataset().GetRaw("about"))
	require.Len(t, about, 1)
	assert.Equal(t, suite.ID(), about[0])
	require.Len(t, c.TestSuites(), 1)

	instance, err := c.AddTestInstance(suite, "http://example.com", TestInstanceSpec{Resource: "jobs/1"})
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", instance.URL())
	assert.Equal(t, "jobs/1", instance.Resource())
	require.NotNil(t, instance.Service())
	assert.Equal(t, "Jenkins", instance.Service().Name())
	require.Len(t, suite.Instances(), 1)

	definition, err := c.AddTestDefinition(suite, defSrc, TestDefinitionSpec{EngineVersion: ">=0.70"})
	require.NoError(t, err)
	assert.Equal(t, ">=0.70", definition.EngineVersion())
	require.NotNil(t, definition.Engine())
	assert.Equal(t, "Planemo", definition.Engine().Name())
	require.NotNil(t, suite.Definition())
	assert.Equal(t, definition.ID(), suite.Definition().ID())

	// Testing terms land in the serialized context.
	terms := c.Metadata().ExtraTerms()
	assert.Equal(t, "https://w3id.org/ro/terms/test#runsOn", terms["runsOn"])
}

func TestCrateAddTestInstanceValidation(t *testing.T) {
	c := newTestCrate(t)
	_, err := c.AddTestInstance(nil, "http://example.com", TestInstanceSpec{})
	require.ErrorIs(t, err, ErrInvalidReference)

	other := newTestCrate(t)
	suite, err := other.AddTestSuite(TestSuiteSpec{})
	require.NoError(t, err)
	_, err = c.AddTestInstance(suite, "http://example.com", TestInstanceSpec{})
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestCrateAddAction(t *testing.T) {
	dir := t.TempDir()
	src := writeTestFile(t, dir, "analysis.cwl", "cwlVersion: v1.2\n")
	c := newTestCrate(t)

	wf, err := c.AddWorkflow(context.Background(), src, WorkflowSpec{Main: true})
	require.NoError(t, err)
	in, err := NewContextEntity(c, "#input", Properties{"@type": "Thing"})
	require.NoError(t, err)
	c.Add(in)

	action, err := c.AddAction(wf, ActionSpec{Object: []Node{in}})
	require.NoError(t, err)
	assert.Equal(t, []string{"CreateAction"}, action.Types())
	got, ok := action.Get("instrument").(*ComputationalWorkflow)
	require.True(t, ok)
	assert.Equal(t, wf.ID(), got.ID())

	mentions := normValues(c.RootDataset().GetRaw("mentions"))
	assert.Contains(t, mentions, action.ID())
}

func TestCrateJSONLD(t *testing.T) {
	c := newTestCrate(t)

	_, err := c.AddJSONLD(Properties{"@id": "#org"})
	require.ErrorIs(t, err, ErrInvalidReference)

	org, err := c.AddJSONLD(Properties{
		"@id":   "#org",
		"@type": "Organization",
		"name":  "ACME",
	})
	require.NoError(t, err)
	assert.Equal(t, "ACME", org.Get("name"))

	_, err = c.AddJSONLD(Properties{"@id": "#org", "@type": "Organization"})
	require.ErrorIs(t, err, ErrInvalidOperation)

	_, err = c.UpdateJSONLD(Properties{"@id": "#missing", "name": "x"})
	require.ErrorIs(t, err, ErrNotFound)

	updated, err := c.UpdateJSONLD(Properties{"@id": "#org", "name": "ACME Corp"})
	require.NoError(t, err)
	assert.Equal(t, "ACME Corp", updated.base().Get("name"))

	upserted, err := c.AddOrUpdateJSONLD(Properties{"@id": "#lab", "@type": "Organization", "name": "Lab"})
	require.NoError(t, err)
	assert.Equal(t, "Lab", upserted.base().Get("name"))
	_, err = c.AddOrUpdateJSONLD(Properties{"@id": "#lab", "name": "Lab 2"})
	require.NoError(t, err)
	assert.Equal(t, "Lab 2", c.Get("#lab").base().Get("name"))
}

func TestCrateEntitiesByType(t *testing.T) {
	c := newTestCrate(t)
	_, err := c.AddJSONLD(Properties{"@id": "#alice", "@type": "Person", "name": "Alice"})
	require.NoError(t, err)

	people := c.EntitiesByType(false, "Person")
	require.Len(t, people, 1)
	assert.Equal(t, "#alice", people[0].ID())

	datasets := c.EntitiesByType(true, "Dataset")
	require.Len(t, datasets, 1)
	assert.Equal(t, "./", datasets[0].ID())
}

func TestLanguageByName(t *testing.T) {
	c := newTestCrate(t)

	_, err := LanguageByName(c, "wdl", "")
	require.ErrorIs(t, err, ErrUnknownName)

	lang, err := LanguageByName(c, "CWL", "1.2")
	require.NoError(t, err)
	assert.Equal(t, "Common Workflow Language", lang.Name())
	assert.Equal(t, "CWL", lang.AlternateName())
	assert.Equal(t, "1.2", lang.Version())
	assert.Equal(t, map[string]any{"@id": "https://w3id.org/cwl/v1.2/"}, lang.GetRaw("identifier"))

	local, err := LanguageByName(c, "compss", "")
	require.NoError(t, err)
	assert.Equal(t, "#compss", local.ID())
	assert.Equal(t, "http://compss.bsc.es/", local.GetRaw("url"))
}

func TestServiceAndApplicationByName(t *testing.T) {
	c := newTestCrate(t)

	_, err := ServiceByName(c, "circleci")
	require.ErrorIs(t, err, ErrUnknownName)
	svc, err := ServiceByName(c, "github")
	require.NoError(t, err)
	assert.Equal(t, "Github Actions", svc.Name())

	_, err = ApplicationByName(c, "pytest")
	require.ErrorIs(t, err, ErrUnknownName)
	app, err := ApplicationByName(c, "planemo")
	require.NoError(t, err)
	assert.Equal(t, "Planemo", app.Name())
}

func TestKnownVocabulary(t *testing.T) {
	assert.Contains(t, KnownLanguages(), "cwl")
	assert.Contains(t, KnownLanguages(), "snakemake")
	assert.Equal(t, []string{"github", "jenkins", "travis"}, KnownServices())
	assert.Equal(t, []string{"planemo"}, KnownApplications())
}
