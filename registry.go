package rocrate

import "sync"

// dataFactory builds a concrete data entity during crate loading.
type dataFactory func(c *Crate, source, dest string, opts ...FileOption) (Writable, error)

// contextualFactory builds a concrete contextual entity during crate
// loading.
type contextualFactory func(c *Crate, identifier string, props Properties) (Node, error)

// typeRegistry maps declared "@type" names to entity constructors. Match
// order is significant: an entity declaring several registered types gets
// the first registered match, so more specific types are registered
// before more general ones (a workflow is also a File; a TestDefinition
// beats the plain File fallback only because of its extra type name).
type typeRegistry[F any] struct {
	names     []string
	factories map[string]F
}

func (r *typeRegistry[F]) register(name string, f F) {
	if r.factories == nil {
		r.factories = make(map[string]F)
	}
	if _, dup := r.factories[name]; !dup {
		r.names = append(r.names, name)
	}
	r.factories[name] = f
}

// pick returns the factory for the first registered name present in
// types, or the zero factory and false when nothing matches.
func (r *typeRegistry[F]) pick(types []string) (F, bool) {
	declared := make(map[string]bool, len(types))
	for _, t := range types {
		declared[t] = true
	}
	for _, name := range r.names {
		if declared[name] {
			return r.factories[name], true
		}
	}
	var zero F
	return zero, false
}

var (
	registryOnce       sync.Once
	dataRegistry       typeRegistry[dataFactory]
	contextualRegistry typeRegistry[contextualFactory]
)

func registries() (*typeRegistry[dataFactory], *typeRegistry[contextualFactory]) {
	registryOnce.Do(func() {
		dataRegistry.register("WorkflowDescription", func(c *Crate, source, dest string, opts ...FileOption) (Writable, error) {
			return NewWorkflowDescription(c, source, dest, opts...)
		})
		dataRegistry.register("Workflow", func(c *Crate, source, dest string, opts ...FileOption) (Writable, error) {
			return NewWorkflow(c, source, dest, opts...)
		})
		dataRegistry.register("ComputationalWorkflow", func(c *Crate, source, dest string, opts ...FileOption) (Writable, error) {
			return NewComputationalWorkflow(c, source, dest, opts...)
		})
		dataRegistry.register("TestDefinition", func(c *Crate, source, dest string, opts ...FileOption) (Writable, error) {
			return NewTestDefinition(c, source, dest, opts...)
		})
		dataRegistry.register("File", func(c *Crate, source, dest string, opts ...FileOption) (Writable, error) {
			return NewFile(c, source, dest, opts...)
		})
		dataRegistry.register("Dataset", func(c *Crate, source, dest string, opts ...FileOption) (Writable, error) {
			return NewDataset(c, source, dest, opts...)
		})

		contextualRegistry.register("Person", func(c *Crate, identifier string, props Properties) (Node, error) {
			return NewPerson(c, identifier, props)
		})
		contextualRegistry.register("ComputerLanguage", func(c *Crate, identifier string, props Properties) (Node, error) {
			return NewComputerLanguage(c, identifier, props)
		})
		contextualRegistry.register("SoftwareApplication", func(c *Crate, identifier string, props Properties) (Node, error) {
			return NewSoftwareApplication(c, identifier, props)
		})
		contextualRegistry.register("TestService", func(c *Crate, identifier string, props Properties) (Node, error) {
			return NewTestService(c, identifier, props)
		})
		contextualRegistry.register("TestSuite", func(c *Crate, identifier string, props Properties) (Node, error) {
			return NewTestSuite(c, identifier, props)
		})
		contextualRegistry.register("TestInstance", func(c *Crate, identifier string, props Properties) (Node, error) {
			return NewTestInstance(c, identifier, props)
		})
	})
	return &dataRegistry, &contextualRegistry
}
