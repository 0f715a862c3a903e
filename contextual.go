package rocrate

// ContextEntity is a contextual entity: a node that carries no payload
// bytes, such as a person, an organization or a computer language. Its
// default type is "Thing".
type ContextEntity struct {
	*Entity
}

// NewContextEntity creates a contextual entity. An empty identifier yields
// a fresh "#<uuid>" id.
func NewContextEntity(c *Crate, identifier string, props Properties) (*ContextEntity, error) {
	e := &ContextEntity{newEntity(c, identifier, []keyValue{
		{"@type", "Thing"},
	})}
	if err := e.applyProperties(props); err != nil {
		return nil, err
	}
	return e, nil
}

// Person is a contextual entity describing a person, usually referenced
// from author, creator or publisher properties.
type Person struct {
	ContextEntity
}

// NewPerson creates a Person entity. The identifier is conventionally an
// ORCID URL or a "#name" fragment.
func NewPerson(c *Crate, identifier string, props Properties) (*Person, error) {
	e := &Person{ContextEntity{newEntity(c, identifier, []keyValue{
		{"@type", "Person"},
	})}}
	if err := e.applyProperties(props); err != nil {
		return nil, err
	}
	return e, nil
}

// TestSuite is a contextual entity grouping the test metadata of a
// workflow crate, per the Workflow Testing RO-Crate profile.
type TestSuite struct {
	ContextEntity
}

// NewTestSuite creates a TestSuite entity.
func NewTestSuite(c *Crate, identifier string, props Properties) (*TestSuite, error) {
	e := &TestSuite{ContextEntity{newEntity(c, identifier, []keyValue{
		{"@type", "TestSuite"},
	})}}
	if err := e.applyProperties(props); err != nil {
		return nil, err
	}
	return e, nil
}

// Name returns the suite's name property.
func (s *TestSuite) Name() string {
	name, _ := s.GetRaw("name").(string)
	return name
}

// SetName sets the suite's name property.
func (s *TestSuite) SetName(name string) {
	s.setRaw("name", name)
}

// Instances returns the test instances referenced by the suite's
// "instance" property.
func (s *TestSuite) Instances() []*TestInstance {
	var out []*TestInstance
	for _, v := range asList(s.Get("instance")) {
		if inst, ok := v.(*TestInstance); ok {
			out = append(out, inst)
		}
	}
	return out
}

// Definition returns the test definition referenced by the suite's
// "definition" property, or nil.
func (s *TestSuite) Definition() *TestDefinition {
	def, _ := s.Get("definition").(*TestDefinition)
	return def
}

// MainEntity returns the workflow the suite is about, or nil.
func (s *TestSuite) MainEntity() *ComputationalWorkflow {
	wf, _ := s.Get("mainEntity").(*ComputationalWorkflow)
	return wf
}

// TestInstance is a contextual entity describing one deployment of a test
// suite on a continuous-integration service.
type TestInstance struct {
	ContextEntity
}

// NewTestInstance creates a TestInstance entity.
func NewTestInstance(c *Crate, identifier string, props Properties) (*TestInstance, error) {
	e := &TestInstance{ContextEntity{newEntity(c, identifier, []keyValue{
		{"@type", "TestInstance"},
	})}}
	if err := e.applyProperties(props); err != nil {
		return nil, err
	}
	return e, nil
}

// Name returns the instance's name property.
func (i *TestInstance) Name() string {
	name, _ := i.GetRaw("name").(string)
	return name
}

// SetName sets the instance's name property.
func (i *TestInstance) SetName(name string) {
	i.setRaw("name", name)
}

// URL returns the service base url the instance runs at.
func (i *TestInstance) URL() string {
	u, _ := i.GetRaw("url").(string)
	return u
}

// SetURL sets the service base url the instance runs at.
func (i *TestInstance) SetURL(url string) {
	i.setRaw("url", url)
}

// Resource returns the service-relative resource path of the instance.
func (i *TestInstance) Resource() string {
	r, _ := i.GetRaw("resource").(string)
	return r
}

// SetResource sets the service-relative resource path of the instance.
func (i *TestInstance) SetResource(resource string) {
	i.setRaw("resource", resource)
}

// Service returns the test service the instance runs on, or nil.
func (i *TestInstance) Service() *TestService {
	svc, _ := i.Get("runsOn").(*TestService)
	return svc
}

// SetService sets the test service the instance runs on.
func (i *TestInstance) SetService(svc *TestService) error {
	return i.Set("runsOn", svc)
}
