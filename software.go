package rocrate

import "strings"

// SoftwareApplication is a contextual entity describing a software tool,
// such as the engine a test definition is written for.
type SoftwareApplication struct {
	ContextEntity
}

// NewSoftwareApplication creates a SoftwareApplication entity.
func NewSoftwareApplication(c *Crate, identifier string, props Properties) (*SoftwareApplication, error) {
	e := &SoftwareApplication{ContextEntity{newEntity(c, identifier, []keyValue{
		{"@type", "SoftwareApplication"},
	})}}
	if err := e.applyProperties(props); err != nil {
		return nil, err
	}
	return e, nil
}

// Name returns the application's name property.
func (a *SoftwareApplication) Name() string {
	name, _ := a.GetRaw("name").(string)
	return name
}

// ApplicationByName builds the SoftwareApplication entity for a registered
// test engine name (e.g. "planemo"). Lookup is case-insensitive; an
// unregistered name fails with ErrUnknownName.
func ApplicationByName(c *Crate, name string) (*SoftwareApplication, error) {
	const op = "ApplicationByName"
	spec, ok := vocabulary().Applications[strings.ToLower(name)]
	if !ok {
		return nil, newErrorf(op, KindValidation, ErrUnknownName, "unknown application: %s", name)
	}
	return NewSoftwareApplication(c, spec.ID, Properties{
		"name": spec.Name,
		"url":  map[string]any{"@id": spec.URL},
	})
}

// TestService is a contextual entity describing a continuous-integration
// service that test instances run on.
type TestService struct {
	ContextEntity
}

// NewTestService creates a TestService entity.
func NewTestService(c *Crate, identifier string, props Properties) (*TestService, error) {
	e := &TestService{ContextEntity{newEntity(c, identifier, []keyValue{
		{"@type", "TestService"},
	})}}
	if err := e.applyProperties(props); err != nil {
		return nil, err
	}
	return e, nil
}

// Name returns the service's name property.
func (s *TestService) Name() string {
	name, _ := s.GetRaw("name").(string)
	return name
}

// ServiceByName builds the TestService entity for a registered service
// name (e.g. "jenkins", "travis", "github"). Lookup is case-insensitive;
// an unregistered name fails with ErrUnknownName.
func ServiceByName(c *Crate, name string) (*TestService, error) {
	const op = "ServiceByName"
	spec, ok := vocabulary().Services[strings.ToLower(name)]
	if !ok {
		return nil, newErrorf(op, KindValidation, ErrUnknownName, "unknown service: %s", name)
	}
	return NewTestService(c, spec.ID, Properties{
		"name": spec.Name,
		"url":  map[string]any{"@id": spec.URL},
	})
}
