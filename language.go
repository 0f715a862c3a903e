package rocrate

import "strings"

// ComputerLanguage is a contextual entity describing the language a
// workflow is written in (CWL, Galaxy, Nextflow, ...).
type ComputerLanguage struct {
	ContextEntity
}

// NewComputerLanguage creates a ComputerLanguage entity.
func NewComputerLanguage(c *Crate, identifier string, props Properties) (*ComputerLanguage, error) {
	e := &ComputerLanguage{ContextEntity{newEntity(c, identifier, []keyValue{
		{"@type", "ComputerLanguage"},
	})}}
	if err := e.applyProperties(props); err != nil {
		return nil, err
	}
	return e, nil
}

// Name returns the language's name property.
func (l *ComputerLanguage) Name() string {
	name, _ := l.GetRaw("name").(string)
	return name
}

// AlternateName returns the language's alternateName property.
func (l *ComputerLanguage) AlternateName() string {
	name, _ := l.GetRaw("alternateName").(string)
	return name
}

// Version returns the language's version property.
func (l *ComputerLanguage) Version() string {
	v, _ := l.GetRaw("version").(string)
	return v
}

// LanguageByName builds the ComputerLanguage entity for a registered
// workflow language name (e.g. "cwl", "galaxy", "nextflow"). Lookup is
// case-insensitive; an unregistered name fails with ErrUnknownName.
// version, when non-empty, is recorded in the "version" property and, for
// languages with versioned identifiers, folded into the identifier URL.
func LanguageByName(c *Crate, name, version string) (*ComputerLanguage, error) {
	const op = "LanguageByName"
	spec, ok := vocabulary().Languages[strings.ToLower(name)]
	if !ok {
		return nil, newErrorf(op, KindValidation, ErrUnknownName, "unknown language: %s", name)
	}

	props := Properties{"name": spec.Name}
	if spec.AlternateName != "" {
		props["alternateName"] = spec.AlternateName
	}
	if spec.Identifier != "" {
		identifier := spec.Identifier
		if spec.VersionInIdentifier && version != "" {
			identifier = identifier + "v" + strings.TrimPrefix(version, "v") + "/"
		}
		if spec.IdentifierIsRef {
			props["identifier"] = map[string]any{"@id": identifier}
		} else {
			props["identifier"] = identifier
		}
	}
	if spec.URL != "" {
		if spec.URLIsRef {
			props["url"] = map[string]any{"@id": spec.URL}
		} else {
			props["url"] = spec.URL
		}
	}
	if spec.Citation != "" {
		props["citation"] = spec.Citation
	}
	if version != "" {
		props["version"] = version
	}
	return NewComputerLanguage(c, spec.ID, props)
}
