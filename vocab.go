package rocrate

import (
	_ "embed"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed vocab.yaml
var vocabYAML []byte

// Vocabulary holds the static lookup tables for well-known workflow
// languages, test services and test engines, and the extra context terms
// of the testing profile. It is loaded once from the embedded vocab.yaml
// and is immutable after initialization.
type Vocabulary struct {
	Languages    map[string]LanguageSpec    `yaml:"languages"`
	Services     map[string]ServiceSpec     `yaml:"services"`
	Applications map[string]ApplicationSpec `yaml:"applications"`
	TestingTerms map[string]string          `yaml:"testing_terms"`
}

// LanguageSpec describes one registered workflow language.
type LanguageSpec struct {
	ID                  string `yaml:"id"`
	Name                string `yaml:"name"`
	AlternateName       string `yaml:"alternate_name"`
	Identifier          string `yaml:"identifier"`
	IdentifierIsRef     bool   `yaml:"identifier_is_ref"`
	VersionInIdentifier bool   `yaml:"version_in_identifier"`
	URL                 string `yaml:"url"`
	URLIsRef            bool   `yaml:"url_is_ref"`
	Citation            string `yaml:"citation"`
}

// ServiceSpec describes one registered continuous-integration service.
type ServiceSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ApplicationSpec describes one registered test engine application.
type ApplicationSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

var (
	vocab     *Vocabulary
	vocabOnce sync.Once
)

// vocabulary returns the embedded vocabulary tables, parsed on first use.
func vocabulary() *Vocabulary {
	vocabOnce.Do(func() {
		v := &Vocabulary{}
		if err := yaml.Unmarshal(vocabYAML, v); err != nil {
			// The vocabulary ships with the package; a parse failure is
			// a build defect, not a runtime condition.
			panic("rocrate: cannot parse embedded vocab.yaml: " + err.Error())
		}
		vocab = v
	})
	return vocab
}

// KnownLanguages returns the registered workflow language names.
func KnownLanguages() []string { return sortedKeys(vocabulary().Languages) }

// KnownServices returns the registered test service names.
func KnownServices() []string { return sortedKeys(vocabulary().Services) }

// KnownApplications returns the registered test engine names.
func KnownApplications() []string { return sortedKeys(vocabulary().Applications) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
