// pkg/catalogfile/schema.go
package catalogfile

import "agritour-certification/internal/assessment/catalog"

// File is the YAML form of a question catalog, edited by hand and seeded into the
// assessment_templates table.
type File struct {
	Version     string    `yaml:"version"`
	LastUpdated string    `yaml:"lastUpdated,omitempty"`
	Sections    []Section `yaml:"sections"`
}

type Section struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Kind        string     `yaml:"kind,omitempty"`
	RequiredFor []string   `yaml:"requiredFor,omitempty"`
	AddOn       string     `yaml:"addOn,omitempty"`
	Questions   []Question `yaml:"questions"`
}

type Question struct {
	ID           string         `yaml:"id"`
	Title        string         `yaml:"title"`
	Criteria     string         `yaml:"criteria"`
	Rubric       catalog.Rubric `yaml:"rubric"`
	ApplicableTo []string       `yaml:"applicableTo,omitempty"`
}
