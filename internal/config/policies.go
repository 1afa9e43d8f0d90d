package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/darmiel/idgate/internal/core"
)

// PolicyFile is the document format of policies_file.
type PolicyFile struct {
	Policies []core.Policy `yaml:"policies"`
}

// LoadPolicies reads additional policies from a YAML file.
// They are validated when registered with the engine.
func LoadPolicies(path string) ([]core.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return ParsePolicies(data)
}

func ParsePolicies(data []byte) ([]core.Policy, error) {
	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}
	return file.Policies, nil
}
