package update

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyTable maps repository id to its configured update-check Policy.
// It is the caller-facing configuration surface: resolvers look up a
// repository's policy here before building a Request.
type PolicyTable struct {
	byRepo   map[string]Policy
	fallback Policy
}

// NewPolicyTable builds an empty PolicyTable that returns fallback for any
// repository with no explicit entry.
func NewPolicyTable(fallback Policy) *PolicyTable {
	return &PolicyTable{byRepo: make(map[string]Policy), fallback: fallback}
}

// Set assigns repoID's policy.
func (t *PolicyTable) Set(repoID string, p Policy) {
	t.byRepo[repoID] = p
}

// PolicyFor returns repoID's configured policy, or the table's fallback if
// none was set.
func (t *PolicyTable) PolicyFor(repoID string) Policy {
	if p, ok := t.byRepo[repoID]; ok {
		return p
	}
	return t.fallback
}

// policyTableFile is the on-disk YAML shape: a default policy string and a
// map of repository id to policy string, in the same grammar ParsePolicy
// accepts.
type policyTableFile struct {
	Default      string            `yaml:"default"`
	Repositories map[string]string `yaml:"repositories"`
}

// LoadPolicyTable reads a YAML policy table from path.
func LoadPolicyTable(path string) (*PolicyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("update: read policy table %s: %w", path, err)
	}

	var f policyTableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("update: parse policy table %s: %w", path, err)
	}

	fallback := Daily
	if f.Default != "" {
		fallback = ParsePolicy(f.Default)
	}

	t := NewPolicyTable(fallback)
	for repoID, policyStr := range f.Repositories {
		t.Set(repoID, ParsePolicy(policyStr))
	}
	return t, nil
}
