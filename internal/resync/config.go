// Package resync implements table-level administrative resynchronization of
// denormalized aggregate fields: every parent row of a table gets its
// aggregate recomputed from the current eligible children, regardless of
// what the incremental engine believes. Used for disaster recovery and
// schema migration.
package resync

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/denorm"
)

// Spec describes one aggregate field at the table level, the way the host
// declared it to the engine. EligibleWhere is the descriptor's query-side
// filter as a literal SQL fragment over child columns.
type Spec struct {
	Name           string      `yaml:"name"`
	ParentTable    string      `yaml:"parent_table"`
	ParentKey      string      `yaml:"parent_key"`
	TargetField    string      `yaml:"target_field"`
	Kind           denorm.Kind `yaml:"kind"`
	ChildTable     string      `yaml:"child_table"`
	ParentRefField string      `yaml:"parent_ref_field"`
	SourceField    string      `yaml:"source_field"`
	EligibleWhere  string      `yaml:"eligible_where"`
}

// Config is the denormctl YAML file.
type Config struct {
	Aggregates  []Spec `yaml:"aggregates"`
	Concurrency int    `yaml:"concurrency"`
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	const op = "resync.load"
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, denorm.Wrap(denorm.CodeConfig, op, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, denorm.Wrap(denorm.CodeConfig, op, err)
	}
	if len(cfg.Aggregates) == 0 {
		return nil, denorm.NewError(denorm.CodeConfig, op, "config declares no aggregates", nil)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	for i := range cfg.Aggregates {
		spec := &cfg.Aggregates[i]
		if spec.ParentKey == "" {
			spec.ParentKey = "id"
		}
		if spec.Name == "" {
			spec.Name = fmt.Sprintf("%s.%s", spec.ParentTable, spec.TargetField)
		}
		if err := spec.validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func (s *Spec) validate() error {
	const op = "resync.config"
	for _, ident := range []struct {
		label string
		value string
	}{
		{"parent_table", s.ParentTable},
		{"parent_key", s.ParentKey},
		{"target_field", s.TargetField},
		{"child_table", s.ChildTable},
		{"parent_ref_field", s.ParentRefField},
	} {
		if !identPattern.MatchString(ident.value) {
			return denorm.NewError(denorm.CodeConfig, op,
				fmt.Sprintf("aggregate %q: %s %q is not a valid identifier", s.Name, ident.label, ident.value), nil)
		}
	}
	if s.Kind < denorm.KindCount || s.Kind > denorm.KindMax {
		return denorm.NewError(denorm.CodeConfig, op,
			fmt.Sprintf("aggregate %q: missing or unsupported kind", s.Name), nil)
	}
	if s.Kind.NeedsSource() && !identPattern.MatchString(s.SourceField) {
		return denorm.NewError(denorm.CodeConfig, op,
			fmt.Sprintf("aggregate %q: %s requires a source_field", s.Name, s.Kind), nil)
	}
	if strings.Contains(s.EligibleWhere, ";") {
		return denorm.NewError(denorm.CodeConfig, op,
			fmt.Sprintf("aggregate %q: eligible_where must be a single condition", s.Name), nil)
	}
	return nil
}
