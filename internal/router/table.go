package router

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed routes.yaml
var defaultRoutes []byte

// Table is the static route configuration.
type Table struct {
	Login      string            `yaml:"login"`
	NotFound   string            `yaml:"notFound"`
	Public     []string          `yaml:"public"`
	Dashboards map[string]string `yaml:"dashboards"`
	Prefixes   map[string]string `yaml:"prefixes"`
	Views      map[string]string `yaml:"views"`
}

// DefaultTable returns the embedded route table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultRoutes)
}

// ParseTable decodes and checks a YAML route table.
func ParseTable(raw []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse routes: %w", err)
	}
	if t.Login == "" || t.NotFound == "" {
		return nil, fmt.Errorf("parse routes: login and notFound are required")
	}
	for role, prefix := range t.Prefixes {
		dash, ok := t.Dashboards[role]
		if !ok {
			return nil, fmt.Errorf("parse routes: role %q has no dashboard", role)
		}
		if !strings.HasPrefix(dash, prefix+"/") {
			return nil, fmt.Errorf("parse routes: dashboard %s is outside prefix %s", dash, prefix)
		}
	}
	return &t, nil
}

func (t *Table) isPublic(path string) bool {
	for _, p := range t.Public {
		if p == path {
			return true
		}
	}
	return false
}

// roleOf returns the role whose prefix owns path.
func (t *Table) roleOf(path string) (string, bool) {
	for role, prefix := range t.Prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return role, true
		}
	}
	return "", false
}

// viewFor maps a path to its view, deriving a name for unmapped sub-paths:
// /admin/reports/monthly becomes admin-reports-monthly.
func (t *Table) viewFor(path string) string {
	if v, ok := t.Views[path]; ok {
		return v
	}
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
}
