// Package manifest maps test names to modifier specs declared in YAML.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"yqhp/multitest/pkg/modifier"
)

// Manifest 测试修饰声明文件
type Manifest struct {
	// Defaults fill parameters of modifiers that a test declares without
	// values. They never add a modifier the test did not declare.
	Defaults modifier.Spec `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// Tests maps a test name, or a path.Match pattern, to its modifiers.
	// path.Match never lets '*' cross '/', so "TestX*" does not match the
	// subtest "TestX/case"; use "TestX/*" for subtests.
	Tests map[string]modifier.Spec `yaml:"tests" json:"tests"`
}

// Parse decodes a manifest from YAML.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Tests == nil {
		m.Tests = make(map[string]modifier.Spec)
	}
	return m, nil
}

// Load reads and parses a manifest file.
func Load(filename string) (*Manifest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", filename, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// Marshal encodes the manifest back to YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Names returns the declared entries in lexical order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Tests))
	for name := range m.Tests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves the spec for a test name. An exact entry wins over
// patterns; among matching patterns the longest wins, ties broken
// lexically. The returned spec has defaults applied and is normalized. A nil
// manifest has no entries.
func (m *Manifest) Lookup(name string) (modifier.Spec, bool) {
	if m == nil {
		return modifier.Spec{}, false
	}
	key, ok := m.match(name)
	if !ok {
		return modifier.Spec{}, false
	}
	return m.resolve(m.Tests[key]), true
}

// Resolved returns every entry with defaults applied, keyed by entry name.
func (m *Manifest) Resolved() map[string]modifier.Spec {
	out := make(map[string]modifier.Spec, len(m.Tests))
	for name, s := range m.Tests {
		out[name] = m.resolve(s)
	}
	return out
}

func (m *Manifest) match(name string) (string, bool) {
	if _, ok := m.Tests[name]; ok && !IsPattern(name) {
		return name, true
	}

	best := ""
	found := false
	for _, key := range m.Names() {
		if !IsPattern(key) {
			continue
		}
		ok, err := path.Match(key, name)
		if err != nil || !ok {
			continue
		}
		// Names() is sorted, so the first of equal length wins
		if !found || len(key) > len(best) {
			best, found = key, true
		}
	}
	return best, found
}

func (m *Manifest) resolve(s modifier.Spec) modifier.Spec {
	d := m.Defaults
	var out modifier.Spec
	if s.Retry != nil {
		r := *s.Retry
		if r.Count == 0 && d.Retry != nil {
			r.Count = d.Retry.Count
		}
		out.Retry = &r
	}
	if s.Repeat != nil {
		r := *s.Repeat
		if r.Count == 0 && d.Repeat != nil {
			r.Count = d.Repeat.Count
		}
		out.Repeat = &r
	}
	if s.Parallel != nil {
		p := *s.Parallel
		if d.Parallel != nil {
			if p.Count == 0 {
				p.Count = d.Parallel.Count
			}
			if p.Timeout == nil && d.Parallel.Timeout != nil {
				timeout := *d.Parallel.Timeout
				p.Timeout = &timeout
			}
		}
		out.Parallel = &p
	}
	return out.Normalize()
}

// Validate checks pattern syntax and every resolved entry.
func (m *Manifest) Validate() error {
	var errs modifier.ValidationErrors
	for _, name := range m.Names() {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, modifier.ValidationError{Field: "tests", Message: "empty test name"})
			continue
		}
		if IsPattern(name) {
			if _, err := path.Match(name, ""); err != nil {
				errs = append(errs, modifier.ValidationError{Field: "tests." + name, Message: err.Error()})
				continue
			}
		}
		if err := m.resolve(m.Tests[name]).Validate(); err != nil {
			var verrs modifier.ValidationErrors
			if errors.As(err, &verrs) {
				for _, v := range verrs {
					v.Field = "tests." + name + "." + v.Field
					errs = append(errs, v)
				}
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// IsPattern reports whether name contains path.Match metacharacters.
func IsPattern(name string) bool {
	return strings.ContainsAny(name, "*?[")
}
