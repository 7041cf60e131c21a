package site

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type profileFile struct {
	Sites []Profile `yaml:"sites"`
}

// LoadProfiles reads a YAML file of the form
//
//	sites:
//	  - name: mysite
//	    listing_url: https://example.com/list/{page}
//	    pages: [1, 2]
//	    link_xpath: //a[@class="paper"]/@href
//	    fields:
//	      title: //h1/text()
//
// Every profile is validated. Names must be unique.
func LoadProfiles(path string) (map[string]Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProfiles(b)
}

// ParseProfiles decodes profiles from YAML bytes.
func ParseProfiles(b []byte) (map[string]Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse site profiles: %w", err)
	}
	out := make(map[string]Profile, len(f.Sites))
	for _, p := range f.Sites {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("duplicate site profile %q", p.Name)
		}
		out[p.Name] = p
	}
	return out, nil
}

// Registry merges bundled profiles with those loaded from path. File
// profiles replace bundled ones of the same name. An empty path yields the
// bundled set.
func Registry(path string) (map[string]Profile, error) {
	reg := Builtin()
	if path == "" {
		return reg, nil
	}
	loaded, err := LoadProfiles(path)
	if err != nil {
		return nil, err
	}
	for name, p := range loaded {
		reg[name] = p
	}
	return reg, nil
}

// Names returns the sorted keys of a registry.
func Names(reg map[string]Profile) []string {
	names := make([]string, 0, len(reg))
	for n := range reg {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
