package skillgraph

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadCatalog reads a YAML catalog file. The result is not validated;
// pass it to New.
//
//	version: v1.1.0
//	skills:
//	  - id: visual-working-memory
//	    name: Visual Working Memory
//	    domain: memory
//	games:
//	  - id: symbol-recall
//	    name: Symbol Recall
//	    skills: [visual-working-memory, associative-memory]
//	    intensity: medium
//	    typical_minutes: 5
func LoadCatalog(path string) (Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var cat Catalog
	if err := k.UnmarshalWithConf("", &cat, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return cat, nil
}

// Load builds a Registry from the catalog file at path, or from the
// built-in catalog when path is empty.
func Load(path string, opts ...Option) (*Registry, error) {
	if path == "" {
		return New(DefaultCatalog(), opts...)
	}
	cat, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return New(cat, opts...)
}
