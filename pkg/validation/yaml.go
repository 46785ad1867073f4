package validation

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML builds a chain from a YAML mapping of rule names to arguments.
// Rules run in document order.
//
//	extension: [jpg, png]
//	size: [2M, 1K]
//	dimension: [1920, 1080]
func ParseYAML(data []byte) (*Chain, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToParseRules, err)
	}
	if len(doc.Content) == 0 {
		return New()
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping at line %d", ErrFailedToParseRules, root.Line)
	}

	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		var args any
		if err := value.Decode(&args); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFailedToParseRules, key.Value, err)
		}
		entries = append(entries, Named(key.Value, args))
	}
	return New(entries...)
}
