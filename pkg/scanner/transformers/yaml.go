package transformers

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLTransformer re-emits scalar values at their source lines, quoted, so
// that the entropy detectors see them the same way regardless of how the
// YAML author quoted them.
type YAMLTransformer struct{}

func NewYAMLTransformer() *YAMLTransformer {
	return &YAMLTransformer{}
}

func (t *YAMLTransformer) ShouldParseFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (t *YAMLTransformer) IsEager() bool {
	return false
}

func (t *YAMLTransformer) ParseFile(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsing, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsing, err)
	}

	lines := make([]string, lineCount(data))
	emitYAMLNode(&root, "", lines)
	return lines, nil
}

func emitYAMLNode(node *yaml.Node, key string, lines []string) {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			emitYAMLNode(child, "", lines)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			emitYAMLNode(node.Content[i+1], node.Content[i].Value, lines)
		}
	case yaml.SequenceNode:
		for _, child := range node.Content {
			emitYAMLNode(child, key, lines)
		}
	case yaml.ScalarNode:
		emitValue(lines, node.Line, key, node.Value)
	}
}

// emitValue appends `key: "value"` to the 1-based line it came from.
// Multiple values from one source line share that line.
func emitValue(lines []string, line int, key, value string) {
	if line < 1 || line > len(lines) || value == "" {
		return
	}

	entry := fmt.Sprintf("%q", value)
	if key != "" {
		entry = fmt.Sprintf("%s: %q", key, value)
	}
	if lines[line-1] != "" {
		entry = lines[line-1] + " " + entry
	}
	lines[line-1] = entry
}

func lineCount(data []byte) int {
	n := bytes.Count(data, []byte("\n"))
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		n++
	}
	return n
}
