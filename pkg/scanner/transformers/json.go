package transformers

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// JSONTransformer re-emits string values at their source lines, quoted. The
// eager variant accepts any filename: plenty of secrets hide in JSON bodies
// stored under unrelated extensions, and the eager pass only runs when the
// default pass came up empty.
type JSONTransformer struct {
	eager bool
}

func NewJSONTransformer() *JSONTransformer {
	return &JSONTransformer{}
}

func NewEagerJSONTransformer() *JSONTransformer {
	return &JSONTransformer{eager: true}
}

func (t *JSONTransformer) ShouldParseFile(filename string) bool {
	if t.eager {
		return true
	}
	return strings.ToLower(filepath.Ext(filename)) == ".json"
}

func (t *JSONTransformer) IsEager() bool {
	return t.eager
}

func (t *JSONTransformer) ParseFile(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsing, err)
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid json", ErrParsing)
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() && !root.IsArray() {
		// A bare scalar is valid JSON but not a config document; declining
		// keeps the eager variant from claiming arbitrary text files.
		return nil, fmt.Errorf("%w: json root is not an object or array", ErrParsing)
	}

	lines := make([]string, lineCount(data))
	emitJSONValue(data, "", root, lines)
	return lines, nil
}

func emitJSONValue(data []byte, key string, value gjson.Result, lines []string) {
	if value.IsObject() || value.IsArray() {
		value.ForEach(func(k, child gjson.Result) bool {
			childKey := key
			if value.IsObject() {
				childKey = k.String()
			}
			emitJSONValue(data, childKey, child, lines)
			return true
		})
		return
	}

	if value.Type != gjson.String {
		return
	}
	emitValue(lines, lineOfOffset(data, value.Index), key, value.String())
}

// lineOfOffset converts a byte offset into a 1-based line number.
func lineOfOffset(data []byte, offset int) int {
	if offset <= 0 || offset > len(data) {
		return 1
	}
	return 1 + bytes.Count(data[:offset], []byte("\n"))
}
