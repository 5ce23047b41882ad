// Package transformers converts structured files into scannable logical
// lines, with raw text as the universal fallback.
package transformers

import (
	"errors"
	"io"

	"github.com/rs/zerolog/log"
)

// ErrParsing is returned by a transformer to decline a file, telling the
// selector to try the next one.
var ErrParsing = errors.New("transformers: file could not be parsed")

// Transformer parses one family of file formats into logical lines.
//
// Eager transformers attempt deeper or more speculative parses and only run
// when the caller explicitly retries in eager mode after a fruitless default
// pass.
type Transformer interface {
	ShouldParseFile(filename string) bool
	IsEager() bool
	ParseFile(r io.Reader) ([]string, error)
}

// Registry holds the transformers for one process, in stable priority order.
type Registry struct {
	transformers []Transformer
}

func NewRegistry(transformers ...Transformer) *Registry {
	return &Registry{transformers: transformers}
}

// DefaultRegistry returns the stock transformer set: YAML and env-style
// parsing by filename for the default pass, and try-anything JSON and
// config parses for the eager pass.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewYAMLTransformer(),
		NewEnvTransformer(),
		NewJSONTransformer(),
		NewEagerJSONTransformer(),
		NewEagerEnvTransformer(),
	)
}

// Transformers returns the registered transformers in order.
func (r *Registry) Transformers() []Transformer {
	return r.transformers
}

// Transform tries each transformer whose filename predicate accepts the file
// and whose eagerness matches the requested mode. The stream position is
// restored after every attempt, success or not. A nil result means no
// transformer applied and the caller should fall back to raw lines.
func (r *Registry) Transform(filename string, f io.ReadSeeker, eager bool) []string {
	for _, t := range r.transformers {
		if !t.ShouldParseFile(filename) || t.IsEager() != eager {
			continue
		}

		lines, err := t.ParseFile(f)
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			log.Warn().Err(seekErr).Str("filename", filename).Msg("Failed rewinding file after transform attempt")
			return nil
		}

		if err != nil {
			log.Trace().Err(err).Str("filename", filename).Msg("Transformer declined file")
			continue
		}
		return lines
	}
	return nil
}
