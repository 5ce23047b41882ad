package transformers

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// EnvTransformer normalizes KEY=VALUE style files (dotenv, ini, properties)
// into quoted assignments, one per source line, so values picked up unquoted
// still reach the entropy detectors. The eager variant accepts any filename
// and only runs on the retry pass: assignment-shaped content hides under all
// sorts of extensions.
type EnvTransformer struct {
	eager bool
}

func NewEnvTransformer() *EnvTransformer {
	return &EnvTransformer{}
}

func NewEagerEnvTransformer() *EnvTransformer {
	return &EnvTransformer{eager: true}
}

func (t *EnvTransformer) ShouldParseFile(filename string) bool {
	if t.eager {
		return true
	}
	base := strings.ToLower(filepath.Base(filename))
	if strings.HasPrefix(base, ".env") || base == "environment" {
		return true
	}
	switch filepath.Ext(base) {
	case ".env", ".ini", ".cfg", ".conf", ".properties":
		return true
	}
	return false
}

func (t *EnvTransformer) IsEager() bool {
	return t.eager
}

// ParseFile parses line by line so source line numbers survive, which the
// audit reconciliation depends on. Lines that are not assignments (comments,
// ini section headers, continuations) become empty lines.
func (t *EnvTransformer) ParseFile(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := []string{}
	parsed := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		entry := ""
		if line != "" && !strings.HasPrefix(line, "#") {
			if env, err := godotenv.Unmarshal(line); err == nil && len(env) > 0 {
				keys := make([]string, 0, len(env))
				for k := range env {
					keys = append(keys, k)
				}
				sort.Strings(keys)

				parts := make([]string, 0, len(keys))
				for _, k := range keys {
					if env[k] == "" {
						continue
					}
					parts = append(parts, fmt.Sprintf("%s: %q", k, env[k]))
				}
				entry = strings.Join(parts, " ")
				if entry != "" {
					parsed++
				}
			}
		}
		lines = append(lines, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsing, err)
	}

	if parsed == 0 {
		return nil, fmt.Errorf("%w: no assignments found", ErrParsing)
	}
	return lines, nil
}
