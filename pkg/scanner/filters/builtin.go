package filters

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Names of the stock filters. Scan modes reference these to disable or
// invert individual filters.
const (
	InvalidFileName     = "is_invalid_file"
	BaselineFileName    = "is_baseline_file"
	LineAllowlistedName = "is_line_allowlisted"
	PotentialUUIDName   = "is_potential_uuid"
	LikelyIDStringName  = "is_likely_id_string"
	SequentialName      = "is_sequential_string"
	TemplatedName       = "is_templated_secret"
)

// DefaultChain returns the stock filter set. baselineFile may be empty when
// no baseline is in play.
func DefaultChain(baselineFile string) *Chain {
	return NewChain(
		InvalidFile(),
		BaselineFile(baselineFile),
		LineAllowlisted(),
		PotentialUUID(),
		LikelyIDString(),
		SequentialString(),
		TemplatedSecret(),
	)
}

// InvalidFile suppresses paths that exist but are not regular files, such as
// directories and sockets. Paths absent from the working tree pass through:
// diff scans legitimately reference files that are not checked out.
func InvalidFile() Filter {
	return Filter{
		Name:       InvalidFileName,
		Parameters: []Param{ParamFilename},
		Predicate: func(req Request) (bool, error) {
			info, err := os.Stat(req.Filename)
			if err != nil {
				return false, nil
			}
			return !info.Mode().IsRegular(), nil
		},
	}
}

// BaselineFile suppresses the baseline file itself: it is full of hashes
// that would otherwise trip the entropy detectors.
func BaselineFile(baselineFile string) Filter {
	return Filter{
		Name:       BaselineFileName,
		Parameters: []Param{ParamFilename},
		Predicate: func(req Request) (bool, error) {
			if baselineFile == "" {
				return false, nil
			}
			return filepath.Clean(req.Filename) == filepath.Clean(baselineFile), nil
		},
	}
}

var (
	allowlistInline   = allowlistPattern(`allowlist secret`)
	allowlistNextline = allowlistPattern(`allowlist nextline secret`)
)

// allowlistPattern builds the comment-aware pragma pattern for the common
// comment syntaxes (#, //, /* */, --, <!-- -->, ;, %, ').
func allowlistPattern(directive string) *regexp.Regexp {
	comments := []string{`#`, `//`, `/\*`, `--`, `<!--`, `;`, `%`, `'`}
	return regexp.MustCompile(
		fmt.Sprintf(
			`(?i)(?:%s)[ \t]*pragma: ?%s`,
			strings.Join(comments, "|"),
			directive,
		),
	)
}

// LineAllowlisted suppresses lines carrying an allowlist pragma, either
// inline or on the preceding line via the nextline directive.
func LineAllowlisted() Filter {
	return Filter{
		Name:       LineAllowlistedName,
		Parameters: []Param{ParamLine, ParamContext},
		Predicate: func(req Request) (bool, error) {
			return IsLineAllowlisted(req), nil
		},
	}
}

// IsLineAllowlisted is exposed separately so the allowlist audit mode can
// invert it.
func IsLineAllowlisted(req Request) bool {
	if allowlistInline.MatchString(req.Line) {
		return true
	}
	if req.Context != nil && allowlistNextline.MatchString(req.Context.PreviousLine()) {
		return true
	}
	return false
}

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// PotentialUUID suppresses values shaped like UUIDs; they score high on
// entropy yet are rarely credentials.
func PotentialUUID() Filter {
	return Filter{
		Name:       PotentialUUIDName,
		Parameters: []Param{ParamSecret},
		Predicate: func(req Request) (bool, error) {
			return uuidPattern.MatchString(req.Secret), nil
		},
	}
}

// LikelyIDString suppresses values assigned to id-ish keys on the same line.
func LikelyIDString() Filter {
	return Filter{
		Name:       LikelyIDStringName,
		Parameters: []Param{ParamSecret, ParamLine},
		Predicate: func(req Request) (bool, error) {
			idx := strings.Index(req.Line, req.Secret)
			if idx < 0 {
				return false, fmt.Errorf("secret not present in line")
			}
			prefix := strings.ToLower(strings.TrimRight(req.Line[:idx], ` "':=>[(`))
			for _, key := range []string{"id", "uuid", "guid", "sid"} {
				if strings.HasSuffix(prefix, key) {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

const sequentialRuns = "abcdefghijklmnopqrstuvwxyz0123456789" +
	"01234567890" +
	"qwertyuiopasdfghjklzxcvbnm"

// SequentialString suppresses keyboard-walk and alphabet-run values.
func SequentialString() Filter {
	return Filter{
		Name:       SequentialName,
		Parameters: []Param{ParamSecret},
		Predicate: func(req Request) (bool, error) {
			lowered := strings.ToLower(req.Secret)
			return lowered != "" && strings.Contains(sequentialRuns, lowered), nil
		},
	}
}

var templatedPattern = regexp.MustCompile(`^(\{\{.*\}\}|\$\{.*\}|<[^>]+>|\$\w+)$`)

// TemplatedSecret suppresses placeholder values like {{secret}} or ${VAR}.
func TemplatedSecret() Filter {
	return Filter{
		Name:       TemplatedName,
		Parameters: []Param{ParamSecret},
		Predicate: func(req Request) (bool, error) {
			return templatedPattern.MatchString(req.Secret), nil
		},
	}
}
