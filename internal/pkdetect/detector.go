// Package pkdetect picks the identifier field out of a set of field names.
package pkdetect

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/i2y/legacybridge/internal/domain"
)

// fallbackPatterns are scanned in order when no field matches "id".
var fallbackPatterns = []string{
	"key", "code", "number", "uuid", "guid", "pk", "primary_key",
	"no", "num", "seq", "recid", "record_id", "rowid",
}

// Oracle is an optional external disambiguator, typically backed by an LLM.
// Suggest returns ok=false to decline.
type Oracle interface {
	Suggest(ctx context.Context, fieldNames []string, hint string) (field string, ok bool, err error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, fieldNames []string, hint string) (string, bool, error)

func (f OracleFunc) Suggest(ctx context.Context, fieldNames []string, hint string) (string, bool, error) {
	return f(ctx, fieldNames, hint)
}

// NoopOracle always declines.
type NoopOracle struct{}

func (NoopOracle) Suggest(context.Context, []string, string) (string, bool, error) {
	return "", false, nil
}

// Detector finds primary keys. The zero value is usable and never consults an oracle.
type Detector struct {
	oracle Oracle
	logger *slog.Logger
}

// New creates a Detector. A nil oracle behaves like NoopOracle.
func New(oracle Oracle, logger *slog.Logger) *Detector {
	if oracle == nil {
		oracle = NoopOracle{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{oracle: oracle, logger: logger.With("component", "pk_detector")}
}

// Detect returns the most likely identifier among fieldNames.
//
// Fields whose name contains the token "id" always win. Otherwise the
// fallback patterns are scanned. A single candidate is returned directly.
// The oracle is asked only when there are zero or several candidates, and
// its answer is accepted only if it names one of fieldNames.
func (d *Detector) Detect(ctx context.Context, fieldNames []string, hint string) string {
	candidates := Candidates(fieldNames)
	switch len(candidates) {
	case 1:
		return candidates[0]
	case 0:
		if field, ok := d.ask(ctx, fieldNames, hint); ok {
			return field
		}
		return domain.DefaultPrimaryKey
	default:
		if field, ok := d.ask(ctx, fieldNames, hint); ok {
			return field
		}
		return candidates[0]
	}
}

func (d *Detector) ask(ctx context.Context, fieldNames []string, hint string) (string, bool) {
	if d == nil || d.oracle == nil || len(fieldNames) == 0 {
		return "", false
	}
	log := d.logger
	if log == nil {
		log = slog.Default()
	}
	field, ok, err := d.oracle.Suggest(ctx, fieldNames, Singularize(hint))
	if err != nil {
		log.Debug("Primary key oracle failed, using heuristic result", slog.Any("error", err))
		return "", false
	}
	if !ok {
		return "", false
	}
	for _, name := range fieldNames {
		if name == field {
			return field, true
		}
	}
	log.Debug("Primary key oracle suggested an unknown field", slog.String("field", field))
	return "", false
}

// Candidates returns the heuristic candidates in input order. If any field
// matches "id" only those fields are returned.
func Candidates(fieldNames []string) []string {
	var ids []string
	for _, name := range fieldNames {
		if MatchesToken(name, "id") {
			ids = append(ids, name)
		}
	}
	if len(ids) > 0 {
		return ids
	}

	var out []string
	for _, name := range fieldNames {
		for _, pattern := range fallbackPatterns {
			if MatchesToken(name, pattern) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// MatchesToken reports whether pattern occurs in name on word boundaries.
// Boundaries are the ends of the name, "_", "-", and a lowercase to
// uppercase camelCase transition. Matching ignores case. Patterns that
// contain "_" must match consecutive words.
func MatchesToken(name, pattern string) bool {
	words := Words(name)
	want := strings.Split(strings.ToLower(pattern), "_")
	if len(want) == 0 || len(words) < len(want) {
		return false
	}
	for i := 0; i+len(want) <= len(words); i++ {
		match := true
		for j, w := range want {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Words splits an identifier into lowercase words.
func Words(name string) []string {
	var (
		words []string
		cur   []rune
		prev  rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for _, r := range name {
		switch {
		case r == '_' || r == '-':
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
		prev = r
	}
	flush()
	return words
}

// Singularize strips common English plural suffixes from a resource name.
func Singularize(name string) string {
	if len(name) <= 3 {
		return name
	}
	switch {
	case strings.HasSuffix(name, "ies") && len(name) > 4:
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "ses") && len(name) > 4:
		return name[:len(name)-2]
	case strings.HasSuffix(name, "s"):
		return name[:len(name)-1]
	}
	return name
}

var pathParamPattern = regexp.MustCompile(`\{([^}]+)\}`)

// KeyFromPathTemplate returns the first path parameter whose name contains
// "id", e.g. "userId" for "/users/{userId}".
func KeyFromPathTemplate(path string) (string, bool) {
	for _, m := range pathParamPattern.FindAllStringSubmatch(path, -1) {
		if strings.Contains(strings.ToLower(m[1]), "id") {
			return m[1], true
		}
	}
	return "", false
}
