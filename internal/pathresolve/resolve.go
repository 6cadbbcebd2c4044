// Package pathresolve substitutes {param} placeholders in path templates.
package pathresolve

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// ErrMissingParam is wrapped by every MissingParamError.
var ErrMissingParam = errors.New("missing path parameter")

// MissingParamError names the first placeholder without a value.
type MissingParamError struct {
	Name     string
	Template string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("Missing path parameter: %s", e.Name)
}

func (e *MissingParamError) Unwrap() error { return ErrMissingParam }

// Params lists the placeholder names of template in order of appearance.
func Params(template string) []string {
	matches := placeholder.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Resolve replaces every {name} in template with params[name].
// Values are path-escaped. All names are checked before any substitution.
func Resolve(template string, params map[string]string) (string, error) {
	for _, name := range Params(template) {
		if _, ok := params[name]; !ok {
			return "", &MissingParamError{Name: name, Template: template}
		}
	}
	return placeholder.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		return url.PathEscape(params[name])
	}), nil
}
