package pathutils

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	defaultValueSeparatorConstant          = ":-"
	undefinedVariablesTemplateConstant     = "undefined environment variable(s) %s in %q"
	undefinedVariablesSeparatorConstant    = ", "
	emptyExpansionResultTemplateConstant   = "%q expands to an empty string"
	environmentLookupNotConfiguredConstant = "environment lookup not configured"
)

// ErrUndefinedVariable reports a reference to an environment variable that is not set.
var ErrUndefinedVariable = errors.New("undefined environment variable")

// ErrEmptyExpansion reports a path that expands to nothing.
var ErrEmptyExpansion = errors.New("empty path after expansion")

// EnvironmentLookup resolves an environment variable, reporting whether it is set.
type EnvironmentLookup func(name string) (string, bool)

// EnvironmentExpander resolves $VAR, ${VAR} and ${VAR:-default} references followed by a leading tilde.
type EnvironmentExpander struct {
	lookup       EnvironmentLookup
	homeExpander *HomeExpander
}

// NewEnvironmentExpander constructs an expander backed by the process environment.
func NewEnvironmentExpander() *EnvironmentExpander {
	return NewEnvironmentExpanderWithLookup(os.LookupEnv, NewHomeExpander())
}

// NewEnvironmentExpanderWithLookup constructs an expander with custom collaborators.
func NewEnvironmentExpanderWithLookup(lookup EnvironmentLookup, homeExpander *HomeExpander) *EnvironmentExpander {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &EnvironmentExpander{lookup: lookup, homeExpander: homeExpander}
}

// Expand substitutes environment references in rawPath. Every undefined variable without a default is
// reported through ErrUndefinedVariable, and a result that is blank is reported through ErrEmptyExpansion.
func (expander *EnvironmentExpander) Expand(rawPath string) (string, error) {
	if expander == nil || expander.lookup == nil {
		return "", errors.New(environmentLookupNotConfiguredConstant)
	}

	undefinedVariables := map[string]struct{}{}
	var resolveReference func(reference string) string
	resolveReference = func(reference string) string {
		variableName, defaultValue, hasDefault := strings.Cut(reference, defaultValueSeparatorConstant)
		value, isSet := expander.lookup(variableName)
		if isSet && (len(value) > 0 || !hasDefault) {
			return value
		}
		if hasDefault {
			return os.Expand(defaultValue, resolveReference)
		}
		undefinedVariables[variableName] = struct{}{}
		return ""
	}
	expanded := os.Expand(rawPath, resolveReference)

	if len(undefinedVariables) > 0 {
		names := make([]string, 0, len(undefinedVariables))
		for name := range undefinedVariables {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", fmt.Errorf("%w: "+undefinedVariablesTemplateConstant, ErrUndefinedVariable, strings.Join(names, undefinedVariablesSeparatorConstant), rawPath)
	}

	if len(strings.TrimSpace(expanded)) == 0 {
		return "", fmt.Errorf("%w: "+emptyExpansionResultTemplateConstant, ErrEmptyExpansion, rawPath)
	}

	return expander.homeExpander.Expand(expanded), nil
}
