package languages

import (
	"fmt"
	"sort"
	"strings"
)

// UnknownLanguageError reports a benchmark language no implementation claims.
type UnknownLanguageError struct {
	Language string
}

func (e *UnknownLanguageError) Error() string {
	return fmt.Sprintf("%s not a known implementation", e.Language)
}

var registry = map[string]Implementation{}

func register(impl Implementation) {
	for _, alias := range impl.Aliases() {
		registry[alias] = impl
	}
}

func init() {
	register(C{})
	register(Cpp{})
	register(Rust{})
	register(Golang{})
	register(Java{})
	register(CSharp{})
}

// Lookup resolves a spec-facing language name to its implementation. Matching
// is case insensitive and ignores surrounding whitespace.
func Lookup(language string) (Implementation, error) {
	impl, ok := registry[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return nil, &UnknownLanguageError{Language: language}
	}
	return impl, nil
}

// Names lists every registered alias, sorted for stable help output.
func Names() []string {
	names := make([]string, 0, len(registry))
	for alias := range registry {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}
