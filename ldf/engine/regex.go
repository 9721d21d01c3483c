package engine

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// regex metacharacters a substring search cannot express
var regexMeta = regexp.MustCompile(`[\\.^$|\[(!?*+{]`)

// RegexHint is a FILTER regex(?v, "literal") on a group whose pattern is a
// plain substring. The substring fragment of the server can then produce the
// candidate values of ?v directly.
type RegexHint struct {
	Variable        string
	Substring       string
	CaseInsensitive bool
}

// NewRegexHint creates a hint for regex(variable, pattern, flags). It
// reports false when the regex cannot be answered by a substring search.
func NewRegexHint(variable, pattern, flags string) (RegexHint, bool) {
	if !rdf.IsVariable(variable) || pattern == "" || regexMeta.MatchString(pattern) {
		return RegexHint{}, false
	}
	return RegexHint{
		Variable:        variable,
		Substring:       pattern,
		CaseInsensitive: strings.Contains(flags, "i"),
	}, true
}

func (h RegexHint) String() string {
	return "{substring: " + h.Substring + " → " + h.Variable + "}"
}

// NewRegexIterator binds the hint's variable to every distinct object of
// the substring fragment. When the variable is already bound, only the
// inflow bindings whose value occurs in the fragment pass.
func NewRegexIterator(parent Bindings, hint RegexHint, opts Options) *iterator.MultiTransform[rdf.Bindings, rdf.Bindings] {
	sched := parent.Scheduler()
	mopts := opts.multiTransform()
	logger := opts.logger()
	mopts.TransformerError = func(_ rdf.Bindings, err error) error {
		logger.Warn("substring fragment failed, continuing without it",
			zap.String("substring", hint.Substring), zap.Error(err))
		return nil
	}
	create := func(bindings rdf.Bindings) (Bindings, error) {
		fragment := opts.Client.FragmentBySubstring(hint.Substring)
		matched := make(map[string]bool)
		bound, isBound := bindings[hint.Variable]
		return iterator.NewTransform(sched, fragment, func(triple rdf.Triple, push func(rdf.Bindings), done func()) error {
			value := triple.Object
			switch {
			case matched[value]:
			case isBound && bound != value:
			default:
				matched[value] = true
				extended := bindings.Clone()
				extended[hint.Variable] = value
				push(extended)
			}
			done()
			return nil
		}, iterator.TransformOptions[rdf.Bindings]{}), nil
	}
	return iterator.NewMultiTransform(parent, create, mopts)
}
