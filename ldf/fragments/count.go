package fragments

import (
	"regexp"
	"strconv"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

var digits = regexp.MustCompile(`\d+`)

// CountPredicates are the predicates whose value is the size of a fragment.
var CountPredicates = []string{rdf.VoidTriples, rdf.HydraTotalItems}

// ExtractCount finds the total number of matches of the fragment at
// fragmentURL. The first count triple about the fragment wins; without one
// the metadata is unknown.
func ExtractCount(fragmentURL string, metadata []rdf.Triple) Metadata {
	for _, t := range metadata {
		if !isCountPredicate(t.Predicate) || !rdf.DecodedURIEquals(t.Subject, fragmentURL) {
			continue
		}
		value := t.Object
		if rdf.IsLiteral(value) {
			value = rdf.LiteralValue(value)
		}
		m := digits.FindString(value)
		if m == "" {
			continue
		}
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		return Metadata{TotalTriples: n, Known: true}
	}
	return Metadata{}
}

func isCountPredicate(p string) bool {
	for _, c := range CountPredicates {
		if p == c {
			return true
		}
	}
	return false
}
