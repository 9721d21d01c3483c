package fragments

import (
	"fmt"
	"strings"

	"github.com/jtacoma/uritemplates"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

var linkTypes = []string{"first", "next", "previous", "last"}

// Controls are the hypermedia controls of a fragment page: links to other
// pages and the search form that addresses fragments by pattern.
type Controls struct {
	Fragment string
	First    string
	Next     string
	Previous string
	Last     string

	template *uritemplates.UriTemplate
	// property IRI -> template variable
	mappings map[string]string
}

// HasSearchForm reports whether fragments can be addressed by pattern.
func (c *Controls) HasSearchForm() bool {
	return c != nil && c.template != nil
}

// SupportsFreeText reports whether the search form maps a free-text query.
func (c *Controls) SupportsFreeText() bool {
	return c.HasSearchForm() && c.mappings[rdf.HydraFreetextQuery] != ""
}

// FragmentURL expands the search form for a pattern. Empty positions are
// left out of the URL.
func (c *Controls) FragmentURL(pattern rdf.Triple) (string, error) {
	if !c.HasSearchForm() {
		return "", fmt.Errorf("fragments: %s does not contain Triple Pattern Fragment hypermedia controls", c.fragment())
	}
	n := pattern.Normalize()
	return c.expand(map[string]string{
		rdf.RDFSubject:   n.Subject,
		rdf.RDFPredicate: n.Predicate,
		rdf.RDFObject:    n.Object,
	})
}

// SubstringURL expands the search form for a free-text query.
func (c *Controls) SubstringURL(s string) (string, error) {
	if !c.SupportsFreeText() {
		return "", fmt.Errorf("fragments: %s does not support free-text queries", c.fragment())
	}
	return c.expand(map[string]string{rdf.HydraFreetextQuery: s})
}

func (c *Controls) expand(values map[string]string) (string, error) {
	vars := make(map[string]interface{}, len(values))
	for property, value := range values {
		name, ok := c.mappings[property]
		if !ok || value == "" {
			continue
		}
		vars[name] = value
	}
	u, err := c.template.Expand(vars)
	if err != nil {
		return "", fmt.Errorf("fragments: expanding search template: %w", err)
	}
	return u, nil
}

func (c *Controls) fragment() string {
	if c == nil {
		return "the fragment"
	}
	return c.Fragment
}

// ExtractControls reads the hypermedia controls from the metadata triples
// of the page at fragmentURL. The deprecated hydra:nextPage style links are
// accepted when the current ones are missing.
func ExtractControls(fragmentURL string, metadata []rdf.Triple) (*Controls, error) {
	// hydra property -> subject -> objects
	data := make(map[string]map[string][]string)
	for _, t := range metadata {
		if !strings.HasPrefix(t.Predicate, rdf.Hydra) {
			continue
		}
		property := strings.TrimPrefix(t.Predicate, rdf.Hydra)
		if data[property] == nil {
			data[property] = make(map[string][]string)
		}
		data[property][t.Subject] = append(data[property][t.Subject], t.Object)
	}

	controls := &Controls{Fragment: fragmentURL}
	links := []*string{&controls.First, &controls.Next, &controls.Previous, &controls.Last}
	for i, property := range linkTypes {
		targets := data[property][fragmentURL]
		if len(targets) == 0 {
			targets = data[property+"Page"][fragmentURL]
		}
		if len(targets) > 0 {
			*links[i] = targets[0]
		}
	}

	forms := data["search"]
	if len(forms) == 0 {
		return controls, nil
	}
	if len(forms) != 1 {
		return nil, fmt.Errorf("fragments: expected 1 hydra:search in %s, found %d", fragmentURL, len(forms))
	}
	var form string
	for _, objects := range forms {
		form = objects[0]
	}

	templates := data["template"][form]
	if len(templates) != 1 {
		return nil, fmt.Errorf("fragments: expected 1 hydra:template for %s, found %d", form, len(templates))
	}
	tmpl, err := uritemplates.Parse(lexical(templates[0]))
	if err != nil {
		return nil, fmt.Errorf("fragments: invalid search template for %s: %w", form, err)
	}

	mappings := data["mapping"][form]
	if len(mappings) != 3 && len(mappings) != 4 {
		return nil, fmt.Errorf("fragments: expected 3 hydra:mapping for %s, found %d", form, len(mappings))
	}
	controls.template = tmpl
	controls.mappings = make(map[string]string, len(mappings))
	for _, mapping := range mappings {
		variables := data["variable"][mapping]
		properties := data["property"][mapping]
		if len(variables) == 0 {
			return nil, fmt.Errorf("fragments: expected a hydra:variable for %s", mapping)
		}
		if len(properties) == 0 {
			return nil, fmt.Errorf("fragments: expected a hydra:property for %s", mapping)
		}
		controls.mappings[properties[0]] = lexical(variables[0])
	}
	return controls, nil
}

func lexical(term string) string {
	if rdf.IsLiteral(term) {
		return rdf.LiteralValue(term)
	}
	return term
}
