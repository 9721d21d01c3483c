package sparql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wbrown/janus-ldf/ldf/rdf"
)

// ParseAlgebraJSON loads a query from the JSON algebra of the sparqljs
// parser. Terms are expected in its string form: IRIs bare, literals as
// "v"@lang or "v"^^datatype, variables as ?v.
func ParseAlgebraJSON(data []byte) (*Query, error) {
	if !gjson.ValidBytes(data) {
		return nil, &InvalidQueryError{Query: string(data), Err: errors.New("invalid JSON algebra")}
	}
	root := gjson.ParseBytes(data)
	q, err := algebraQuery(root)
	if err != nil {
		return nil, &UnsupportedQueryError{Query: string(data), Err: err}
	}
	return q, nil
}

func algebraQuery(root gjson.Result) (*Query, error) {
	if t := root.Get("type"); t.Exists() && t.String() != "query" {
		return nil, fmt.Errorf("expected a query, got %s", t.String())
	}
	q := &Query{
		Type:     QueryType(strings.ToUpper(root.Get("queryType").String())),
		Distinct: root.Get("distinct").Bool() || root.Get("reduced").Bool(),
		Offset:   int(root.Get("offset").Int()),
		Limit:    -1,
		Base:     root.Get("base").String(),
		Prefixes: make(map[string]string),
	}
	switch q.Type {
	case Select, Construct, Describe, Ask:
	default:
		return nil, fmt.Errorf("no iterator available for query type: %s", q.Type)
	}
	if limit := root.Get("limit"); limit.Exists() {
		q.Limit = int(limit.Int())
	}
	root.Get("prefixes").ForEach(func(k, v gjson.Result) bool {
		q.Prefixes[k.String()] = v.String()
		return true
	})

	for _, v := range root.Get("variables").Array() {
		if v.Type != gjson.String {
			return nil, errors.New("projected expressions are not supported")
		}
		q.Variables = append(q.Variables, v.String())
	}
	for _, group := range []string{"group", "having", "values"} {
		if root.Get(group).Exists() {
			return nil, fmt.Errorf("%s is not supported", strings.ToUpper(group))
		}
	}

	var err error
	if q.Where, err = algebraGroups(root.Get("where")); err != nil {
		return nil, err
	}
	if q.Template, err = algebraTriples(root.Get("template")); err != nil {
		return nil, err
	}
	for _, o := range root.Get("order").Array() {
		expr, err := algebraExpression(o.Get("expression"))
		if err != nil {
			return nil, err
		}
		q.Order = append(q.Order, OrderKey{Expression: expr, Descending: o.Get("descending").Bool()})
	}
	return q, nil
}

func algebraGroups(list gjson.Result) ([]Group, error) {
	var groups []Group
	for _, g := range list.Array() {
		group := Group{Type: GroupType(g.Get("type").String())}
		var err error
		switch group.Type {
		case GroupBGP:
			group.Triples, err = algebraTriples(g.Get("triples"))
		case GroupGroup, GroupOptional, GroupUnion:
			group.Patterns, err = algebraGroups(g.Get("patterns"))
		case GroupFilter:
			var expr Expression
			expr, err = algebraExpression(g.Get("expression"))
			group.Expression = &expr
		}
		// other types are rejected when the query is assembled
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func algebraTriples(list gjson.Result) ([]rdf.Triple, error) {
	var triples []rdf.Triple
	for _, t := range list.Array() {
		predicate := t.Get("predicate")
		if predicate.Type != gjson.String {
			return nil, errors.New("property paths are not supported")
		}
		triple := rdf.NewTriple(t.Get("subject").String(), predicate.String(), t.Get("object").String())
		triple.Graph = t.Get("graph").String()
		triples = append(triples, triple)
	}
	return triples, nil
}

func algebraExpression(e gjson.Result) (Expression, error) {
	if e.Type == gjson.String {
		return Term(e.String()), nil
	}
	var name string
	switch t := e.Get("type").String(); t {
	case "operation":
		name = e.Get("operator").String()
	case "functionCall":
		name = e.Get("function").String()
	default:
		return Expression{}, fmt.Errorf("unsupported expression type: %s", t)
	}
	var args []Expression
	for _, a := range e.Get("args").Array() {
		// IN and NOT IN carry their list as a nested array
		if a.IsArray() {
			for _, item := range a.Array() {
				arg, err := algebraExpression(item)
				if err != nil {
					return Expression{}, err
				}
				args = append(args, arg)
			}
			continue
		}
		arg, err := algebraExpression(a)
		if err != nil {
			return Expression{}, err
		}
		args = append(args, arg)
	}
	if !strings.Contains(name, ":") {
		// "not in" becomes notin; function IRIs keep their case
		name = strings.ReplaceAll(strings.ToLower(name), " ", "")
	}
	return Operation(name, args...), nil
}
