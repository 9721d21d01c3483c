package rdf

import "slices"

// DistinctVariables returns the variables of all patterns in order of
// first appearance.
func DistinctVariables(patterns []Triple) []string {
	var vars []string
	for _, p := range patterns {
		for _, v := range p.Variables() {
			if !slices.Contains(vars, v) {
				vars = append(vars, v)
			}
		}
	}
	return vars
}

type cluster struct {
	triples   []Triple
	variables []string
}

// FindConnectedPatterns partitions a graph pattern into groups that are
// transitively connected through shared variables or blank nodes. Inputs
// with fewer than two patterns are returned as a single group.
func FindConnectedPatterns(patterns []Triple) [][]Triple {
	if len(patterns) <= 1 {
		return [][]Triple{patterns}
	}

	clusters := make([]cluster, len(patterns))
	for i, p := range patterns {
		c := cluster{triples: []Triple{p}}
		for _, term := range p.Terms() {
			if IsVariableOrBlank(term) && !slices.Contains(c.variables, term) {
				c.variables = append(c.variables, term)
			}
		}
		clusters[i] = c
	}

	for {
		common, found := sharedVariable(clusters)
		if !found {
			break
		}
		var rest []cluster
		merged := cluster{}
		for _, c := range clusters {
			if !slices.Contains(c.variables, common) {
				rest = append(rest, c)
				continue
			}
			for _, t := range c.triples {
				if !slices.Contains(merged.triples, t) {
					merged.triples = append(merged.triples, t)
				}
			}
			for _, v := range c.variables {
				if !slices.Contains(merged.variables, v) {
					merged.variables = append(merged.variables, v)
				}
			}
		}
		clusters = append(rest, merged)
	}

	groups := make([][]Triple, len(clusters))
	for i, c := range clusters {
		groups[i] = c.triples
	}
	return groups
}

// sharedVariable returns the first variable, in cluster order, that also
// occurs in a later cluster.
func sharedVariable(clusters []cluster) (string, bool) {
	var all []string
	for _, c := range clusters {
		all = append(all, c.variables...)
	}
	for i, v := range all {
		if slices.Index(all[i+1:], v) >= 0 {
			return v, true
		}
	}
	return "", false
}
