package linkedrecord

import (
	"fmt"
	"strings"
)

// Filter formula helpers. The record store exposes a small expression
// language: this file builds the disjunctions of substring-search
// predicates the filter/pagination emulation relies on, quoting caller
// input so a search term can never break out of its string literal.

func quoteLiteral(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// containsClause matches records whose field contains the term,
// case-insensitively
func containsClause(field, term string) string {
	return fmt.Sprintf("SEARCH(%s, LOWER({%s}))", quoteLiteral(strings.ToLower(term)), field)
}

// prefixClause matches records whose field starts with the term
func prefixClause(field, term string) string {
	return fmt.Sprintf("SEARCH(%s, {%s}) = 1", quoteLiteral(term), field)
}

// eqClause matches records whose field equals the value exactly
func eqClause(field, value string) string {
	return fmt.Sprintf("{%s} = %s", field, quoteLiteral(value))
}

// idClause matches a record by its store-assigned id
func idClause(id string) string {
	return fmt.Sprintf("RECORD_ID() = %s", quoteLiteral(id))
}

// anyOf joins clauses into a disjunction
func anyOf(clauses ...string) string {
	filtered := clauses[:0:0]
	for _, c := range clauses {
		if c != "" {
			filtered = append(filtered, c)
		}
	}
	switch len(filtered) {
	case 0:
		return ""
	case 1:
		return filtered[0]
	default:
		return "OR(" + strings.Join(filtered, ", ") + ")"
	}
}

// allOf joins clauses into a conjunction
func allOf(clauses ...string) string {
	filtered := clauses[:0:0]
	for _, c := range clauses {
		if c != "" {
			filtered = append(filtered, c)
		}
	}
	switch len(filtered) {
	case 0:
		return ""
	case 1:
		return filtered[0]
	default:
		return "AND(" + strings.Join(filtered, ", ") + ")"
	}
}

// idMembership builds an id-membership disjunction, the second phase of a
// cross-entity search
func idMembership(ids []string) string {
	clauses := make([]string, len(ids))
	for i, id := range ids {
		clauses[i] = idClause(id)
	}
	return anyOf(clauses...)
}
