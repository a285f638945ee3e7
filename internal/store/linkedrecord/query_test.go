package linkedrecord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsClause(t *testing.T) {
	assert.Equal(t, `SEARCH("pump", LOWER({Name}))`, containsClause("Name", "Pump"))
}

func TestQuoteLiteralEscapesQuotes(t *testing.T) {
	clause := eqClause("Name", `Acme "North"`)
	assert.Equal(t, `{Name} = "Acme \"North\""`, clause)
}

func TestEqClause(t *testing.T) {
	assert.Equal(t, `{Case Code} = "CM_000001"`, eqClause("Case Code", "CM_000001"))
}

func TestAnyOf(t *testing.T) {
	assert.Equal(t, "", anyOf())
	assert.Equal(t, "", anyOf("", ""))
	assert.Equal(t, "a", anyOf("a"))
	assert.Equal(t, "a", anyOf("", "a", ""))
	assert.Equal(t, "OR(a, b)", anyOf("a", "b"))
}

func TestAllOf(t *testing.T) {
	assert.Equal(t, "", allOf())
	assert.Equal(t, "b", allOf("b", ""))
	assert.Equal(t, "AND(a, b, c)", allOf("a", "b", "c"))
}

func TestIDMembership(t *testing.T) {
	assert.Equal(t, "", idMembership(nil))
	assert.Equal(t, `RECORD_ID() = "rec1"`, idMembership([]string{"rec1"}))
	assert.Equal(t,
		`OR(RECORD_ID() = "rec1", RECORD_ID() = "rec2")`,
		idMembership([]string{"rec1", "rec2"}))
}
