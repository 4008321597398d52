package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringExpression_Matches(t *testing.T) {
	equals := NewEqualsExpression("event_one")
	assert.True(t, equals.Matches("event_one"))
	assert.False(t, equals.Matches("event_two"))

	startsWith := NewStartsWithExpression("user.")
	assert.True(t, startsWith.Matches("user.created"))
	assert.False(t, startsWith.Matches("order.created"))

	endsWith := NewEndsWithExpression(".created")
	assert.True(t, endsWith.Matches("user.created"))

	contains := NewContainsExpression("click")
	assert.True(t, contains.Matches("user.clicked"))

	regex, err := NewRegexMatchExpression("^user\\.[a-z]+$")
	require.NoError(t, err)
	assert.True(t, regex.Matches("user.created"))
	assert.False(t, regex.Matches("user.Created"))
}

func TestNewRegexMatchExpression_InvalidPattern(t *testing.T) {
	_, err := NewRegexMatchExpression("(unterminated")
	require.Error(t, err)
}

func TestCondition_Matches(t *testing.T) {
	any := AnyCondition()
	assert.True(t, any.Matches("anything"))

	one := OneCondition(NewEqualsExpression("x"))
	assert.True(t, one.Matches("x"))
	assert.False(t, one.Matches("y"))

	and := AndCondition(
		OneCondition(NewStartsWithExpression("t")),
		OneCondition(NewEqualsExpression("t")),
	)
	assert.True(t, and.Matches("t"))
	assert.False(t, and.Matches("tt"))

	or := OrCondition(
		OneCondition(NewEqualsExpression("a")),
		OneCondition(NewEqualsExpression("b")),
	)
	assert.True(t, or.Matches("a"))
	assert.True(t, or.Matches("b"))
	assert.False(t, or.Matches("c"))

	not := NotCondition(OneCondition(NewEqualsExpression("a")))
	assert.False(t, not.Matches("a"))
	assert.True(t, not.Matches("b"))
}

func TestCondition_JSON_Any(t *testing.T) {
	data, err := json.Marshal(AnyCondition())
	require.NoError(t, err)
	assert.Equal(t, `"any"`, string(data))

	var decoded Condition
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ConditionAny, decoded.Kind)
}

func TestCondition_JSON_OneIsUntagged(t *testing.T) {
	cond := OneCondition(NewEqualsExpression("t"))
	data, err := json.Marshal(cond)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"equals","value":"t"}`, string(data))

	var decoded Condition
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ConditionOne, decoded.Kind)
	assert.True(t, decoded.One.Equal(cond.One))
}

func TestCondition_JSON_AndOrNot(t *testing.T) {
	re, err := NewRegexMatchExpression("^t.*")
	require.NoError(t, err)
	cond := AndCondition(OneCondition(re), OneCondition(NewEqualsExpression("t")))

	data, err := json.Marshal(cond)
	require.NoError(t, err)
	assert.JSONEq(t, `{"and":[{"type":"regexMatch","value":"^t.*"},{"type":"equals","value":"t"}]}`, string(data))

	var decoded Condition
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equal(cond))

	orData, err := json.Marshal(OrCondition(OneCondition(NewEqualsExpression("a"))))
	require.NoError(t, err)
	assert.JSONEq(t, `{"or":[{"type":"equals","value":"a"}]}`, string(orData))

	notCond := NotCondition(OneCondition(NewEqualsExpression("a")))
	notData, err := json.Marshal(notCond)
	require.NoError(t, err)
	assert.JSONEq(t, `{"not":{"type":"equals","value":"a"}}`, string(notData))

	var decodedNot Condition
	require.NoError(t, json.Unmarshal(notData, &decodedNot))
	assert.True(t, decodedNot.Equal(notCond))
}

func TestCondition_RoundTripPreservesMatches(t *testing.T) {
	cond := OrCondition(
		OneCondition(NewEqualsExpression("a")),
		AndCondition(OneCondition(NewStartsWithExpression("b")), NotCondition(OneCondition(NewEqualsExpression("bx")))),
	)
	data, err := json.Marshal(cond)
	require.NoError(t, err)

	var decoded Condition
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, s := range []string{"a", "b", "bx", "by", "z"} {
		assert.Equal(t, cond.Matches(s), decoded.Matches(s), "mismatch for %q", s)
	}
}
