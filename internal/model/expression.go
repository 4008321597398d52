package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// StringExpressionType names the kind of string predicate a StringExpression
// applies. Values are tagged in JSON under the "type" field, lowerCamelCase,
// matching the wire form produced by the original event-gateway service.
type StringExpressionType string

const (
	ExprRegexMatch StringExpressionType = "regexMatch"
	ExprEquals     StringExpressionType = "equals"
	ExprStartsWith StringExpressionType = "startsWith"
	ExprEndsWith   StringExpressionType = "endsWith"
	ExprContains   StringExpressionType = "contains"
)

// StringExpression is a single leaf predicate over a string. Regex
// expressions are compiled eagerly on unmarshal; a malformed pattern is a
// deserialization error, never a runtime panic.
type StringExpression struct {
	Type     StringExpressionType `json:"type"`
	Value    string                `json:"value"`
	compiled *regexp.Regexp
}

func NewEqualsExpression(value string) StringExpression {
	return StringExpression{Type: ExprEquals, Value: value}
}

func NewStartsWithExpression(value string) StringExpression {
	return StringExpression{Type: ExprStartsWith, Value: value}
}

func NewEndsWithExpression(value string) StringExpression {
	return StringExpression{Type: ExprEndsWith, Value: value}
}

func NewContainsExpression(value string) StringExpression {
	return StringExpression{Type: ExprContains, Value: value}
}

func NewRegexMatchExpression(pattern string) (StringExpression, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return StringExpression{}, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return StringExpression{Type: ExprRegexMatch, Value: pattern, compiled: re}, nil
}

// Matches evaluates the predicate against s.
func (e StringExpression) Matches(s string) bool {
	switch e.Type {
	case ExprRegexMatch:
		if e.compiled == nil {
			return false
		}
		return e.compiled.MatchString(s)
	case ExprEquals:
		return s == e.Value
	case ExprStartsWith:
		return strings.HasPrefix(s, e.Value)
	case ExprEndsWith:
		return strings.HasSuffix(s, e.Value)
	case ExprContains:
		return strings.Contains(s, e.Value)
	default:
		return false
	}
}

// Equal compares two expressions by source, never by compiled automaton.
func (e StringExpression) Equal(other StringExpression) bool {
	return e.Type == other.Type && e.Value == other.Value
}

type stringExpressionWire struct {
	Type  StringExpressionType `json:"type"`
	Value string                `json:"value"`
}

func (e *StringExpression) UnmarshalJSON(data []byte) error {
	var wire stringExpressionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	e.Type = wire.Type
	e.Value = wire.Value
	e.compiled = nil
	if wire.Type == ExprRegexMatch {
		re, err := regexp.Compile(wire.Value)
		if err != nil {
			return fmt.Errorf("invalid regex %q: %w", wire.Value, err)
		}
		e.compiled = re
	}
	return nil
}

func (e StringExpression) MarshalJSON() ([]byte, error) {
	return json.Marshal(stringExpressionWire{Type: e.Type, Value: e.Value})
}

// ConditionKind discriminates the recursive Condition sum type.
type ConditionKind string

const (
	ConditionAny ConditionKind = "any"
	ConditionOne ConditionKind = "one"
	ConditionAnd ConditionKind = "and"
	ConditionOr  ConditionKind = "or"
	ConditionNot ConditionKind = "not"
)

// Condition is the boolean predicate tree evaluated against a single string
// (an event's type or version). ANY always matches, ONE delegates to a leaf
// StringExpression, AND/OR/NOT combine sub-conditions with short-circuit
// semantics.
type Condition struct {
	Kind ConditionKind
	One  StringExpression
	And  []Condition
	Or   []Condition
	Not  *Condition
}

func AnyCondition() Condition {
	return Condition{Kind: ConditionAny}
}

func OneCondition(expr StringExpression) Condition {
	return Condition{Kind: ConditionOne, One: expr}
}

func AndCondition(conditions ...Condition) Condition {
	return Condition{Kind: ConditionAnd, And: conditions}
}

func OrCondition(conditions ...Condition) Condition {
	return Condition{Kind: ConditionOr, Or: conditions}
}

func NotCondition(inner Condition) Condition {
	return Condition{Kind: ConditionNot, Not: &inner}
}

// Matches evaluates the condition tree against s, short-circuiting AND at
// the first false and OR at the first true.
func (c Condition) Matches(s string) bool {
	switch c.Kind {
	case ConditionAny:
		return true
	case ConditionOne:
		return c.One.Matches(s)
	case ConditionAnd:
		for _, sub := range c.And {
			if !sub.Matches(s) {
				return false
			}
		}
		return true
	case ConditionOr:
		for _, sub := range c.Or {
			if sub.Matches(s) {
				return true
			}
		}
		return false
	case ConditionNot:
		if c.Not == nil {
			return true
		}
		return !c.Not.Matches(s)
	default:
		return false
	}
}

// Equal compares two condition trees structurally, comparing leaf
// StringExpressions by source rather than compiled form.
func (c Condition) Equal(other Condition) bool {
	if c.Kind != other.Kind {
		return false
	}
	switch c.Kind {
	case ConditionAny:
		return true
	case ConditionOne:
		return c.One.Equal(other.One)
	case ConditionAnd:
		return equalConditionLists(c.And, other.And)
	case ConditionOr:
		return equalConditionLists(c.Or, other.Or)
	case ConditionNot:
		if c.Not == nil || other.Not == nil {
			return c.Not == other.Not
		}
		return c.Not.Equal(*other.Not)
	default:
		return false
	}
}

func equalConditionLists(a, b []Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (c Condition) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ConditionAny:
		return json.Marshal("any")
	case ConditionOne:
		return json.Marshal(c.One)
	case ConditionAnd:
		return json.Marshal(map[string][]Condition{"and": c.And})
	case ConditionOr:
		return json.Marshal(map[string][]Condition{"or": c.Or})
	case ConditionNot:
		return json.Marshal(map[string]*Condition{"not": c.Not})
	default:
		return nil, fmt.Errorf("condition: unknown kind %q", c.Kind)
	}
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		if literal != string(ConditionAny) {
			return fmt.Errorf("condition: unknown literal %q", literal)
		}
		c.Kind = ConditionAny
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("condition: invalid shape: %w", err)
	}

	if raw, ok := obj["and"]; ok {
		var list []Condition
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		c.Kind = ConditionAnd
		c.And = list
		return nil
	}
	if raw, ok := obj["or"]; ok {
		var list []Condition
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		c.Kind = ConditionOr
		c.Or = list
		return nil
	}
	if raw, ok := obj["not"]; ok {
		var inner Condition
		if err := json.Unmarshal(raw, &inner); err != nil {
			return err
		}
		c.Kind = ConditionNot
		c.Not = &inner
		return nil
	}

	var expr StringExpression
	if err := json.Unmarshal(data, &expr); err != nil {
		return fmt.Errorf("condition: not a recognized shape: %w", err)
	}
	c.Kind = ConditionOne
	c.One = expr
	return nil
}
