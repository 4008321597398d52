package model

import (
	"encoding/json"
	"fmt"
)

const topicMaxLength = 255

// TopicValidationErrorKind enumerates the ways a candidate topic string can
// fail construction.
type TopicValidationErrorKind string

const (
	TopicErrEmpty             TopicValidationErrorKind = "empty"
	TopicErrTooLong           TopicValidationErrorKind = "tooLong"
	TopicErrInvalidCharacters TopicValidationErrorKind = "invalidCharacters"
)

// TopicValidationError reports why a string could not become a Topic.
type TopicValidationError struct {
	Kind    TopicValidationErrorKind
	Length  int    // set for TooLong
	Invalid string // set for InvalidCharacters: the offending characters, in order of first appearance
}

func (e *TopicValidationError) Error() string {
	switch e.Kind {
	case TopicErrEmpty:
		return "topic must not be empty"
	case TopicErrTooLong:
		return fmt.Sprintf("topic too long: %d bytes (max %d)", e.Length, topicMaxLength)
	case TopicErrInvalidCharacters:
		return fmt.Sprintf("topic contains invalid characters: %q", e.Invalid)
	default:
		return "invalid topic"
	}
}

// Topic is a validated destination name. It is non-empty, at most 255 bytes,
// and restricted to [A-Za-z0-9._-]. It serializes transparently as a plain
// JSON string.
type Topic struct {
	value string
}

func isTopicChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '.' || c == '-' || c == '_':
		return true
	default:
		return false
	}
}

// NewTopic validates s and returns a Topic, or a *TopicValidationError.
func NewTopic(s string) (Topic, error) {
	if len(s) == 0 {
		return Topic{}, &TopicValidationError{Kind: TopicErrEmpty}
	}
	if len(s) > topicMaxLength {
		return Topic{}, &TopicValidationError{Kind: TopicErrTooLong, Length: len(s)}
	}
	var invalid []byte
	seen := make(map[byte]bool)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isTopicChar(c) && !seen[c] {
			seen[c] = true
			invalid = append(invalid, c)
		}
	}
	if len(invalid) > 0 {
		return Topic{}, &TopicValidationError{Kind: TopicErrInvalidCharacters, Invalid: string(invalid)}
	}
	return Topic{value: s}, nil
}

// MustTopic panics if s is not a valid topic. Reserved for constants/tests.
func MustTopic(s string) Topic {
	t, err := NewTopic(s)
	if err != nil {
		panic(err)
	}
	return t
}

// UnknownTopic is the fallback destination recorded against archived events
// that could not be routed to any rule.
func UnknownTopic() Topic {
	return Topic{value: "unknown"}
}

func (t Topic) String() string {
	return t.value
}

func (t Topic) Equal(other Topic) bool {
	return t.value == other.value
}

func (t Topic) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.value)
}

func (t *Topic) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	topic, err := NewTopic(s)
	if err != nil {
		return err
	}
	*t = topic
	return nil
}
