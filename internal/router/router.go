// Package router implements first-match routing of events onto topic
// routing rules, grounded on the priority-ordered rule evaluation in
// event-service/internal/publisher/router.go.
package router

import (
	"github.com/lightsaway/event-gateway/internal/model"
)

// TopicRoutings holds an ordered set of rules and evaluates events against
// them. Callers are responsible for ordering: storage returns rules sorted
// by Order ascending.
type TopicRoutings struct {
	Rules []model.TopicRoutingRule
}

// Route returns the first rule whose event-type condition matches
// event.EventType and whose version condition (if any) matches
// event.EventVersion. A rule with no version condition matches regardless
// of the event's version; a rule with a version condition only matches
// events that carry a version.
func (t TopicRoutings) Route(event model.Event) *model.TopicRoutingRule {
	for i := range t.Rules {
		rule := t.Rules[i]
		if !rule.EventTypeCondition.Matches(event.EventType) {
			continue
		}
		if !versionMatches(rule.EventVersionCondition, event.EventVersion) {
			continue
		}
		return &t.Rules[i]
	}
	return nil
}

func versionMatches(condition *model.Condition, version *string) bool {
	if condition == nil {
		return true
	}
	if version == nil {
		return false
	}
	return condition.Matches(*version)
}
