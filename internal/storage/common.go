package storage

import (
	"encoding/json"
	"time"

	"github.com/lightsaway/event-gateway/internal/model"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// eventDataAsMap flattens an event's tagged Data union into a plain map
// suitable for a jsonb column, regardless of which Data variant was used.
func eventDataAsMap(event model.Event) map[string]interface{} {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
