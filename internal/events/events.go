// Package events pushes change notifications to websocket clients.
package events

import "time"

const (
	TypeWelcome      = "welcome"
	TypeCacheCleared = "cache.cleared"
)

type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

func CacheCleared() Event {
	return Event{Type: TypeCacheCleared, At: time.Now().UTC()}
}
