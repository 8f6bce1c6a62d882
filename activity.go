package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bekirdag/cuesheet/internal/session"
)

// activityEvent is one line of activity.jsonl. cmd/cuelog reads the same
// shape.
type activityEvent struct {
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Event     string            `json:"event"`
	Project   string            `json:"project,omitempty"`
	Tab       string            `json:"tab,omitempty"`
	Count     int               `json:"count,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

type activityLogger struct {
	path      string
	sessionID string
	userID    string
	mu        sync.Mutex
}

func newActivityLogger(path string) *activityLogger {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	return &activityLogger{
		path:      path,
		sessionID: uuid.NewString(),
		userID:    resolveActivityUserID(),
	}
}

func (a *activityLogger) Emit(event activityEvent) {
	if a == nil || strings.TrimSpace(event.Event) == "" {
		return
	}
	if event.SessionID == "" {
		event.SessionID = a.sessionID
	}
	if event.UserID == "" {
		event.UserID = a.userID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if len(event.Extra) == 0 {
		event.Extra = nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(data)
}

// sessionSink forwards manager events. tab.switch fires on every parked
// document change and is left to the operational log.
func (a *activityLogger) sessionSink() func(session.Event) {
	return func(ev session.Event) {
		if ev.Kind == "tab.switch" {
			return
		}
		var extra map[string]string
		if ev.Detail != "" {
			extra = map[string]string{"detail": ev.Detail}
		}
		a.Emit(activityEvent{
			Event:   ev.Kind,
			Project: ev.ProjectID,
			Tab:     ev.TabID,
			Count:   ev.Count,
			Extra:   extra,
		})
	}
}

func (a *activityLogger) emitSimple(event, project string, fields map[string]string) {
	a.Emit(activityEvent{Event: event, Project: project, Extra: fields})
}

func resolveActivityUserID() string {
	for _, candidate := range []string{os.Getenv("CUESHEET_USER"), os.Getenv("USER"), os.Getenv("USERNAME")} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func itoa(v int) string { return strconv.Itoa(v) }
