package cue

import "strings"

// Source tags where a field value came from.
type Source int

const (
	SourceUnknown Source = iota
	SourceFile
	SourceUser
	SourceUserApproved
	SourceUserSynced
	SourceDatabase
	SourcePattern
	SourceAI
	SourceFill
)

var sourceTags = map[Source]string{
	SourceUnknown:      "",
	SourceFile:         "file-derived",
	SourceUser:         "user-entered",
	SourceUserApproved: "user-approved",
	SourceUserSynced:   "user-synced",
	SourceDatabase:     "database-matched",
	SourcePattern:      "pattern-predicted",
	SourceAI:           "ai-extracted",
	SourceFill:         "fill-copied",
}

func (s Source) String() string {
	return sourceTags[s]
}

// Label is the short form shown in the status bar.
func (s Source) Label() string {
	switch s {
	case SourceFile:
		return "file"
	case SourceUser:
		return "user"
	case SourceUserApproved:
		return "approved"
	case SourceUserSynced:
		return "user+db"
	case SourceDatabase:
		return "db"
	case SourcePattern:
		return "pattern"
	case SourceAI:
		return "ai"
	case SourceFill:
		return "fill"
	default:
		return "—"
	}
}

// Approved reports whether a person entered or confirmed the value.
func (s Source) Approved() bool {
	switch s {
	case SourceUser, SourceUserApproved, SourceUserSynced, SourceFill:
		return true
	default:
		return false
	}
}

// ParseSource maps a stored tag back to a Source. Unknown tags map to
// SourceUnknown.
func ParseSource(tag string) Source {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for s, t := range sourceTags {
		if t == tag {
			return s
		}
	}
	return SourceUnknown
}
