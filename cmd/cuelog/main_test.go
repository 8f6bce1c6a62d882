package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{"session_id":"s1","user_id":"ana","timestamp":"2026-03-01T10:00:00Z","event":"tab.open","project":"p1","count":12}
{"session_id":"s1","user_id":"ana","timestamp":"2026-03-01T10:01:00Z","event":"edit.commit","project":"p1","count":1}
{"session_id":"s1","user_id":"ana","timestamp":"2026-03-01T10:02:00Z","event":"edit.fill","project":"p1","count":4}
not json
{"session_id":"s2","user_id":"bo","timestamp":"2026-03-02T09:00:00Z","event":"export","project":"p2","extra":{"rows":"8"}}
{"session_id":"s2","user_id":"bo","timestamp":"2026-03-02T09:05:00Z","event":"save.failed","project":"p2"}
{"session_id":"s2","user_id":"bo","timestamp":"2026-03-02T09:06:00Z","event":"app.exit"}
`

func TestSummarize(t *testing.T) {
	rep, err := summarize(strings.NewReader(sample), filter{})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Sessions)
	assert.Equal(t, []string{"ana", "bo"}, rep.Users)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.Events["edit.commit"])
	assert.Equal(t, 1, rep.Events["app.exit"])

	require.Len(t, rep.Projects, 2)
	assert.Equal(t, "p2", rep.Projects[0].Project, "most recent first")
	assert.Equal(t, 1, rep.Projects[0].Exports)
	assert.Equal(t, 1, rep.Projects[0].SaveFailed)
	assert.Equal(t, 5, rep.Projects[1].CuesTouched)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), rep.Projects[1].FirstSeen)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 6, 0, 0, time.UTC), rep.EndTime)
}

func TestSummarize_Filters(t *testing.T) {
	rep, err := summarize(strings.NewReader(sample), filter{project: "p1"})
	require.NoError(t, err)
	require.Len(t, rep.Projects, 1)
	assert.Equal(t, 3, rep.Projects[0].Events["tab.open"]+rep.Projects[0].Events["edit.commit"]+rep.Projects[0].Events["edit.fill"])
	assert.Zero(t, rep.Events["export"])

	rep, err = summarize(strings.NewReader(sample), filter{since: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Sessions)
	assert.Zero(t, rep.Events["tab.open"])
}
