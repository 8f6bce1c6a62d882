// Command cuelog summarizes the activity.jsonl written by cuesheet: event
// counts per project and per session, as JSON.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
)

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

type projectSummary struct {
	Project     string         `json:"project"`
	Events      map[string]int `json:"events"`
	CuesTouched int            `json:"cues_touched"`
	Exports     int            `json:"exports"`
	SaveFailed  int            `json:"save_failed"`
	FirstSeen   time.Time      `json:"first_seen"`
	LastSeen    time.Time      `json:"last_seen"`
}

type report struct {
	Source    string           `json:"source"`
	Sessions  int              `json:"sessions"`
	Users     []string         `json:"users,omitempty"`
	Events    map[string]int   `json:"events"`
	Projects  []projectSummary `json:"projects"`
	Skipped   int              `json:"skipped_lines"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
}

func main() {
	var (
		inputPath  string
		outputPath string
		project    string
		since      time.Duration
	)
	flag.StringVarP(&inputPath, "in", "i", "", "activity.jsonl path (required)")
	flag.StringVarP(&outputPath, "out", "o", "", "output JSON path (defaults to stdout)")
	flag.StringVarP(&project, "project", "p", "", "only summarize this project")
	flag.DurationVar(&since, "since", 0, "only events newer than this, e.g. 24h")
	flag.Parse()

	if inputPath == "" {
		exit(errors.New("missing --in path"))
	}
	f, err := os.Open(inputPath)
	if err != nil {
		exit(err)
	}
	defer f.Close()

	var cutoff time.Time
	if since > 0 {
		cutoff = time.Now().Add(-since)
	}
	rep, err := summarize(f, filter{project: project, since: cutoff})
	if err != nil {
		exit(fmt.Errorf("read %s: %w", inputPath, err))
	}
	rep.Source = inputPath

	encoded, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		exit(fmt.Errorf("encode report: %w", err))
	}
	if outputPath == "" {
		fmt.Println(string(encoded))
		return
	}
	if err := os.WriteFile(outputPath, append(encoded, '\n'), 0o644); err != nil {
		exit(fmt.Errorf("write output: %w", err))
	}
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "cuelog: %v\n", err)
	os.Exit(1)
}

type filter struct {
	project string
	since   time.Time
}

func (f filter) keep(ev activityEvent) bool {
	if f.project != "" && ev.Project != f.project {
		return false
	}
	return f.since.IsZero() || !ev.Timestamp.Before(f.since)
}

// summarize reads one event per line. Lines that do not decode are counted
// and skipped.
func summarize(r io.Reader, f filter) (report, error) {
	rep := report{Events: make(map[string]int)}
	sessions := make(map[string]bool)
	users := make(map[string]bool)
	projects := make(map[string]*projectSummary)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev activityEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Event == "" {
			rep.Skipped++
			continue
		}
		if !f.keep(ev) {
			continue
		}

		rep.Events[ev.Event]++
		if ev.SessionID != "" {
			sessions[ev.SessionID] = true
		}
		if ev.UserID != "" {
			users[ev.UserID] = true
		}
		if rep.StartTime.IsZero() || ev.Timestamp.Before(rep.StartTime) {
			rep.StartTime = ev.Timestamp
		}
		if ev.Timestamp.After(rep.EndTime) {
			rep.EndTime = ev.Timestamp
		}
		if ev.Project == "" {
			continue
		}

		p, ok := projects[ev.Project]
		if !ok {
			p = &projectSummary{Project: ev.Project, Events: make(map[string]int), FirstSeen: ev.Timestamp}
			projects[ev.Project] = p
		}
		p.Events[ev.Event]++
		if ev.Timestamp.Before(p.FirstSeen) {
			p.FirstSeen = ev.Timestamp
		}
		if ev.Timestamp.After(p.LastSeen) {
			p.LastSeen = ev.Timestamp
		}
		switch {
		case strings.HasPrefix(ev.Event, "edit.") || ev.Event == "suggestion.apply":
			p.CuesTouched += ev.Count
		case ev.Event == "export":
			p.Exports++
		case ev.Event == "save.failed":
			p.SaveFailed++
		}
	}
	if err := scanner.Err(); err != nil {
		return rep, err
	}

	rep.Sessions = len(sessions)
	for u := range users {
		rep.Users = append(rep.Users, u)
	}
	sort.Strings(rep.Users)
	for _, p := range projects {
		rep.Projects = append(rep.Projects, *p)
	}
	sort.Slice(rep.Projects, func(i, j int) bool {
		return rep.Projects[i].LastSeen.After(rep.Projects[j].LastSeen)
	})
	return rep, nil
}
