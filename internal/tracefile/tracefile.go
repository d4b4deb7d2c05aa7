// Package tracefile reads variable trace output back into entries.
//
// A trace stream mixes record frames with diagnostic lines:
//
//	TRACE_DEBUG enter ...
//	TRACE_VAR_START|total
//	42
//	TRACE_VAR_END
//
// Parse keeps the frames as entries and drops the TRACE_DEBUG lines from the
// text it hands back. Single-line records from older runs
// (TRACE_VAR|name|value) are accepted as well.
package tracefile

import (
	"strings"

	"xsltrace/internal/trace"
)

// Entry is one traced variable value.
type Entry struct {
	Name  string `json:"name" msgpack:"name"`
	Value string `json:"value" msgpack:"value"`
}

// Parse extracts the entries of a trace stream and returns them with the
// stream text minus its TRACE_DEBUG lines. A frame that is never closed
// yields no entry.
func Parse(text string) ([]Entry, string) {
	var (
		entries  []Entry
		filtered []string
		buf      []string
		name     string
		inside   bool
	)
	startPrefix := trace.VarStart + "|"
	legacyPrefix := trace.LegacyMark + "|"

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, trace.DebugMark) {
			continue
		}
		filtered = append(filtered, line)

		switch {
		case strings.HasPrefix(line, startPrefix):
			name = strings.TrimSpace(strings.TrimPrefix(line, startPrefix))
			buf = buf[:0]
			inside = true
		case inside && line == trace.VarEnd:
			entries = append(entries, Entry{Name: name, Value: strings.Join(buf, "\n")})
			buf = buf[:0]
			inside = false
		case inside:
			buf = append(buf, line)
		case strings.HasPrefix(line, legacyPrefix):
			parts := strings.SplitN(line, "|", 3)
			if len(parts) == 3 {
				entries = append(entries, Entry{Name: parts[1], Value: parts[2]})
			}
		}
	}
	return entries, strings.Join(filtered, "\n")
}

// FromEvents converts the variable records among events to entries, in
// order. Other event kinds are skipped.
func FromEvents(events []trace.Event) []Entry {
	out := make([]Entry, 0, len(events))
	for _, ev := range events {
		if ev.Kind != trace.KindVar {
			continue
		}
		out = append(out, Entry{Name: ev.Name, Value: strings.TrimSuffix(ev.Body, "\n")})
	}
	return out
}

// Names returns the distinct entry names in first-seen order.
func Names(entries []Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	var out []string
	for _, e := range entries {
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		out = append(out, e.Name)
	}
	return out
}
