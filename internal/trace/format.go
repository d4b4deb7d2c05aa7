package trace

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record markers.
const (
	VarStart   = "TRACE_VAR_START"
	VarEnd     = "TRACE_VAR_END"
	DebugMark  = "TRACE_DEBUG"
	DiagMark   = "TRACE_DIAG"
	LegacyMark = "TRACE_VAR"
)

// Format represents the output format for trace events.
type Format uint8

const (
	FormatText   Format = iota // TRACE_VAR_START/END frames
	FormatNDJSON               // newline-delimited JSON
)

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatNDJSON:
		return "ndjson"
	default:
		return "unknown"
	}
}

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	default:
		return FormatText, fmt.Errorf("invalid trace format: %q (expected: text|ndjson)", s)
	}
}

// FormatEvent formats an event according to the specified format.
func FormatEvent(ev *Event, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev)
	default:
		return formatText(ev)
	}
}

func formatNDJSON(ev *Event) []byte {
	type jsonEvent struct {
		Time   string `json:"time,omitempty"`
		Seq    uint64 `json:"seq"`
		Kind   string `json:"kind"`
		Name   string `json:"name,omitempty"`
		Value  string `json:"value,omitempty"`
		Detail string `json:"detail,omitempty"`
	}

	j := jsonEvent{
		Seq:    ev.Seq,
		Kind:   ev.Kind.String(),
		Name:   ev.Name,
		Value:  ev.Body,
		Detail: ev.Detail,
	}
	if !ev.Time.IsZero() {
		j.Time = ev.Time.Format("2006-01-02T15:04:05.000000Z07:00")
	}

	data, _ := json.Marshal(j)
	data = append(data, '\n')
	return data
}

// formatText renders a record as a three-part frame and a diagnostic as a
// single prefixed line. An empty body produces no body line.
func formatText(ev *Event) []byte {
	var sb strings.Builder
	switch ev.Kind {
	case KindVar:
		sb.WriteString(VarStart)
		sb.WriteByte('|')
		sb.WriteString(ev.Name)
		sb.WriteByte('\n')
		if ev.Body != "" {
			sb.WriteString(ev.Body)
			if !strings.HasSuffix(ev.Body, "\n") {
				sb.WriteByte('\n')
			}
		}
		sb.WriteString(VarEnd)
	case KindDebug:
		sb.WriteString(DebugMark)
		sb.WriteByte(' ')
		sb.WriteString(oneLine(ev.Detail))
	case KindDiag:
		sb.WriteString(DiagMark)
		sb.WriteString(": ")
		sb.WriteString(oneLine(ev.Detail))
	default:
		return nil
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}

// oneLine keeps a diagnostic on a single line.
func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
