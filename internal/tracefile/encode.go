package tracefile

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects an entry encoding.
type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	default:
		return FormatJSON, fmt.Errorf("invalid entries format: %q (expected: json|msgpack)", s)
	}
}

// Encode writes entries to w. A nil slice is written as an empty list.
func Encode(w io.Writer, entries []Entry, format Format) error {
	if entries == nil {
		entries = []Entry{}
	}
	switch format {
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		return enc.Encode(entries)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	default:
		return fmt.Errorf("unknown entries format: %v", format)
	}
}

// Decode reads entries written by Encode.
func Decode(r io.Reader, format Format) ([]Entry, error) {
	var out []Entry
	switch format {
	case FormatMsgpack:
		dec := msgpack.NewDecoder(r)
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&out); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown entries format: %v", format)
	}
	return out, nil
}
