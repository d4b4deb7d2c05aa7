// Package qname models qualified names and the textual forms under which
// evaluator collections may have stored them.
package qname

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// QName is a qualified name. Identity is (URI, Local); Prefix is presentation only.
type QName struct {
	URI    string
	Local  string
	Prefix string
}

// New builds a QName from its parts.
func New(prefix, uri, local string) QName {
	return QName{URI: uri, Local: local, Prefix: prefix}
}

// Local builds a QName in no namespace.
func Local(local string) QName {
	return QName{Local: local}
}

// IsZero reports whether the name has no local part.
func (q QName) IsZero() bool {
	return q.Local == ""
}

// Equal compares namespace and local part, ignoring the prefix.
func (q QName) Equal(o QName) bool {
	return q.URI == o.URI && q.Local == o.Local
}

// DisplayName returns prefix:local, or local when there is no prefix.
func (q QName) DisplayName() string {
	if q.Prefix != "" {
		return q.Prefix + ":" + q.Local
	}
	return q.Local
}

// Clark returns the {uri}local form, or local when the URI is empty.
func (q QName) Clark() string {
	if q.URI == "" {
		return q.Local
	}
	return "{" + q.URI + "}" + q.Local
}

// EQName returns the Q{uri}local form.
func (q QName) EQName() string {
	return "Q{" + q.URI + "}" + q.Local
}

func (q QName) String() string {
	return q.DisplayName()
}

// Parse reads Q{uri}local, {uri}local, prefix:local or local.
// Prefixed names carry no URI; the caller binds the prefix.
func Parse(s string) (QName, bool) {
	s = norm.NFC.String(strings.TrimSpace(s))
	if s == "" {
		return QName{}, false
	}
	rest := s
	if strings.HasPrefix(rest, "Q{") {
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, "{") {
		end := strings.IndexByte(rest, '}')
		if end < 0 || end == len(rest)-1 {
			return QName{}, false
		}
		return QName{URI: rest[1:end], Local: rest[end+1:]}, true
	}
	if prefix, local, ok := strings.Cut(rest, ":"); ok {
		if prefix == "" || local == "" || strings.Contains(local, ":") {
			return QName{}, false
		}
		return QName{Prefix: prefix, Local: local}, true
	}
	return QName{Local: rest}, true
}
