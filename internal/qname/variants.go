package qname

import "strings"

// Variants returns every key under which a collection may have stored q.
// The structured name comes first; string encodings follow in decreasing
// fidelity. Duplicates are dropped, order is preserved.
func Variants(q QName) []any {
	out := make([]any, 0, 6)
	seen := make(map[string]struct{}, 5)
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	out = append(out, q)
	if q.URI != "" {
		add("{" + q.URI + "}" + q.Local)
		add("Q{" + q.URI + "}" + q.Local)
	}
	add(q.DisplayName())
	if q.Prefix != "" && q.Local != "" {
		add(q.Prefix + ":" + q.Local)
	}
	add(q.Local)
	return out
}

// Strings returns only the string variants of q.
func Strings(q QName) []string {
	vs := Variants(q)
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// MatchString reports whether candidate names q under any textual form.
func MatchString(candidate string, q QName) bool {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" || q.Local == "" {
		return false
	}
	for _, s := range Strings(q) {
		if trimmed == s {
			return true
		}
	}
	// {uri}local with an empty uri is still a valid spelling of a no-namespace name.
	return trimmed == "{"+q.URI+"}"+q.Local || trimmed == q.EQName()
}
