package resolve

import "xsltrace/internal/qname"

// ParameterSource supplies the parameters passed to a traced run.
type ParameterSource interface {
	Parameter(name qname.QName) (any, bool)
}

// Parameters is a ParameterSource keyed by Clark name ({uri}local, or local
// for names without a namespace).
type Parameters map[string]any

// Parameter looks name up by its Clark form.
func (p Parameters) Parameter(name qname.QName) (any, bool) {
	v, ok := p[name.Clark()]
	return v, ok && v != nil
}

// Set binds name to v.
func (p Parameters) Set(name qname.QName, v any) {
	p[name.Clark()] = v
}
