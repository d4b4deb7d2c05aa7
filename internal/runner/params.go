package runner

import (
	"bytes"
	"fmt"
	"os"

	"xsltrace/internal/qname"
	"xsltrace/internal/resolve"
	"xsltrace/internal/xdm"
)

// bindParams turns run parameters into transform values keyed by Clark name.
// A file parameter whose content starts with '<' is parsed as a document;
// any other content is passed as a trimmed string.
func bindParams(params []Param) (map[string]*xdm.Sequence, resolve.Parameters, error) {
	values := make(map[string]*xdm.Sequence, len(params))
	declared := make(resolve.Parameters, len(params))
	for _, p := range params {
		name, ok := qname.Parse(p.Name)
		if !ok {
			return nil, nil, fmt.Errorf("invalid parameter name %q", p.Name)
		}
		v, err := paramValue(p)
		if err != nil {
			return nil, nil, err
		}
		values[name.Clark()] = v
		declared.Set(name, v)
	}
	return values, declared, nil
}

func paramValue(p Param) (*xdm.Sequence, error) {
	if !p.File {
		return xdm.Singleton(xdm.String(p.Value)), nil
	}
	data, err := os.ReadFile(p.Value)
	if err != nil {
		return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
	}
	content := bytes.TrimSpace(data)
	if !bytes.HasPrefix(content, []byte("<")) {
		return xdm.Singleton(xdm.String(string(content))), nil
	}
	doc, err := xdm.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parameter %s: %s: %w", p.Name, p.Value, err)
	}
	return xdm.Singleton(doc), nil
}
