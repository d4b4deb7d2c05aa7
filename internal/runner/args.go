package runner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingArgs reports a command line without a stylesheet.
var ErrMissingArgs = errors.New("missing -xsl: argument")

// Job describes one traced run.
type Job struct {
	// Name labels the job in logs and batch results.
	Name string
	// Stylesheet is the stylesheet path.
	Stylesheet string
	// Source is the source document path; empty runs without a context item.
	Source string
	// Output is where the result is written; empty keeps it in memory only.
	Output string
	// Params are "name=value" string parameters.
	Params []Param
	// InitialTemplate names the template to start with.
	InitialTemplate string
	// Trace compiles with tracing and attaches the listener.
	Trace bool
	// TraceOut is the trace destination; empty means stderr.
	TraceOut string
}

// Param is one run parameter. File parameters take their value from the
// file at Value.
type Param struct {
	Name  string
	Value string
	File  bool
}

func (p Param) String() string {
	if p.File {
		return "+" + p.Name + "=" + p.Value
	}
	return p.Name + "=" + p.Value
}

// ParseParam parses "name=value" or "+name=path".
func ParseParam(s string) (Param, error) {
	file := strings.HasPrefix(s, "+")
	body := strings.TrimPrefix(s, "+")
	name, value, ok := strings.Cut(body, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return Param{}, fmt.Errorf("invalid parameter %q (expected name=value or +name=path)", s)
	}
	return Param{Name: strings.TrimSpace(name), Value: value, File: file}, nil
}

// ParseArgs reads a command line in the classic processor style:
//
//	-xsl:style.xsl -s:in.xml -o:out.xml -trace -traceout:trace.log name=value +doc=file.xml
//
// -T is accepted and ignored. Unrecognized arguments are an error.
func ParseArgs(args []string) (Job, error) {
	var job Job
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "-s:"):
			job.Source = a[len("-s:"):]
		case strings.HasPrefix(a, "-xsl:"):
			job.Stylesheet = a[len("-xsl:"):]
		case strings.HasPrefix(a, "-o:"):
			job.Output = a[len("-o:"):]
		case strings.HasPrefix(a, "-it:"):
			job.InitialTemplate = a[len("-it:"):]
		case a == "-trace":
			job.Trace = true
		case a == "-T":
		case strings.HasPrefix(a, "-traceout:"):
			job.TraceOut = a[len("-traceout:"):]
		case strings.HasPrefix(a, "+"), !strings.HasPrefix(a, "-") && strings.Contains(a, "="):
			p, err := ParseParam(a)
			if err != nil {
				return Job{}, err
			}
			job.Params = append(job.Params, p)
		default:
			return Job{}, fmt.Errorf("unrecognized argument %q", a)
		}
	}
	if job.Stylesheet == "" {
		return Job{}, ErrMissingArgs
	}
	return job, nil
}
