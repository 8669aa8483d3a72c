// Package endpoint describes endpoints statically: their HTTP method, path template and
// parameters. Descriptors are built once, never mutated, and consumed by the server's routing
// table and by clients building requests.
package endpoint

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/Suhaibinator/SWire/pkg/percent"
)

// Kind is where a parameter lives in a request.
type Kind int

const (
	// Path parameters fill a placeholder of the path template.
	Path Kind = iota
	// Query parameters are read from the query string.
	Query
	// Header parameters are read from request headers.
	Header
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Path:
		return "path"
	case Query:
		return "query"
	case Header:
		return "header"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Parameter describes one parameter of an endpoint. Safe parameters may be logged and are
// reported in telemetry.
type Parameter struct {
	Name string
	Kind Kind
	Safe bool
}

// PathSegment is a literal segment or a placeholder of a path template.
type PathSegment struct {
	// Literal is the text of a literal segment, or empty for a placeholder.
	Literal string
	// Param names the parameter filling a placeholder.
	Param string
	// Regex constrains the value of a placeholder; nil means any single segment.
	Regex *regexp.Regexp
	// Rest marks a trailing placeholder which captures the remainder of the path.
	Rest bool
}

// IsParam reports whether the segment is a placeholder.
func (s PathSegment) IsParam() bool {
	return s.Param != ""
}

// String renders the segment the way it appears in a template.
func (s PathSegment) String() string {
	switch {
	case !s.IsParam():
		return s.Literal
	case s.Regex != nil:
		return "{" + s.Param + ":" + unanchor(s.Regex.String()) + "}"
	default:
		return "{" + s.Param + "}"
	}
}

// ParseTemplate splits a path template such as "/users/{id}/files/{path:.+}" into segments.
// A placeholder is "{name}" or "{name:regex}". A final placeholder whose regex is ".*" or ".+"
// captures the rest of the path, slashes included.
func ParseTemplate(template string) ([]PathSegment, error) {
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("path template %q must start with '/'", template)
	}
	if template == "/" {
		return nil, nil
	}

	parts := strings.Split(template[1:], "/")
	segments := make([]PathSegment, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("path template %q has an empty segment", template)
		}
		if !strings.HasPrefix(part, "{") {
			if strings.ContainsAny(part, "{}") {
				return nil, fmt.Errorf("path template %q: malformed segment %q", template, part)
			}
			segments = append(segments, PathSegment{Literal: part})
			continue
		}
		if !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("path template %q: unterminated placeholder %q", template, part)
		}

		name, expr, hasRegex := strings.Cut(part[1:len(part)-1], ":")
		if !validName(name) {
			return nil, fmt.Errorf("path template %q: invalid parameter name %q", template, name)
		}
		seg := PathSegment{Param: name}
		if hasRegex {
			if expr == "" {
				return nil, fmt.Errorf("path template %q: empty regex for %q", template, name)
			}
			re, err := regexp.Compile(anchor(expr))
			if err != nil {
				return nil, fmt.Errorf("path template %q: invalid regex for %q: %w", template, name, err)
			}
			seg.Regex = re
			if expr == ".*" || expr == ".+" {
				if i != len(parts)-1 {
					return nil, fmt.Errorf("path template %q: %q captures the rest of the path and must be last", template, name)
				}
				seg.Rest = true
			}
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func anchor(expr string) string {
	return "^(?:" + expr + ")$"
}

func unanchor(expr string) string {
	return strings.TrimSuffix(strings.TrimPrefix(expr, "^(?:"), ")$")
}

// Metadata is the static descriptor of an endpoint.
type Metadata struct {
	Service    string
	Name       string
	Method     string
	Template   string
	Path       []PathSegment
	Parameters []Parameter
	Deprecated bool
}

// Option customizes Metadata during construction.
type Option func(*Metadata)

// WithParameters declares the parameters of the endpoint in order.
func WithParameters(params ...Parameter) Option {
	return func(m *Metadata) {
		m.Parameters = append(m.Parameters, params...)
	}
}

// Deprecated marks the endpoint as deprecated.
func Deprecated() Option {
	return func(m *Metadata) {
		m.Deprecated = true
	}
}

// New builds and validates endpoint metadata. Every placeholder of the template must be
// declared as a Path parameter and every Path parameter must appear in the template.
func New(service, name, method, template string, opts ...Option) (*Metadata, error) {
	if name == "" {
		return nil, fmt.Errorf("endpoint name is required")
	}
	method = strings.ToUpper(method)
	if !validMethod(method) {
		return nil, fmt.Errorf("endpoint %s: unsupported method %q", name, method)
	}
	segments, err := ParseTemplate(template)
	if err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", name, err)
	}

	m := &Metadata{
		Service:  service,
		Name:     name,
		Method:   method,
		Template: template,
		Path:     segments,
	}
	for _, opt := range opts {
		opt(m)
	}

	seen := make(map[string]Kind, len(m.Parameters))
	for _, p := range m.Parameters {
		if p.Name == "" {
			return nil, fmt.Errorf("endpoint %s: parameter without a name", name)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("endpoint %s: duplicate parameter %q", name, p.Name)
		}
		seen[p.Name] = p.Kind
	}
	placeholders := make(map[string]bool)
	for _, seg := range segments {
		if !seg.IsParam() {
			continue
		}
		if placeholders[seg.Param] {
			return nil, fmt.Errorf("endpoint %s: placeholder %q appears twice", name, seg.Param)
		}
		placeholders[seg.Param] = true
		if kind, ok := seen[seg.Param]; !ok || kind != Path {
			return nil, fmt.Errorf("endpoint %s: placeholder %q is not declared as a path parameter", name, seg.Param)
		}
	}
	for _, p := range m.Parameters {
		if p.Kind == Path && !placeholders[p.Name] {
			return nil, fmt.Errorf("endpoint %s: path parameter %q is missing from the template", name, p.Name)
		}
	}
	return m, nil
}

// MustNew is like New but panics on error. It is meant for package level endpoint tables.
func MustNew(service, name, method, template string, opts ...Option) *Metadata {
	m, err := New(service, name, method, template, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

var methods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

func validMethod(method string) bool {
	return slices.Contains(methods, method)
}

// Parameter looks up a declared parameter by name.
func (m *Metadata) Parameter(name string) (Parameter, bool) {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// FullName returns "Service.Name", or just Name for endpoints without a service.
func (m *Metadata) FullName() string {
	if m.Service == "" {
		return m.Name
	}
	return m.Service + "." + m.Name
}

// HTTPRouterPath converts the template to httprouter syntax. Literal segments are
// percent-encoded with the component set so they match the escaped request path.
func (m *Metadata) HTTPRouterPath() string {
	if len(m.Path) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range m.Path {
		b.WriteByte('/')
		switch {
		case !seg.IsParam():
			b.WriteString(percent.Encode(seg.Literal, percent.Component))
		case seg.Rest:
			b.WriteString("*" + seg.Param)
		default:
			b.WriteString(":" + seg.Param)
		}
	}
	return b.String()
}

// RegexMismatch returns the name of the first placeholder whose value does not satisfy its
// regex, or "" when all constraints hold.
func (m *Metadata) RegexMismatch(params map[string]string) string {
	for _, seg := range m.Path {
		if seg.Regex == nil {
			continue
		}
		if !seg.Regex.MatchString(params[seg.Param]) {
			return seg.Param
		}
	}
	return ""
}
