// Package endpoint defines the contract between endpoint-bearing units and
// the server. A unit exports values implementing APIRequest; the registrar
// turns each into a Route and hands it to a Router.
package endpoint

import (
	"reflect"
	"strings"

	str "nebula/pkg/string"
)

// DefaultMethods is used when an endpoint declares none.
var DefaultMethods = []string{"POST"}

// Endpoint describes one API endpoint. Units usually embed it in their own
// request type:
//
//	type Request struct {
//		endpoint.Endpoint
//	}
//
//	func New(env *endpoint.Env) []any {
//		return []any{&Request{Endpoint: endpoint.Endpoint{
//			Name:   "actions",
//			Handle: handler(env),
//		}}}
//	}
type Endpoint struct {
	// Name is unique within one registration pass.
	Name string
	// Title is the display name; Name is used when empty.
	Title string
	// Path overrides the derived /api/<name>.
	Path    string
	Methods []string
	// Scopes required to call the endpoint. Empty means unrestricted.
	Scopes []string
	// ResponseModel overrides the type derived from Handle's return value.
	ResponseModel reflect.Type
	// ExcludeNone drops null fields from responses when the router
	// supports it.
	ExcludeNone bool
	// Anonymous endpoints skip authentication.
	Anonymous bool
	// Doc is free text, usually indented source; see Documentation.
	Doc string
	// Handle is the handler function. See Bind for accepted signatures.
	Handle any
}

// APIRequest is the capability every discovered export must implement.
type APIRequest interface {
	Describe() *Endpoint
}

// Describe implements APIRequest.
func (e *Endpoint) Describe() *Endpoint { return e }

// RoutePath returns Path, or /api/<name> when unset.
func (e *Endpoint) RoutePath() string {
	if e.Path != "" {
		return e.Path
	}
	return "/api/" + e.Name
}

// DisplayTitle returns Title, or Name when unset.
func (e *Endpoint) DisplayTitle() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Name
}

// RouteMethods returns the upper-cased method set, DefaultMethods when
// empty.
func (e *Endpoint) RouteMethods() []string {
	if len(e.Methods) == 0 {
		return append([]string(nil), DefaultMethods...)
	}
	out := make([]string, 0, len(e.Methods))
	for _, m := range e.Methods {
		out = append(out, strings.ToUpper(strings.TrimSpace(m)))
	}
	return out
}

// Documentation strips surrounding whitespace from each line of Doc.
func (e *Endpoint) Documentation() string {
	return str.Lines(e.Doc)
}
