package endpoint

import (
	"reflect"
)

// Route is a validated endpoint ready for the HTTP layer.
type Route struct {
	Path        string
	Name        string
	OperationID string
	Methods     []string
	Description string
	Title       string
	Scopes      []string
	Anonymous   bool
	// ResponseModel is nil when the handler declares no concrete shape.
	ResponseModel reflect.Type
	// ExcludeNone is only set when ResponseModel is set and the router
	// implements ResponseShaper.
	ExcludeNone bool
	Binding     *Binding
}

// Router receives routes from the registrar. AddRoute returns an error when
// the route cannot be installed, for example when its path and method are
// already taken.
type Router interface {
	AddRoute(Route) error
}

// ResponseShaper is implemented by routers able to omit null fields from
// responses.
type ResponseShaper interface {
	SupportsExcludeNone() bool
}
