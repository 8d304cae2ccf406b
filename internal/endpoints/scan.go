// Package endpoints discovers endpoint descriptors in built-in and plugin
// locations and installs them on a router.
//
// Discovery walks the locations in order (built-ins first), loads every
// candidate unit and scans its exports. The registrar drains discovery once
// at startup, drops duplicates and invalid descriptors with a log entry, and
// hands the survivors to the router. Nothing in either step fails the
// server: a broken unit only means its endpoints are missing.
package endpoints

import (
	"context"
	"log/slog"
	"reflect"

	"nebula/internal/endpoint"
	"nebula/internal/plugins"
)

// Scan returns the exports of unit that implement endpoint.APIRequest and
// carry a name and a handle, in export order. Exports of other types are
// ignored; descriptors without a name or handle are logged and dropped.
func Scan(unit *plugins.Unit, logger *slog.Logger) []endpoint.APIRequest {
	if unit == nil {
		return nil
	}
	var out []endpoint.APIRequest
	for _, export := range unit.Exports {
		req, ok := export.(endpoint.APIRequest)
		if !ok || isNilPointer(export) {
			continue
		}
		e := describe(req)
		if e == nil {
			continue
		}
		switch {
		case e.Name == "":
			logger.ErrorContext(context.Background(), "endpoint "+typeName(export)+" doesn't have a name", "unit", unit.Name)
		case e.Handle == nil:
			logger.ErrorContext(context.Background(), "endpoint "+typeName(export)+" doesn't have a handle", "unit", unit.Name, "endpoint", e.Name)
		default:
			out = append(out, req)
		}
	}
	return out
}

// describe guards against Describe implementations that panic.
func describe(req endpoint.APIRequest) (e *endpoint.Endpoint) {
	defer func() {
		if recover() != nil {
			e = nil
		}
	}()
	return req.Describe()
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
