package httptransport

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nebula/internal/endpoint"
	dErrors "nebula/pkg/domain-errors"
	"nebula/pkg/platform/httputil"
	"nebula/pkg/requestcontext"
	"nebula/pkg/validation"
)

func (r *Router) endpointHandler(rt endpoint.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ctx := req.Context()
		defer func() { r.metrics.ObserveEndpointLatency(rt.Name, time.Since(start)) }()

		var in any
		if rt.Binding.RequestType() != nil {
			in = rt.Binding.NewRequest()
			if err := httputil.DecodeBody(req, in); err != nil {
				r.fail(w, req, rt, err)
				return
			}
			if err := httputil.PrepareRequest(in); err != nil {
				r.fail(w, req, rt, asValidation(err))
				return
			}
			if err := validation.Validate(in); err != nil {
				r.fail(w, req, rt, err)
				return
			}
		}

		ctx, span := r.tracer.Start(ctx, "endpoint."+rt.Name, trace.WithAttributes(
			attribute.String("nebula.endpoint", rt.Name),
			attribute.String("http.route", rt.Path),
			attribute.String("http.request.method", req.Method),
		))
		defer span.End()

		out, err := rt.Binding.Call(ctx, in, requestcontext.User(ctx))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.fail(w, req, rt, err)
			return
		}
		r.respond(w, req, rt, out)
	}
}

// asValidation keeps domain errors and turns plain Validate() errors into
// validation failures.
func asValidation(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
}

func (r *Router) fail(w http.ResponseWriter, req *http.Request, rt endpoint.Route, err error) {
	code := dErrors.CodeOf(err)
	r.metrics.IncEndpointError(rt.Name, httputil.DomainCodeToHTTPCode(code))
	if status := httputil.DomainCodeToHTTPStatus(code); status >= http.StatusInternalServerError {
		r.logger.ErrorContext(req.Context(), "endpoint failed",
			"endpoint", rt.Name,
			"status", status,
			"error", err,
			"request_id", requestcontext.RequestID(req.Context()),
		)
	}
	httputil.WriteError(w, err)
}

func (r *Router) respond(w http.ResponseWriter, req *http.Request, rt endpoint.Route, out any) {
	if !rt.ExcludeNone {
		httputil.WriteJSON(w, http.StatusOK, out)
		return
	}
	shaped, err := withoutNulls(out)
	if err != nil {
		r.fail(w, req, rt, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode response"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shaped)
}

// withoutNulls re-encodes v and drops null object members at every depth.
// Numbers are kept as json.Number so large IDs survive untouched.
func withoutNulls(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return stripNulls(generic), nil
}

func stripNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if val == nil {
				delete(t, k)
				continue
			}
			t[k] = stripNulls(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = stripNulls(val)
		}
		return t
	default:
		return v
	}
}
