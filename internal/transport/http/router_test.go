package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
	"nebula/internal/platform/health"
	"nebula/internal/platform/metrics"
	"nebula/internal/scopes"
	dErrors "nebula/pkg/domain-errors"
	"nebula/pkg/testutil"
)

type tokenTable map[string]*objects.User

func (t tokenTable) Authenticate(_ context.Context, token string) (*objects.User, string, error) {
	if u, ok := t[token]; ok {
		return u, "jti-" + token, nil
	}
	return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
}

type echoRequest struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count"`
}

type echoResponse struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Note  *string `json:"note"`
	User  string  `json:"user,omitempty"`
}

func echo(_ context.Context, req echoRequest, user *objects.User) (echoResponse, error) {
	resp := echoResponse{Name: req.Name, Count: req.Count}
	if user != nil {
		resp.User = user.Login()
	}
	return resp, nil
}

type RouterSuite struct {
	suite.Suite
	registry *scopes.Registry
	reg      *prometheus.Registry
	metrics  *metrics.Metrics
	router   *Router
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.registry = scopes.NewRegistry()
	s.reg = prometheus.NewRegistry()
	s.metrics = metrics.New(s.reg)
	tokens := tokenTable{
		"editor": objects.NewUser("editor", objects.Meta{"scopes": []string{"asset_edit"}}),
		"viewer": objects.NewUser("viewer", nil),
	}
	s.router = NewRouter(slog.New(slog.DiscardHandler), tokens, scopes.NewAuthorizer(s.registry), WithMetrics(s.metrics))
}

func (s *RouterSuite) route(name, path string, handle any, methods ...string) endpoint.Route {
	b, err := endpoint.Bind(handle)
	s.Require().NoError(err)
	if len(methods) == 0 {
		methods = []string{http.MethodPost}
	}
	return endpoint.Route{Name: name, Path: path, Methods: methods, Binding: b}
}

func (s *RouterSuite) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) body(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *RouterSuite) TestAuthenticatedCall() {
	s.Require().NoError(s.router.AddRoute(s.route("echo", "/api/echo", echo)))

	w := s.do(http.MethodPost, "/api/echo", "viewer", `{"name":"clip","count":3}`)

	s.Equal(http.StatusOK, w.Code)
	body := s.body(w)
	s.Equal("clip", body["name"])
	s.Equal("viewer", body["user"])
	s.Contains(body, "note")
}

func (s *RouterSuite) TestMissingTokenIsRejected() {
	s.Require().NoError(s.router.AddRoute(s.route("echo", "/api/echo", echo)))

	w := s.do(http.MethodPost, "/api/echo", "", `{"name":"clip"}`)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.AuthFailures))
}

func (s *RouterSuite) TestAnonymousRoute() {
	rt := s.route("ping", "/api/ping", func(context.Context, *objects.User) (map[string]string, error) {
		return map[string]string{"pong": "yes"}, nil
	}, http.MethodGet)
	rt.Anonymous = true
	s.Require().NoError(s.router.AddRoute(rt))

	w := s.do(http.MethodGet, "/api/ping", "", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("yes", s.body(w)["pong"])
}

func (s *RouterSuite) TestValidationFailure() {
	s.Require().NoError(s.router.AddRoute(s.route("echo", "/api/echo", echo)))

	w := s.do(http.MethodPost, "/api/echo", "viewer", `{"count":1}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("validation_error", s.body(w)["error"])
}

func (s *RouterSuite) TestMalformedBody() {
	s.Require().NoError(s.router.AddRoute(s.route("echo", "/api/echo", echo)))

	w := s.do(http.MethodPost, "/api/echo", "viewer", `{"name":`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("bad_request", s.body(w)["error"])
}

func (s *RouterSuite) TestHandlerErrorIsMapped() {
	s.Require().NoError(s.router.AddRoute(s.route("gone", "/api/gone", func(context.Context, *objects.User) (any, error) {
		return nil, dErrors.New(dErrors.CodeNotFound, "asset 4 not found")
	})))

	w := s.do(http.MethodPost, "/api/gone", "viewer", "")

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("asset 4 not found", s.body(w)["error_description"])
	s.Equal(1.0, promtest.ToFloat64(s.metrics.EndpointErrors.WithLabelValues("gone", "not_found")))
}

func (s *RouterSuite) TestScopedRoute() {
	rt := s.route("set", "/api/set", echo)
	rt.Scopes = []string{"asset_edit"}
	s.Require().NoError(s.router.AddRoute(rt))
	s.Require().NoError(s.registry.Add(scopes.Entry{Endpoint: "set", Title: "Set", Scopes: rt.Scopes}))

	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/api/set", "viewer", `{"name":"a"}`).Code)
	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/set", "editor", `{"name":"a"}`).Code)
}

func (s *RouterSuite) TestExcludeNone() {
	rt := s.route("echo", "/api/echo", echo)
	rt.ExcludeNone = true
	s.Require().NoError(s.router.AddRoute(rt))
	s.True(s.router.SupportsExcludeNone())

	w := s.do(http.MethodPost, "/api/echo", "viewer", `{"name":"clip","count":12345678901}`)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"name":"clip","count":12345678901,"user":"viewer"}`, w.Body.String())
}

func (s *RouterSuite) TestDuplicateMethodAndPath() {
	s.Require().NoError(s.router.AddRoute(s.route("echo", "/api/echo", echo)))

	err := s.router.AddRoute(s.route("other", "/api/echo", echo))
	s.Require().Error(err)
	s.Contains(err.Error(), "already served by echo")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	s.NoError(s.router.AddRoute(s.route("echo_get", "/api/echo", echo, http.MethodGet)))
	s.Len(s.router.Routes(), 2)
}

func (s *RouterSuite) TestConcurrentRegistrationOfSamePath() {
	routes := make([]endpoint.Route, 16)
	for i := range routes {
		routes[i] = s.route(fmt.Sprintf("echo_%d", i), "/api/echo", echo)
	}

	result := testutil.RunConcurrent(len(routes), func(idx int) error {
		return s.router.AddRoute(routes[idx])
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(15), result.Conflicts)
	s.Len(s.router.Routes(), 1)
}

func (s *RouterSuite) TestInvalidMethodInstallsNothing() {
	err := s.router.AddRoute(s.route("bad", "/api/bad", echo, http.MethodGet, "FETCH"))
	s.Require().Error(err)

	s.Empty(s.router.Routes())
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/bad", "viewer", "").Code)
}

func (s *RouterSuite) TestInvalidPath() {
	s.Error(s.router.AddRoute(s.route("bad", "api/bad", echo)))
	s.Error(s.router.AddRoute(endpoint.Route{Name: "nil", Path: "/api/nil", Methods: []string{http.MethodPost}}))
}

func (s *RouterSuite) TestReservedPaths() {
	s.router.MountHealth(health.New("test"))
	s.router.MountMetrics(s.reg)

	s.Error(s.router.AddRoute(s.route("health", "/health", echo, http.MethodGet)))
	s.Error(s.router.AddRoute(s.route("metrics", "/metrics", echo, http.MethodGet)))

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health/live", "", "").Code)
	w := s.do(http.MethodGet, "/metrics", "", "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "nebula_auth_failures_total")
}

func (s *RouterSuite) TestRoutesSortedByPath() {
	for _, p := range []string{"/api/zeta", "/api/alpha", "/api/mid"} {
		s.Require().NoError(s.router.AddRoute(s.route(p[5:], p, echo)))
	}

	var paths []string
	for _, rt := range s.router.Routes() {
		paths = append(paths, rt.Path)
	}
	s.Equal([]string{"/api/alpha", "/api/mid", "/api/zeta"}, paths)
}

func (s *RouterSuite) TestUnknownPath() {
	w := s.do(http.MethodGet, "/api/nothing", "", "")

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("not_found", s.body(w)["error"])
}
