package status

import (
	"context"
	"net/http"
	"time"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
)

type Response struct {
	Version       string `json:"version"`
	SiteName      string `json:"site_name"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	User          string `json:"user,omitempty"`
}

type Request struct {
	endpoint.Endpoint
}

func New(env *endpoint.Env) []any {
	return []any{&Request{Endpoint: endpoint.Endpoint{
		Name:      "status",
		Title:     "Server status",
		Methods:   []string{http.MethodGet},
		Anonymous: true,
		Doc:       "Reports the server version and uptime. Does not require a token.",
		Handle:    handler(env, time.Now),
	}}}
}

func handler(env *endpoint.Env, now func() time.Time) func(context.Context, *objects.User) (Response, error) {
	return func(_ context.Context, user *objects.User) (Response, error) {
		resp := Response{
			Version:       env.Version,
			SiteName:      env.Config.SiteName,
			UptimeSeconds: int64(now().Sub(env.Started).Seconds()),
		}
		if user != nil {
			resp.User = user.Login()
		}
		return resp, nil
	}
}
