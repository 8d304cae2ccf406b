// Package settings exports the endpoint that hands clients the site
// configuration they need at startup.
package settings

import (
	"context"
	"fmt"
	"net/http"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
	"nebula/internal/platform/database"
)

type Action struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ServiceType string `json:"service_type"`
}

type Response struct {
	System    map[string]any            `json:"system"`
	Views     []map[string]any          `json:"views"`
	Folders   []map[string]any          `json:"folders"`
	Channels  []map[string]any          `json:"channels"`
	Storages  []map[string]any          `json:"storages"`
	MetaTypes map[string]map[string]any `json:"meta_types"`
	Actions   []Action                  `json:"actions"`
	User      *objects.User             `json:"user"`
}

type Settings struct {
	endpoint.Endpoint
}

func New(env *endpoint.Env) []any {
	return []any{&Settings{Endpoint: endpoint.Endpoint{
		Name:        "settings",
		Title:       "Client settings",
		Methods:     []string{http.MethodGet, http.MethodPost},
		ExcludeNone: true,
		Doc:         "Returns system settings, views, folders, channels, storages, meta types and actions.",
		Handle:      handler(env),
	}}}
}

func handler(env *endpoint.Env) func(context.Context, *objects.User) (Response, error) {
	return func(ctx context.Context, user *objects.User) (Response, error) {
		resp := Response{System: map[string]any{}, MetaTypes: map[string]map[string]any{}, User: user}

		for row, err := range env.DB.Iterate(ctx, "SELECT key, value FROM settings ORDER BY key") {
			if err != nil {
				return Response{}, fmt.Errorf("load system settings: %w", err)
			}
			resp.System[row.String("key")] = row["value"]
		}

		var err error
		if resp.Views, err = withIDs(ctx, env.DB, "views"); err != nil {
			return Response{}, err
		}
		if resp.Folders, err = withIDs(ctx, env.DB, "folders"); err != nil {
			return Response{}, err
		}
		if resp.Channels, err = withIDs(ctx, env.DB, "channels"); err != nil {
			return Response{}, err
		}
		if resp.Storages, err = withIDs(ctx, env.DB, "storages"); err != nil {
			return Response{}, err
		}

		for row, err := range env.DB.Iterate(ctx, "SELECT key, settings FROM meta_types ORDER BY key") {
			if err != nil {
				return Response{}, fmt.Errorf("load meta types: %w", err)
			}
			resp.MetaTypes[row.String("key")] = row.Map("settings")
		}

		for row, err := range env.DB.Iterate(ctx, "SELECT id, service_type, title FROM actions ORDER BY title") {
			if err != nil {
				return Response{}, fmt.Errorf("load actions: %w", err)
			}
			resp.Actions = append(resp.Actions, Action{
				ID:          row.Int64("id"),
				Title:       row.String("title"),
				ServiceType: row.String("service_type"),
			})
		}
		return resp, nil
	}
}

// withIDs reads an id/settings table into settings documents with the id
// merged in.
func withIDs(ctx context.Context, db database.DB, table string) ([]map[string]any, error) {
	out := []map[string]any{}
	for row, err := range db.Iterate(ctx, "SELECT id, settings FROM "+table+" ORDER BY id") {
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", table, err)
		}
		doc := row.Map("settings")
		if doc == nil {
			doc = map[string]any{}
		}
		doc["id"] = row.Int64("id")
		out = append(out, doc)
	}
	return out, nil
}
