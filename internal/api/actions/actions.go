// Package actions exports the endpoint listing the actions a user may start
// on a set of assets.
package actions

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
	"nebula/internal/platform/database"
	"nebula/internal/rules"
)

const loadConcurrency = 8

type Request struct {
	IDs []int64 `json:"ids" validate:"required,max=1000"`
}

type Item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Response struct {
	Actions []Item `json:"actions"`
}

// actionSettings is the XML document stored with each action:
//
//	<settings>
//		<allow_if>id_folder: 1 | 2</allow_if>
//	</settings>
type actionSettings struct {
	XMLName xml.Name `xml:"settings"`
	AllowIf []string `xml:"allow_if"`
}

type Actions struct {
	endpoint.Endpoint
}

func New(env *endpoint.Env) []any {
	u := &unit{env: env}
	return []any{&Actions{Endpoint: endpoint.Endpoint{
		Name:  "actions",
		Title: "Get available actions",
		Doc: `
			Lists the actions that can be started for every given asset.
			Only actions with an allow_if rule are offered, and only when
			each asset satisfies it. An empty list of ids offers every
			action that has a rule.
		`,
		Handle: u.handle,
	}}}
}

type unit struct {
	env   *endpoint.Env
	rules sync.Map // source -> *rules.Rule
}

func (u *unit) handle(ctx context.Context, req *Request, _ *objects.User) (Response, error) {
	assets, err := u.loadAssets(ctx, req.IDs)
	if err != nil {
		return Response{}, err
	}

	result := []Item{}
	for row, err := range u.env.DB.Iterate(ctx, "SELECT id, service_type, title, settings FROM actions ORDER BY title ASC") {
		if err != nil {
			return Response{}, fmt.Errorf("list actions: %w", err)
		}
		if u.allowed(ctx, row, assets) {
			result = append(result, Item{ID: row.Int64("id"), Name: row.String("title")})
		}
	}
	u.env.Logger.InfoContext(ctx, "actions resolved", "assets", req.IDs, "actions", len(result))
	return Response{Actions: result}, nil
}

// loadAssets loads every asset concurrently. A missing asset fails the
// whole request.
func (u *unit) loadAssets(ctx context.Context, ids []int64) ([]*objects.Object, error) {
	assets := make([]*objects.Object, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			a, err := objects.Load(gctx, u.env.DB, objects.TypeAsset, id)
			if err != nil {
				return err
			}
			assets[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assets, nil
}

func (u *unit) allowed(ctx context.Context, row database.Row, assets []*objects.Object) bool {
	var settings actionSettings
	if raw := strings.TrimSpace(row.String("settings")); raw != "" {
		if err := xml.Unmarshal([]byte(raw), &settings); err != nil {
			u.env.Logger.WarnContext(ctx, "unparseable action settings", "action", row.Int64("id"), "error", err)
			return false
		}
	}
	if len(settings.AllowIf) == 0 {
		return false
	}
	if strings.TrimSpace(settings.AllowIf[0]) == "" {
		u.env.Logger.WarnContext(ctx, "empty allow_if rule", "action", row.Int64("id"))
		return false
	}

	rule, err := u.rule(settings.AllowIf[0])
	if err != nil {
		u.env.Logger.ErrorContext(ctx, "invalid allow_if rule", "action", row.Int64("id"), "error", err)
		return false
	}
	for _, a := range assets {
		if !rule.Allows(a.Meta) {
			return false
		}
	}
	return true
}

func (u *unit) rule(src string) (*rules.Rule, error) {
	src = strings.TrimSpace(src)
	if r, ok := u.rules.Load(src); ok {
		return r.(*rules.Rule), nil
	}
	r, err := rules.Compile(src)
	if err != nil {
		return nil, err
	}
	actual, _ := u.rules.LoadOrStore(src, r)
	return actual.(*rules.Rule), nil
}
