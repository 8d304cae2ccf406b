// Package get exports the endpoint that loads objects by id.
package get

import (
	"context"
	"maps"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
)

// MaxIDs caps how many objects one request may load.
const MaxIDs = 1000

type Request struct {
	ObjectType string  `json:"object_type"`
	IDs        []int64 `json:"ids" validate:"required,min=1,max=1000"`
}

func (r *Request) Normalize() {
	if r.ObjectType == "" {
		r.ObjectType = string(objects.TypeAsset)
	}
}

type Response struct {
	Data []*objects.Object `json:"data"`
}

type Get struct {
	endpoint.Endpoint
}

func New(env *endpoint.Env) []any {
	return []any{&Get{Endpoint: endpoint.Endpoint{
		Name:  "get",
		Title: "Get objects",
		Doc: `
			Loads objects of one type by id. object_type defaults to "asset".
			Objects missing from the database are left out of the result.
		`,
		Handle: handler(env),
	}}}
}

func handler(env *endpoint.Env) func(context.Context, *Request, *objects.User) (Response, error) {
	return func(ctx context.Context, req *Request, _ *objects.User) (Response, error) {
		t, err := objects.ParseType(req.ObjectType)
		if err != nil {
			return Response{}, err
		}
		found, err := objects.LoadMany(ctx, env.DB, t, req.IDs)
		if err != nil {
			return Response{}, err
		}
		if t == objects.TypeUser {
			for i, o := range found {
				found[i] = withoutPassword(o)
			}
		}
		return Response{Data: found}, nil
	}
}

func withoutPassword(o *objects.Object) *objects.Object {
	meta := maps.Clone(o.Meta)
	delete(meta, "password")
	return &objects.Object{Type: o.Type, ID: o.ID, Meta: meta}
}
