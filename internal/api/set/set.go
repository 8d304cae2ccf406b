// Package set exports the endpoint that creates and updates objects.
package set

import (
	"context"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
	dErrors "nebula/pkg/domain-errors"
)

// TopicObjectsChanged is published after every successful save.
const TopicObjectsChanged = "objects_changed"

type Request struct {
	ObjectType string         `json:"object_type"`
	ID         int64          `json:"id" validate:"gte=0"`
	Data       map[string]any `json:"data" validate:"required"`
}

func (r *Request) Normalize() {
	if r.ObjectType == "" {
		r.ObjectType = string(objects.TypeAsset)
	}
	delete(r.Data, "id")
}

type Response struct {
	ObjectType string `json:"object_type"`
	ID         int64  `json:"id"`
}

type Set struct {
	endpoint.Endpoint
}

func New(env *endpoint.Env) []any {
	return []any{&Set{Endpoint: endpoint.Endpoint{
		Name:   "set",
		Title:  "Save object",
		Scopes: []string{"asset_edit"},
		Doc: `
			Creates an object when id is 0, otherwise merges data into the
			stored metadata. Users can only be edited by administrators.
		`,
		Handle: handler(env),
	}}}
}

func handler(env *endpoint.Env) func(context.Context, *Request, *objects.User) (Response, error) {
	return func(ctx context.Context, req *Request, user *objects.User) (Response, error) {
		t, err := objects.ParseType(req.ObjectType)
		if err != nil {
			return Response{}, err
		}
		if t == objects.TypeUser && !user.Admin() {
			return Response{}, dErrors.New(dErrors.CodeForbidden, "only administrators can edit users")
		}

		obj := objects.New(t, req.Data)
		obj.ID = req.ID
		if err := objects.Save(ctx, env.DB, obj); err != nil {
			return Response{}, err
		}

		payload := map[string]any{
			"object_type": t,
			"objects":     []int64{obj.ID},
			"user":        user.Login(),
		}
		if err := env.Publisher.Publish(ctx, TopicObjectsChanged, payload); err != nil {
			env.Logger.WarnContext(ctx, "failed to publish change", "topic", TopicObjectsChanged, "error", err)
		}
		env.Logger.InfoContext(ctx, "object saved", "object_type", t, "id", obj.ID, "user", user.Login())
		return Response{ObjectType: string(t), ID: obj.ID}, nil
	}
}
