// Package objects holds the media-asset records served by the API: assets,
// items, bins, events and users. Every record is an ID plus a free-form
// metadata document stored in a jsonb column.
package objects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"nebula/internal/platform/database"
	dErrors "nebula/pkg/domain-errors"
)

// Type names an object type and its table.
type Type string

const (
	TypeAsset Type = "asset"
	TypeItem  Type = "item"
	TypeBin   Type = "bin"
	TypeEvent Type = "event"
	TypeUser  Type = "user"
)

var tables = map[Type]string{
	TypeAsset: "assets",
	TypeItem:  "items",
	TypeBin:   "bins",
	TypeEvent: "events",
	TypeUser:  "users",
}

// ParseType validates an object type name received from a client.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := tables[t]; !ok {
		return "", dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown object type %q", s))
	}
	return t, nil
}

// Table returns the table holding records of this type.
func (t Type) Table() string {
	return tables[t]
}

// Meta is the metadata document of an object.
type Meta map[string]any

// Int64 reads a numeric key. JSON numbers decode as float64.
func (m Meta) Int64(key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// String returns the value at key, or "" when it is not a string.
func (m Meta) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Bool returns the value at key, or false when it is not a bool.
func (m Meta) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Object is one stored record.
type Object struct {
	Type Type
	ID   int64
	Meta Meta
}

// New creates an unsaved object.
func New(t Type, meta Meta) *Object {
	if meta == nil {
		meta = Meta{}
	}
	return &Object{Type: t, Meta: meta}
}

// MarshalJSON renders the metadata with the id merged in, the shape clients
// expect from get and set.
func (o *Object) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(o.Meta)+1)
	maps.Copy(out, o.Meta)
	out["id"] = o.ID
	return json.Marshal(out)
}

// Load reads one object by id. A missing row is a not_found domain error.
func Load(ctx context.Context, db database.DB, t Type, id int64) (*Object, error) {
	table := t.Table()
	if table == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown object type %q", t))
	}
	row, err := database.FetchOne(ctx, db, "SELECT id, meta FROM "+table+" WHERE id = $1", id)
	if errors.Is(err, database.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%s %d not found", t, id))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", t, id, err)
	}
	return fromRow(t, row), nil
}

// LoadMany reads the objects with the given ids in id order. Ids with no row
// are omitted.
func LoadMany(ctx context.Context, db database.DB, t Type, ids []int64) ([]*Object, error) {
	table := t.Table()
	if table == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown object type %q", t))
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*Object
	for row, err := range db.Iterate(ctx, "SELECT id, meta FROM "+table+" WHERE id = ANY($1) ORDER BY id", ids) {
		if err != nil {
			return nil, fmt.Errorf("load %s list: %w", t, err)
		}
		out = append(out, fromRow(t, row))
	}
	return out, nil
}

// Save inserts the object when it has no id yet, otherwise merges its
// metadata into the stored document.
func Save(ctx context.Context, db database.DB, o *Object) error {
	table := o.Type.Table()
	if table == "" {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown object type %q", o.Type))
	}
	if o.ID == 0 {
		rows, err := db.Fetch(ctx, "INSERT INTO "+table+" (meta) VALUES ($1) RETURNING id", map[string]any(o.Meta))
		if err != nil {
			return fmt.Errorf("insert %s: %w", o.Type, err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("insert %s: %w", o.Type, database.ErrNoRows)
		}
		o.ID = rows[0].Int64("id")
		return nil
	}
	n, err := db.Execute(ctx, "UPDATE "+table+" SET meta = meta || $2 WHERE id = $1", o.ID, map[string]any(o.Meta))
	if err != nil {
		return fmt.Errorf("update %s %d: %w", o.Type, o.ID, err)
	}
	if n == 0 {
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%s %d not found", o.Type, o.ID))
	}
	return nil
}

func fromRow(t Type, row database.Row) *Object {
	meta := Meta(row.Map("meta"))
	if meta == nil {
		meta = Meta{}
	}
	return &Object{Type: t, ID: row.Int64("id"), Meta: meta}
}
