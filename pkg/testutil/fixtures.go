package testutil

import (
	"nebula/internal/objects"
)

// TestIDs provides fixed object ids for deterministic test data.
var TestIDs = struct {
	AdminID  int64
	EditorID int64
	AssetID1 int64
	AssetID2 int64
}{
	AdminID:  1,
	EditorID: 2,
	AssetID1: 101,
	AssetID2: 102,
}

// UserBuilder provides a fluent interface for building test users.
type UserBuilder struct {
	user *objects.User
}

// NewUserBuilder creates a non-admin user without scopes.
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		user: objects.NewUser("editor", objects.Meta{
			"full_name": "Test Editor",
		}),
	}
}

func (b *UserBuilder) WithID(id int64) *UserBuilder {
	b.user.ID = id
	return b
}

func (b *UserBuilder) WithLogin(login string) *UserBuilder {
	b.user.Meta["login"] = login
	return b
}

func (b *UserBuilder) WithScopes(scopes ...string) *UserBuilder {
	b.user.Meta["scopes"] = scopes
	return b
}

// WithPasswordHash stores an already hashed password.
func (b *UserBuilder) WithPasswordHash(hash string) *UserBuilder {
	b.user.Meta["password"] = hash
	return b
}

func (b *UserBuilder) Admin() *UserBuilder {
	b.user.Meta["is_admin"] = true
	return b
}

func (b *UserBuilder) Build() *objects.User {
	return b.user
}

// AssetBuilder provides a fluent interface for building test assets.
type AssetBuilder struct {
	asset *objects.Object
}

// NewAssetBuilder creates a video asset in folder 1.
func NewAssetBuilder() *AssetBuilder {
	return &AssetBuilder{
		asset: objects.New(objects.TypeAsset, objects.Meta{
			"title":        "Test Asset",
			"id_folder":    int64(1),
			"media_type":   int64(1),
			"content_type": int64(2),
		}),
	}
}

func (b *AssetBuilder) WithID(id int64) *AssetBuilder {
	b.asset.ID = id
	return b
}

func (b *AssetBuilder) WithTitle(title string) *AssetBuilder {
	b.asset.Meta["title"] = title
	return b
}

func (b *AssetBuilder) InFolder(folder int64) *AssetBuilder {
	b.asset.Meta["id_folder"] = folder
	return b
}

// With sets an arbitrary metadata key.
func (b *AssetBuilder) With(key string, value any) *AssetBuilder {
	b.asset.Meta[key] = value
	return b
}

func (b *AssetBuilder) Build() *objects.Object {
	return b.asset
}

// NewTestEditor returns a user holding asset_edit.
func NewTestEditor() *objects.User {
	return NewUserBuilder().WithID(TestIDs.EditorID).WithScopes("asset_edit").Build()
}

// NewTestAdmin returns an admin user.
func NewTestAdmin() *objects.User {
	return NewUserBuilder().WithID(TestIDs.AdminID).WithLogin("admin").Admin().Build()
}
