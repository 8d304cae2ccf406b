package settings

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
	"nebula/internal/platform/database"
	"nebula/internal/platform/database/mocks"
)

func rows(rs ...database.Row) iter.Seq2[database.Row, error] {
	return func(yield func(database.Row, error) bool) {
		for _, r := range rs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func queryOn(table string) gomock.Matcher {
	return gomock.Cond(func(q any) bool {
		return strings.Contains(q.(string), "FROM "+table+" ")
	})
}

func TestSettings(t *testing.T) {
	db := mocks.NewMockDB(gomock.NewController(t))
	db.EXPECT().Iterate(gomock.Any(), queryOn("settings")).Return(rows(
		database.Row{"key": "site_name", "value": "studio"},
		database.Row{"key": "redis_port", "value": float64(6379)},
	))
	db.EXPECT().Iterate(gomock.Any(), queryOn("views")).Return(rows(
		database.Row{"id": int64(1), "settings": map[string]any{"name": "Main"}},
	))
	db.EXPECT().Iterate(gomock.Any(), queryOn("folders")).Return(rows(
		database.Row{"id": int64(1), "settings": map[string]any{"name": "Movie", "color": "#919191"}},
		database.Row{"id": int64(2), "settings": nil},
	))
	db.EXPECT().Iterate(gomock.Any(), queryOn("channels")).Return(rows())
	db.EXPECT().Iterate(gomock.Any(), queryOn("storages")).Return(rows())
	db.EXPECT().Iterate(gomock.Any(), queryOn("meta_types")).Return(rows(
		database.Row{"key": "title", "settings": map[string]any{"ns": "m", "type": "string"}},
	))
	db.EXPECT().Iterate(gomock.Any(), queryOn("actions")).Return(rows(
		database.Row{"id": int64(1), "title": "Proxy", "service_type": "conv"},
	))

	env := &endpoint.Env{DB: db}
	desc := New(env)[0].(endpoint.APIRequest).Describe()
	assert.Equal(t, []string{http.MethodGet, http.MethodPost}, desc.RouteMethods())
	assert.True(t, desc.ExcludeNone)

	user := objects.NewUser("editor", nil)
	resp, err := handler(env)(context.Background(), user)
	require.NoError(t, err)

	assert.Equal(t, "studio", resp.System["site_name"])
	assert.Equal(t, "Main", resp.Views[0]["name"])
	assert.Equal(t, int64(2), resp.Folders[1]["id"])
	assert.Empty(t, resp.Channels)
	assert.Equal(t, "string", resp.MetaTypes["title"]["type"])
	assert.Equal(t, []Action{{ID: 1, Title: "Proxy", ServiceType: "conv"}}, resp.Actions)
	assert.Same(t, user, resp.User)
}

func TestSettingsDatabaseError(t *testing.T) {
	db := mocks.NewMockDB(gomock.NewController(t))
	db.EXPECT().Iterate(gomock.Any(), gomock.Any()).Return(func(yield func(database.Row, error) bool) {
		yield(nil, errors.New("timeout"))
	})

	_, err := handler(&endpoint.Env{DB: db})(context.Background(), nil)
	assert.ErrorContains(t, err, "load system settings")
}
