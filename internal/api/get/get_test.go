package get

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
	"nebula/internal/platform/database"
	"nebula/internal/platform/database/mocks"
	dErrors "nebula/pkg/domain-errors"
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

func TestGet(t *testing.T) {
	ctx := context.Background()

	t.Run("loads assets by default", func(t *testing.T) {
		db := mocks.NewMockDB(gomock.NewController(t))
		db.EXPECT().Iterate(gomock.Any(), gomock.Any(), []int64{1, 2}).Return(rows(
			database.Row{"id": int64(1), "meta": map[string]any{"title": "News"}},
			database.Row{"id": int64(2), "meta": map[string]any{"title": "Weather"}},
		))
		req := &Request{IDs: []int64{1, 2}}
		req.Normalize()

		resp, err := handler(&endpoint.Env{DB: db})(ctx, req, nil)
		require.NoError(t, err)
		require.Len(t, resp.Data, 2)
		assert.Equal(t, objects.TypeAsset, resp.Data[0].Type)
		assert.Equal(t, "Weather", resp.Data[1].Meta.String("title"))
	})

	t.Run("hides user passwords", func(t *testing.T) {
		db := mocks.NewMockDB(gomock.NewController(t))
		db.EXPECT().Iterate(gomock.Any(), gomock.Any(), []int64{5}).Return(rows(
			database.Row{"id": int64(5), "meta": map[string]any{"login": "ed", "password": "$2a$hash"}},
		))

		resp, err := handler(&endpoint.Env{DB: db})(ctx, &Request{ObjectType: "user", IDs: []int64{5}}, nil)
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.NotContains(t, resp.Data[0].Meta, "password")
		assert.Equal(t, "ed", resp.Data[0].Meta.String("login"))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := handler(&endpoint.Env{})(ctx, &Request{ObjectType: "playlist", IDs: []int64{1}}, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("database failure", func(t *testing.T) {
		db := mocks.NewMockDB(gomock.NewController(t))
		db.EXPECT().Iterate(gomock.Any(), gomock.Any(), gomock.Any()).Return(func(yield func(database.Row, error) bool) {
			yield(nil, errors.New("connection reset"))
		})

		_, err := handler(&endpoint.Env{DB: db})(ctx, &Request{ObjectType: "asset", IDs: []int64{1}}, nil)
		assert.ErrorContains(t, err, "connection reset")
	})
}
