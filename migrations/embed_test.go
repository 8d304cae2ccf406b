package migrations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"nebula/internal/platform/database/mocks"
)

func TestFiles(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_schema.up.sql", files[0])
}

func TestApply(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := mocks.NewMockDB(ctrl)

	t.Run("executes each file", func(t *testing.T) {
		db.EXPECT().Execute(gomock.Any(), gomock.Cond(func(q any) bool {
			return strings.Contains(q.(string), "CREATE TABLE IF NOT EXISTS assets")
		})).Return(int64(0), nil)

		require.NoError(t, Apply(context.Background(), db))
	})

	t.Run("reports the failing file", func(t *testing.T) {
		db.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("syntax error"))

		err := Apply(context.Background(), db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "001_schema.up.sql")
	})
}
