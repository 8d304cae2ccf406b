//go:build integration

package objects_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"nebula/internal/objects"
	dErrors "nebula/pkg/domain-errors"
	"nebula/pkg/testutil"
	"nebula/pkg/testutil/containers"
)

type ObjectsIntegrationSuite struct {
	suite.Suite
	pg  *containers.PostgresContainer
	ctx context.Context
}

func TestObjectsIntegrationSuite(t *testing.T) {
	suite.Run(t, new(ObjectsIntegrationSuite))
}

func (s *ObjectsIntegrationSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.ctx = context.Background()
}

func (s *ObjectsIntegrationSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *ObjectsIntegrationSuite) TestSaveAndLoad() {
	asset := s.pg.CreateTestAsset(s.ctx, s.T(), testutil.NewAssetBuilder().WithTitle("Morning show").Build().Meta)
	s.Positive(asset.ID)

	loaded, err := objects.Load(s.ctx, s.pg.DB, objects.TypeAsset, asset.ID)
	s.Require().NoError(err)
	s.Equal("Morning show", loaded.Meta.String("title"))
	s.Equal(int64(1), loaded.Meta.Int64("id_folder"))
}

func (s *ObjectsIntegrationSuite) TestUpdateMergesMetadata() {
	asset := s.pg.CreateTestAsset(s.ctx, s.T(), objects.Meta{"title": "Draft", "status": 0})

	update := &objects.Object{Type: objects.TypeAsset, ID: asset.ID, Meta: objects.Meta{"status": 1}}
	s.Require().NoError(objects.Save(s.ctx, s.pg.DB, update))

	loaded, err := objects.Load(s.ctx, s.pg.DB, objects.TypeAsset, asset.ID)
	s.Require().NoError(err)
	s.Equal("Draft", loaded.Meta.String("title"))
	s.Equal(int64(1), loaded.Meta.Int64("status"))
}

func (s *ObjectsIntegrationSuite) TestUpdateMissingObject() {
	err := objects.Save(s.ctx, s.pg.DB, &objects.Object{Type: objects.TypeAsset, ID: 999, Meta: objects.Meta{"a": 1}})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ObjectsIntegrationSuite) TestLoadManyOmitsMissing() {
	a := s.pg.CreateTestAsset(s.ctx, s.T(), objects.Meta{"title": "A"})
	b := s.pg.CreateTestAsset(s.ctx, s.T(), objects.Meta{"title": "B"})

	list, err := objects.LoadMany(s.ctx, s.pg.DB, objects.TypeAsset, []int64{b.ID, 12345, a.ID})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(a.ID, list[0].ID)
	s.Equal(b.ID, list[1].ID)
}

func (s *ObjectsIntegrationSuite) TestFindUserByLogin() {
	created := s.pg.CreateTestUser(s.ctx, s.T(), testutil.NewUserBuilder().WithLogin("producer").WithScopes("asset_edit").Build())

	user, err := objects.FindUserByLogin(s.ctx, s.pg.DB, "producer")
	s.Require().NoError(err)
	s.Equal(created.ID, user.ID)
	s.True(user.HasScopes("asset_edit"))

	_, err = objects.FindUserByLogin(s.ctx, s.pg.DB, "nobody")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
