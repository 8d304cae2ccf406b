//go:build integration

package seeder

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"nebula/internal/auth"
	"nebula/internal/objects"
	"nebula/internal/platform/database"
	"nebula/pkg/testutil/containers"
)

type SeedIntegrationSuite struct {
	suite.Suite
	pg  *containers.PostgresContainer
	ctx context.Context
}

func TestSeedIntegrationSuite(t *testing.T) {
	suite.Run(t, new(SeedIntegrationSuite))
}

func (s *SeedIntegrationSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.ctx = context.Background()
}

func (s *SeedIntegrationSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *SeedIntegrationSuite) count(table string) int64 {
	row, err := database.FetchOne(s.ctx, s.pg.DB, "SELECT count(*) AS n FROM "+table)
	s.Require().NoError(err)
	return row.Int64("n")
}

func (s *SeedIntegrationSuite) seeder(opts Options) *Seeder {
	return New(s.pg.DB, slog.New(slog.DiscardHandler), opts)
}

func (s *SeedIntegrationSuite) TestDefaultsAreRepeatable() {
	t := Defaults()
	opts := Options{SiteName: "nebula", RedisURL: "redis://cache:6380/0", AdminPassword: "first"}

	s.Require().NoError(s.seeder(opts).Seed(s.ctx, t))
	opts.AdminPassword = "second"
	s.Require().NoError(s.seeder(opts).Seed(s.ctx, t))

	s.Equal(int64(len(t.Views)), s.count("views"))
	s.Equal(int64(len(t.Folders)), s.count("folders"))
	s.Equal(int64(len(t.MetaTypes)), s.count("meta_types"))
	s.Equal(int64(len(t.Services)), s.count("services"))
	s.Equal(int64(len(t.Actions)), s.count("actions"))
	s.Equal(int64(len(t.Channels)), s.count("channels"))
	s.Equal(int64(len(t.Storages)), s.count("storages"))
	s.Equal(int64(1), s.count("users"))

	row, err := database.FetchOne(s.ctx, s.pg.DB, "SELECT value FROM settings WHERE key = 'redis_port'")
	s.Require().NoError(err)
	s.Equal(float64(6380), row["value"])

	admin, err := objects.FindUserByLogin(s.ctx, s.pg.DB, "admin")
	s.Require().NoError(err)
	s.True(admin.Admin())
	s.True(auth.CheckPassword(admin.PasswordHash(), "second"))
}

func (s *SeedIntegrationSuite) TestNewFolderGetsNextId() {
	s.Require().NoError(s.seeder(Options{SiteName: "nebula"}).Seed(s.ctx, Defaults()))

	row, err := database.FetchOne(s.ctx, s.pg.DB, "INSERT INTO folders (settings) VALUES ('{}') RETURNING id")
	s.Require().NoError(err)
	s.Equal(int64(len(Defaults().Folders)+1), row.Int64("id"))
}

func (s *SeedIntegrationSuite) TestClassifications() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"cs":"urn:genre","data":{"news":{"title":"News"},"sport":{"title":"Sport"}}}]`))
	}))
	defer srv.Close()

	s.Require().NoError(s.seeder(Options{SiteName: "nebula", ClassificationsURL: srv.URL}).Seed(s.ctx, Defaults()))

	rows, err := s.pg.DB.Fetch(s.ctx, "SELECT value FROM cs WHERE cs = 'urn:genre' ORDER BY value")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("news", rows[0].String("value"))
	s.Equal("sport", rows[1].String("value"))
}
