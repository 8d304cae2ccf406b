package auth

import (
	"context"
	"iter"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	nauth "nebula/internal/auth"
	"nebula/internal/endpoint"
	"nebula/internal/objects"
	"nebula/internal/platform/database"
	"nebula/internal/platform/database/mocks"
	dErrors "nebula/pkg/domain-errors"
	"nebula/pkg/requestcontext"
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

type AuthUnitSuite struct {
	suite.Suite
	ctx     context.Context
	db      *mocks.MockDB
	env     *endpoint.Env
	service *nauth.Service
	hash    string
}

func TestAuthUnitSuite(t *testing.T) {
	suite.Run(t, new(AuthUnitSuite))
}

func (s *AuthUnitSuite) SetupSuite() {
	hash, err := nauth.HashPassword("s3cret")
	s.Require().NoError(err)
	s.hash = hash
}

func (s *AuthUnitSuite) SetupTest() {
	s.ctx = requestcontext.WithClientMetadata(context.Background(), "192.0.2.1",
		"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0")
	s.db = mocks.NewMockDB(gomock.NewController(s.T()))
	s.service = nauth.NewService(s.db, nauth.NewTokenService("unit-key", time.Hour), nil)
	s.env = &endpoint.Env{DB: s.db, Auth: s.service, Logger: slog.New(slog.DiscardHandler)}
}

func (s *AuthUnitSuite) userRow() database.Row {
	return database.Row{"id": int64(3), "meta": map[string]any{"login": "editor", "password": s.hash}}
}

func (s *AuthUnitSuite) TestExports() {
	exports := New(s.env)
	s.Require().Len(exports, 2)
	s.Equal("login", exports[0].(endpoint.APIRequest).Describe().Name)
	s.True(exports[0].(endpoint.APIRequest).Describe().Anonymous)
	s.Equal("logout", exports[1].(endpoint.APIRequest).Describe().Name)
	s.False(exports[1].(endpoint.APIRequest).Describe().Anonymous)
}

func (s *AuthUnitSuite) TestLogin() {
	s.db.EXPECT().Iterate(gomock.Any(), gomock.Any(), "editor").Return(rows(s.userRow()))

	req := &LoginRequest{Username: "  editor ", Password: "s3cret"}
	req.Normalize()
	resp, err := login(s.env)(s.ctx, req, nil)

	s.Require().NoError(err)
	s.Equal("bearer", resp.TokenType)
	s.NotEmpty(resp.AccessToken)
	s.Equal("editor", resp.User.Login())

	s.db.EXPECT().Iterate(gomock.Any(), gomock.Any(), int64(3)).Return(rows(s.userRow()))
	user, _, err := s.service.Authenticate(s.ctx, resp.AccessToken)
	s.Require().NoError(err)
	s.Equal(int64(3), user.ID)
}

func (s *AuthUnitSuite) TestLoginWrongPassword() {
	s.db.EXPECT().Iterate(gomock.Any(), gomock.Any(), "editor").Return(rows(s.userRow()))

	_, err := login(s.env)(s.ctx, &LoginRequest{Username: "editor", Password: "nope"}, nil)

	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *AuthUnitSuite) TestLogoutRevokesToken() {
	s.db.EXPECT().Iterate(gomock.Any(), gomock.Any(), "editor").Return(rows(s.userRow()))
	session, err := s.service.Login(s.ctx, "editor", "s3cret")
	s.Require().NoError(err)

	ctx := requestcontext.WithUser(s.ctx, session.User, session.TokenID)
	resp, err := logout(s.env)(ctx, session.User)
	s.Require().NoError(err)
	s.Equal("Logged out", resp.Detail)

	_, _, err = s.service.Authenticate(s.ctx, session.Token)
	s.ErrorContains(err, "token revoked")
}

func (s *AuthUnitSuite) TestLogoutWithoutToken() {
	_, err := logout(s.env)(s.ctx, objects.NewUser("editor", nil))
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
