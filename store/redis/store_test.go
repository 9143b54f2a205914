package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	tContainer "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/octabyte/bm-identity/enums"
	"github.com/octabyte/bm-identity/models"
	"github.com/octabyte/bm-identity/store"
)

type RedisStoreTestSuite struct {
	suite.Suite
	ctx       context.Context
	container tContainer.Container
	store     *Store
}

func (s *RedisStoreTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := tContainer.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}
	container, err := tContainer.GenericContainer(s.ctx, tContainer.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	s.Require().NoError(err)

	s.container = container

	host, err := container.Host(s.ctx)
	s.Require().NoError(err)

	port, err := container.MappedPort(s.ctx, "6379")
	s.Require().NoError(err)

	cfg := Config{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
		Key:  "bm-identity:test:session",
	}
	client, err := NewRedisClient(s.ctx, cfg)
	s.Require().NoError(err)

	redisStore, err := New(client, cfg)
	s.Require().NoError(err)
	s.store = redisStore
}

func (s *RedisStoreTestSuite) TearDownSuite() {
	s.Require().NoError(s.container.Terminate(s.ctx))
}

func (s *RedisStoreTestSuite) SetupTest() {
	s.Require().NoError(s.store.Clear(s.ctx))
}

func (s *RedisStoreTestSuite) TestRequiresHashKey() {
	_, err := New(nil, Config{})
	s.Error(err)
}

func (s *RedisStoreTestSuite) TestItemRoundTrip() {
	value, err := s.store.GetItem(s.ctx, "missing")
	s.Require().NoError(err)
	s.Nil(value)

	s.Require().NoError(s.store.SetItem(s.ctx, "k", []byte("v")))
	value, err = s.store.GetItem(s.ctx, "k")
	s.Require().NoError(err)
	s.Equal([]byte("v"), value)

	s.Require().NoError(s.store.RemoveItem(s.ctx, "k"))
	value, err = s.store.GetItem(s.ctx, "k")
	s.Require().NoError(err)
	s.Nil(value)
}

func (s *RedisStoreTestSuite) TestCompositeSessionRoundTrip() {
	vault := store.NewVault(s.store)

	user := models.User{ID: 3, FirstName: "A", LastName: "B", FullName: "A B", Email: "a@x.com", Verified: 1, AccessToken: "tok"}
	loginType := models.SocialLogin(enums.ProviderLinkedin)

	s.Require().NoError(vault.SaveSession(s.ctx, user, "tok", loginType))

	s.Equal("tok", vault.Token())

	stored, present, err := vault.UserInfo(s.ctx)
	s.Require().NoError(err)
	s.Require().True(present)
	s.Equal(user, stored)

	storedType, present, err := vault.LoginType(s.ctx)
	s.Require().NoError(err)
	s.Require().True(present)
	s.Equal(loginType, storedType)

	s.Require().NoError(vault.ClearSession(s.ctx))
	s.Empty(vault.Token())
	_, present, err = vault.UserInfo(s.ctx)
	s.Require().NoError(err)
	s.False(present)
	_, present, err = vault.LoginType(s.ctx)
	s.Require().NoError(err)
	s.False(present)
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed store test in short mode")
	}
	suite.Run(t, new(RedisStoreTestSuite))
}
