package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/internal/users"
	pkgAuth "github.com/sarana-io/lending-backend/pkg/auth"
	"github.com/sarana-io/lending-backend/pkg/config"
	"github.com/sarana-io/lending-backend/pkg/db"
	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "lending-backend-test",
		ExpirationMinutes: 15,
	}
}

// low-cost argon parameters keep the test fast
func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newAuthFixture(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}, &models.Account{}))

	svc, err := NewService(ServiceParams{
		Tx:             db.NewWithConn(conn),
		UserRepo:       users.NewRepository(conn),
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	require.NoError(t, err)
	return svc, conn
}

func TestRegisterCreatesUserAndAccount(t *testing.T) {
	svc, conn := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "alice@example.com", resp.User.Email)
	require.Equal(t, enums.UserRoleUser, resp.User.Role)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)
	require.Equal(t, enums.UserRoleUser, claims.Role)

	var account models.Account
	require.NoError(t, conn.Where("user_id = ?", resp.User.ID).First(&account).Error)
	require.True(t, account.Balance.IsZero())
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "correct horse battery"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Other", Email: "ALICE@example.com", Password: "another password"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "correct horse battery"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correct horse battery"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	_, err = svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrong password"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	svc, conn := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "correct horse battery"})
	require.NoError(t, err)

	require.NoError(t, conn.Model(&models.User{}).
		Where("id = ?", resp.User.ID).
		Update("is_active", false).Error)

	_, err = svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correct horse battery"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing name", RegisterRequest{Email: "a@b.com", Password: "longenough"}},
		{"missing email", RegisterRequest{Name: "A", Password: "longenough"}},
		{"short password", RegisterRequest{Name: "A", Email: "a@b.com", Password: "short"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			require.Error(t, err)
			require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}
