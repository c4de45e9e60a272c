package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"
	"retail-bank/internal/core/ports/mocks"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authDeps struct {
	svc      *AuthServiceImpl
	userRepo *mocks.MockUserRepository
	hashSvc  *mocks.MockHashService
	tokenSvc *mocks.MockTokenService
}

func setupAuthService(t *testing.T) *authDeps {
	ctrl := gomock.NewController(t)
	d := &authDeps{
		userRepo: mocks.NewMockUserRepository(ctrl),
		hashSvc:  mocks.NewMockHashService(ctrl),
		tokenSvc: mocks.NewMockTokenService(ctrl),
	}
	d.svc = NewAuthService(d.userRepo, d.hashSvc, d.tokenSvc, newTestLogger())
	return d
}

func validRegisterRequest() ports.RegisterRequest {
	return ports.RegisterRequest{
		FullName:        gofakeit.Name(),
		Email:           gofakeit.Email(),
		PhoneNumber:     "9876543210",
		Password:        "StrongPass1",
		ConfirmPassword: "StrongPass1",
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()
	req := validRegisterRequest()

	d.userRepo.EXPECT().GetByPhone(ctx, req.PhoneNumber).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(req.Password).Return("$2a$hashed", nil)
	d.userRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, u *domain.User) error {
			assert.Equal(t, domain.RoleCustomer, u.Role)
			assert.Equal(t, "$2a$hashed", u.PasswordHash)
			return nil
		})

	user, err := d.svc.Register(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, req.PhoneNumber, user.PhoneNumber)
	assert.Equal(t, domain.RoleCustomer, user.Role)
}

func TestAuthService_Register_ValidationFails(t *testing.T) {
	d := setupAuthService(t)
	req := validRegisterRequest()
	req.ConfirmPassword = "different"

	_, err := d.svc.Register(context.Background(), req)
	assertAppError(t, err, "VAL_001")
}

func TestAuthService_Register_PhoneTaken(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()
	req := validRegisterRequest()

	d.userRepo.EXPECT().GetByPhone(ctx, req.PhoneNumber).Return(&domain.User{ID: uuid.New()}, nil)

	_, err := d.svc.Register(ctx, req)
	assertAppError(t, err, "CNF_003")
}

func TestAuthService_Register_PhoneTakenByRace(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()
	req := validRegisterRequest()

	d.userRepo.EXPECT().GetByPhone(ctx, req.PhoneNumber).Return(nil, nil)
	d.hashSvc.EXPECT().Hash(req.Password).Return("hash", nil)
	d.userRepo.EXPECT().Create(ctx, gomock.Any()).Return(ports.ErrDuplicatePhone)

	_, err := d.svc.Register(ctx, req)
	assertAppError(t, err, "CNF_003")
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), PhoneNumber: "9876543210", PasswordHash: "hash", Role: domain.RoleAdmin}
	exp := time.Now().Add(time.Hour)

	d.userRepo.EXPECT().GetByPhone(ctx, user.PhoneNumber).Return(user, nil)
	d.hashSvc.EXPECT().Verify("correct", "hash").Return(true, nil)
	d.tokenSvc.EXPECT().Generate(user.ID, domain.RoleAdmin).Return("jwt_token_here", exp, nil)

	res, err := d.svc.Login(ctx, ports.LoginRequest{PhoneNumber: user.PhoneNumber, Password: "correct"})
	require.NoError(t, err)
	assert.Equal(t, "jwt_token_here", res.Token)
	assert.Equal(t, exp, res.ExpiresAt)
	assert.Equal(t, user, res.User)
}

func TestAuthService_Login_UnknownPhone(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()

	d.userRepo.EXPECT().GetByPhone(ctx, "9876543210").Return(nil, nil)

	_, err := d.svc.Login(ctx, ports.LoginRequest{PhoneNumber: "9876543210", Password: "x"})
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()
	user := &domain.User{ID: uuid.New(), PhoneNumber: "9876543210", PasswordHash: "hash"}

	d.userRepo.EXPECT().GetByPhone(ctx, user.PhoneNumber).Return(user, nil)
	d.hashSvc.EXPECT().Verify("wrong", "hash").Return(false, nil)

	_, err := d.svc.Login(ctx, ports.LoginRequest{PhoneNumber: user.PhoneNumber, Password: "wrong"})
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_RepoError(t *testing.T) {
	d := setupAuthService(t)
	ctx := context.Background()

	d.userRepo.EXPECT().GetByPhone(ctx, "9876543210").Return(nil, errors.New("db down"))

	_, err := d.svc.Login(ctx, ports.LoginRequest{PhoneNumber: "9876543210", Password: "x"})
	assertAppError(t, err, "SYS_001")
}

func TestAuthService_ResetPassword(t *testing.T) {
	admin := domain.Caller{UserID: uuid.New(), Role: domain.RoleAdmin}
	req := ports.ResetPasswordRequest{PhoneNumber: "9876543210", NewPassword: "newpass1", ConfirmPassword: "newpass1"}

	t.Run("success", func(t *testing.T) {
		d := setupAuthService(t)
		ctx := context.Background()
		user := &domain.User{ID: uuid.New(), PhoneNumber: req.PhoneNumber}

		d.userRepo.EXPECT().GetByPhone(ctx, req.PhoneNumber).Return(user, nil)
		d.hashSvc.EXPECT().Hash("newpass1").Return("newhash", nil)
		d.userRepo.EXPECT().UpdatePassword(ctx, user.ID, "newhash").Return(nil)

		require.NoError(t, d.svc.ResetPassword(ctx, admin, req))
	})

	t.Run("customer is refused", func(t *testing.T) {
		d := setupAuthService(t)
		err := d.svc.ResetPassword(context.Background(), domain.Caller{UserID: uuid.New(), Role: domain.RoleCustomer}, req)
		assertAppError(t, err, "AUTHZ_001")
	})

	t.Run("unknown user", func(t *testing.T) {
		d := setupAuthService(t)
		ctx := context.Background()
		d.userRepo.EXPECT().GetByPhone(ctx, req.PhoneNumber).Return(nil, nil)

		err := d.svc.ResetPassword(ctx, admin, req)
		assertAppError(t, err, "NF_001")
	})

	t.Run("mismatched confirmation", func(t *testing.T) {
		d := setupAuthService(t)
		bad := req
		bad.ConfirmPassword = "other"
		err := d.svc.ResetPassword(context.Background(), admin, bad)
		assertAppError(t, err, "VAL_001")
	})
}
