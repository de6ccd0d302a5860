package user_test

import (
	"context"
	"net/mail"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/user"
	emailsvc "github.com/mwalimu/darasa/services/email"
	dummydb "github.com/mwalimu/darasa/storage/database/dummy"
)

const testPassword = "V3ry-Str0ng-Pass"

func setup(t *testing.T) *user.Service {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := &core.Config{
		AppName:                  "Darasa",
		BaseURL:                  "http://localhost:8000",
		SecretKey:                []byte("secret"),
		DefaultFromEmail:         mail.Address{Name: "Darasa", Address: "noreply@localhost"},
		VerificationTimeoutDelta: 72 * time.Hour,
		TestMode:                 true,
	}
	emailsvc.SentMessages = nil
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	return user.NewService(conf, dummydb.NewUserRepository(db), mailSvc)
}

func createUser(t *testing.T, svc *user.Service, email string, roles ...string) user.User {
	t.Helper()
	usr, err := svc.Create(context.Background(), user.NewUser{
		Name:            "Jane Doe",
		Email:           email,
		Password:        testPassword,
		PasswordConfirm: testPassword,
		Roles:           roles,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func TestService_Create(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	usr := createUser(t, svc, "jane@test.cd")
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, []string{user.RoleLearner}, usr.Roles, "role defaults to learner")
	assert.False(t, usr.IsVerified())
	assert.NoError(t, usr.CheckPassword(testPassword))

	// a verification email goes out on create
	if assert.Len(t, emailsvc.SentMessages, 1) {
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, "jane@test.cd", msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "/verify?")
	}

	got, err := svc.GetByEmail(ctx, " Jane@Test.CD ")
	assert.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
}

func TestNewUser_Validate(t *testing.T) {
	svc := setup(t)
	createUser(t, svc, "jane@test.cd")

	tests := []struct {
		name    string
		nu      user.NewUser
		wantErr string
	}{
		{
			name: "ok",
			nu: user.NewUser{
				Name: "John Doe", Email: "john@test.cd",
				Password: testPassword, PasswordConfirm: testPassword,
			},
		},
		{
			name: "duplicate email",
			nu: user.NewUser{
				Name: "Jane Bis", Email: "jane@test.cd",
				Password: testPassword, PasswordConfirm: testPassword,
			},
			wantErr: user.ErrEmailExists.Error(),
		},
		{
			name: "password mismatch",
			nu: user.NewUser{
				Name: "John Doe", Email: "john2@test.cd",
				Password: testPassword, PasswordConfirm: "something-else",
			},
			wantErr: "PasswordConfirm",
		},
		{
			name: "unknown role",
			nu: user.NewUser{
				Name: "John Doe", Email: "john3@test.cd",
				Password: testPassword, PasswordConfirm: testPassword,
				Roles: []string{"superuser"},
			},
			wantErr: "Roles",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(svc)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := createUser(t, svc, "jane@test.cd")

	got, err := svc.Authenticate(ctx, "jane@test.cd", testPassword)
	assert.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = svc.Authenticate(ctx, "jane@test.cd", "wrong-pass")
	assert.Equal(t, user.ErrNotFound, err, "bad password is indistinguishable from unknown user")

	_, err = svc.Authenticate(ctx, "nobody@test.cd", testPassword)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_Verify(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := createUser(t, svc, "jane@test.cd")

	// pull uid and token out of the emailed link
	msg := emailsvc.SentMessages[0]
	idx := strings.Index(msg.TextContent, "/verify?")
	if idx < 0 {
		t.Fatalf("no verification link in %q", msg.TextContent)
	}
	rawQuery := strings.TrimSpace(msg.TextContent[idx+len("/verify?"):])
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatalf("ParseQuery() failed: %v", err)
	}

	vu := user.VerifyUser{UID: q.Get("uid"), Token: q.Get("token")}
	got, err := svc.Verify(ctx, vu)
	assert.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.True(t, got.IsVerified())

	// verifying again is a no-op, not an error
	got, err = svc.Verify(ctx, vu)
	assert.NoError(t, err)
	assert.True(t, got.IsVerified())

	_, err = svc.Verify(ctx, user.VerifyUser{UID: vu.UID, Token: "forged-token"})
	assert.Error(t, err)

	_, err = svc.Verify(ctx, user.VerifyUser{UID: "not-a-uid", Token: vu.Token})
	assert.Error(t, err)
}

func TestService_Update(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := createUser(t, svc, "jane@test.cd")

	got, err := svc.Update(ctx, usr.ID, user.UpdateUser{
		Name:  "Jane Smith",
		Email: "jane.smith@test.cd",
		Roles: []string{user.RoleLearner, user.RoleClassOwner},
	})
	assert.NoError(t, err)
	assert.Equal(t, "Jane Smith", got.Name)
	assert.Equal(t, "jane.smith@test.cd", got.Email)
	assert.True(t, got.IsClassOwner())
	assert.NoError(t, got.CheckPassword(testPassword), "password unchanged when not provided")

	_, err = svc.Update(ctx, "00000000-0000-0000-0000-000000000000", user.UpdateUser{Name: "X"})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_Delete(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	usr := createUser(t, svc, "jane@test.cd")

	assert.NoError(t, svc.Delete(ctx, usr.ID))

	_, err := svc.GetByID(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, err)
}
