package main

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/mwalimu/darasa/core/user"
	dummydb "github.com/mwalimu/darasa/storage/database/dummy"
	"github.com/mwalimu/darasa/storage/database/migrate"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	seedFS := fstest.MapFS{
		"seeds/001_credits.sql": {Data: []byte("INSERT INTO credits (code) VALUES ('MATH')")},
	}

	// start CLI
	return &commandLine{
		usrRepo: usrRepo,
		seeder:  migrate.NewSeeder(nil, seedFS, "seeds", nil),
	}
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func checkCLIErr(t *testing.T, err error, tt cliTest) {
	t.Helper()
	if err != nil {
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() expected an error, got nil")
	}
}

func Test_commandLine_run(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", args: nil, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate: unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such migrate command"},
		{name: "migrate: mark without name", args: []string{"migrate", "mark"}, wantErrStr: "mark must be of form: migrate mark NAME"},
		{name: "seed: unknown subcommand", args: []string{"seed", "lol"}, wantErrStr: "\"lol\": no such seed command"},
		{name: "seed: list", args: []string{"seed", "list"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCLIErr(t, cli.run(args), tt)
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	mockPassword(t, "mdr")

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"adduser", "-name", "Awe"}, wantErr: errHelp},
		{name: "learner", args: []string{"adduser", "-name", "Awe", "-email", "awe@test.cd"}},
		{name: "owner", args: []string{"adduser", "-name", "Owen", "-email", "owen@test.cd", "-owner"}},
		{name: "admin", args: []string{"adduser", "-name", "Root", "-email", "root@test.cd", "-admin"}},
		{name: "update existing", args: []string{"adduser", "-name", "Awe Again", "-email", "awe@test.cd", "-owner"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCLIErr(t, cli.run(args), tt)
		})
	}

	ctx := context.Background()

	usr, err := usrRepo.GetUserByEmail(ctx, "awe@test.cd")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed: %v", err)
	}
	if usr.Name != "Awe Again" {
		t.Errorf("Name = %q, want %q", usr.Name, "Awe Again")
	}
	if !usr.IsClassOwner() {
		t.Errorf("expected class-owner role, got %v", usr.Roles)
	}
	if !usr.IsVerified() {
		t.Error("CLI-created user should be verified")
	}
	if err = usr.CheckPassword("mdr"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}

	root, err := usrRepo.GetUserByEmail(ctx, "root@test.cd")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed: %v", err)
	}
	if !root.IsAdmin() {
		t.Errorf("expected admin role, got %v", root.Roles)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	mockPassword(t, "old-pass")

	if err := cli.run([]string{"admin", "adduser", "-name", "Awe", "-email", "awe@test.cd"}); err != nil {
		t.Fatalf("adduser failed: %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"resetpassword", "-email", "nope@test.cd"}, wantErr: user.ErrNotFound},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkCLIErr(t, cli.run(args), tt)
		})
	}

	mockPassword(t, "new-pass")
	if err := cli.run([]string{"admin", "resetpassword", "-email", "awe@test.cd"}); err != nil {
		t.Fatalf("resetpassword failed: %v", err)
	}

	usr, err := usrRepo.GetUserByEmail(context.Background(), "awe@test.cd")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed: %v", err)
	}
	if err = usr.CheckPassword("new-pass"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
	if err = usr.CheckPassword("old-pass"); err == nil {
		t.Error("old password still accepted")
	}
}
