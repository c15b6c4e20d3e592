package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rizus/passport/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newUserRepoForTest(t *testing.T) UserRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.PasswordAuth{}, &domain.AnonymousAuth{}); err != nil {
		t.Fatalf("migrate user tables: %v", err)
	}
	return NewUserRepository(db)
}

func TestUserRepositoryPasswordAuthRoundtrip(t *testing.T) {
	repo := newUserRepoForTest(t)

	user, err := repo.Create()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := repo.CreatePasswordAuth(user.ID, "alice", "hash"); err != nil {
		t.Fatalf("create password auth: %v", err)
	}

	auth, err := repo.FindPasswordAuthByLogin("alice")
	if err != nil {
		t.Fatalf("find by login: %v", err)
	}
	if auth.UserID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, auth.UserID)
	}
}

func TestUserRepositoryDuplicateLoginIsTaken(t *testing.T) {
	repo := newUserRepoForTest(t)

	u1, _ := repo.Create()
	u2, _ := repo.Create()
	if _, err := repo.CreatePasswordAuth(u1.ID, "alice", "h1"); err != nil {
		t.Fatalf("first auth: %v", err)
	}
	if _, err := repo.CreatePasswordAuth(u2.ID, "alice", "h2"); !errors.Is(err, ErrLoginTaken) {
		t.Fatalf("expected ErrLoginTaken, got %v", err)
	}
}

func TestUserRepositoryFindPasswordAuthNotFound(t *testing.T) {
	repo := newUserRepoForTest(t)

	if _, err := repo.FindPasswordAuthByLogin("nobody"); !errors.Is(err, ErrAuthNotFound) {
		t.Fatalf("expected ErrAuthNotFound, got %v", err)
	}
}

func TestUserRepositoryAuthsByUserIDs(t *testing.T) {
	repo := newUserRepoForTest(t)

	pwUser, _ := repo.Create()
	anonUser, _ := repo.Create()
	bothUser, _ := repo.Create()
	if _, err := repo.CreatePasswordAuth(pwUser.ID, "alice", "h"); err != nil {
		t.Fatalf("password auth: %v", err)
	}
	if _, err := repo.CreateAnonymousAuth(anonUser.ID, "anon-1"); err != nil {
		t.Fatalf("anonymous auth: %v", err)
	}
	if _, err := repo.CreateAnonymousAuth(bothUser.ID, "anon-2"); err != nil {
		t.Fatalf("anonymous auth: %v", err)
	}
	if _, err := repo.CreatePasswordAuth(bothUser.ID, "carol", "h"); err != nil {
		t.Fatalf("password auth: %v", err)
	}

	auths, err := repo.AuthsByUserIDs([]uint{pwUser.ID, anonUser.ID, bothUser.ID})
	if err != nil {
		t.Fatalf("auths by ids: %v", err)
	}
	if auths[pwUser.ID].Password == nil || auths[pwUser.ID].Anonymous != nil {
		t.Fatalf("unexpected auths for password user: %+v", auths[pwUser.ID])
	}
	if auths[anonUser.ID].Anonymous == nil || auths[anonUser.ID].Password != nil {
		t.Fatalf("unexpected auths for anonymous user: %+v", auths[anonUser.ID])
	}
	both := auths[bothUser.ID]
	if both.Password == nil || both.Anonymous == nil {
		t.Fatalf("expected both auth methods, got %+v", both)
	}
	if got := both.Login(); got != "carol" {
		t.Fatalf("expected password login preferred, got %q", got)
	}
	types := both.Types()
	if len(types) != 2 || types[0] != domain.AuthTypeAnonymous || types[1] != domain.AuthTypePassword {
		t.Fatalf("unexpected auth type order: %v", types)
	}
}

func TestUserRepositoryUpdatePasswordLogin(t *testing.T) {
	repo := newUserRepoForTest(t)

	u1, _ := repo.Create()
	u2, _ := repo.Create()
	if _, err := repo.CreatePasswordAuth(u1.ID, "alice", "h"); err != nil {
		t.Fatalf("auth 1: %v", err)
	}
	if _, err := repo.CreatePasswordAuth(u2.ID, "bob", "h"); err != nil {
		t.Fatalf("auth 2: %v", err)
	}

	if err := repo.UpdatePasswordLogin(u1.ID, "alice2"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := repo.FindPasswordAuthByLogin("alice2"); err != nil {
		t.Fatalf("renamed login not found: %v", err)
	}
	if err := repo.UpdatePasswordLogin(u1.ID, "bob"); !errors.Is(err, ErrLoginTaken) {
		t.Fatalf("expected ErrLoginTaken, got %v", err)
	}
	if err := repo.UpdatePasswordLogin(999, "free"); !errors.Is(err, ErrAuthNotFound) {
		t.Fatalf("expected ErrAuthNotFound for missing auth, got %v", err)
	}
}
