package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rizus/passport/internal/domain"
	"github.com/rizus/passport/internal/repository"
	"github.com/rizus/passport/internal/security"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newPassportForTest(t *testing.T) *PassportService {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.PasswordAuth{},
		&domain.AnonymousAuth{},
		&domain.Token{},
		&domain.UserToken{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	codec := security.NewTokenCodec("passport", "passport-clients", "a-secret", "r-secret", time.Minute, time.Hour)
	return NewPassportService(
		db,
		repository.NewUserRepository(db),
		repository.NewTokenRepository(db),
		codec,
		security.NewPasswordHasher(4),
		NewInMemoryBusyLoginCacheStore(),
		time.Minute,
	)
}

func toCreds(issued *IssuedTokens) Credentials {
	if issued == nil {
		return Credentials{}
	}
	return Credentials{Access: issued.Access, Refresh: issued.Refresh}
}

func TestAuthWithoutCredentials(t *testing.T) {
	svc := newPassportForTest(t)

	if _, _, err := svc.Auth(context.Background(), Credentials{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, _, err := svc.Auth(context.Background(), Credentials{Access: "garbage", Refresh: "garbage"}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for garbage tokens, got %v", err)
	}
}

func TestRegisterByPasswordFreshSession(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	result, issued, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if issued == nil || issued.Access == "" || issued.Refresh == "" {
		t.Fatal("expected a fresh token pair")
	}
	if result.UserData.Login != "alice" {
		t.Fatalf("unexpected login %q", result.UserData.Login)
	}
	if len(result.PassiveUsersData) != 0 {
		t.Fatalf("expected no passive users, got %v", result.PassiveUsersData)
	}

	authed, rotated, err := svc.Auth(ctx, toCreds(issued))
	if err != nil {
		t.Fatalf("auth after register: %v", err)
	}
	if rotated != nil {
		t.Fatal("valid access token must not trigger a rotation")
	}
	if authed.UserData.ID != result.UserData.ID {
		t.Fatalf("expected user %d, got %d", result.UserData.ID, authed.UserData.ID)
	}
}

func TestRegisterByPasswordTakenLogin(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	if _, _, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, _, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "other-horse"); !errors.Is(err, ErrLoginTaken) {
		t.Fatalf("expected ErrLoginTaken, got %v", err)
	}
}

func TestRegisterAnonymousThenUpgrade(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	anon, issued, err := svc.RegisterAnonymous(ctx, Credentials{}, "guest1")
	if err != nil {
		t.Fatalf("register anonymous: %v", err)
	}
	if anon.UserData.Login != "guest1" {
		t.Fatalf("unexpected login %q", anon.UserData.Login)
	}
	if len(anon.UserData.AuthTypes) != 1 || anon.UserData.AuthTypes[0] != domain.AuthTypeAnonymous {
		t.Fatalf("unexpected auth types %v", anon.UserData.AuthTypes)
	}

	upgraded, issued2, err := svc.RegisterByPassword(ctx, toCreds(issued), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if upgraded.UserData.ID != anon.UserData.ID {
		t.Fatalf("upgrade must keep the user id, got %d want %d", upgraded.UserData.ID, anon.UserData.ID)
	}
	if upgraded.UserData.Login != "alice" {
		t.Fatalf("expected password login, got %q", upgraded.UserData.Login)
	}
	types := upgraded.UserData.AuthTypes
	if len(types) != 2 || types[0] != domain.AuthTypeAnonymous || types[1] != domain.AuthTypePassword {
		t.Fatalf("unexpected auth types %v", types)
	}

	// The pre-upgrade pair died with the rotation.
	if _, _, err := svc.Auth(ctx, Credentials{Refresh: issued.Refresh}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("old refresh must be dead, got %v", err)
	}
	if _, _, err := svc.Auth(ctx, toCreds(issued2)); err != nil {
		t.Fatalf("new pair must work: %v", err)
	}
}

func TestRegisterByPasswordWhileSignedInSpawnsNewIdentity(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	first, issued, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	second, _, err := svc.RegisterByPassword(ctx, toCreds(issued), "bob", "correct-horse")
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if second.UserData.ID == first.UserData.ID {
		t.Fatal("expected a brand new identity")
	}
	if second.UserData.Login != "bob" {
		t.Fatalf("unexpected active login %q", second.UserData.Login)
	}
	if len(second.PassiveUsersData) != 1 || second.PassiveUsersData[0].ID != first.UserData.ID {
		t.Fatalf("expected old account passive, got %+v", second.PassiveUsersData)
	}
}

func TestRegisterAnonymousDiscardsExistingSession(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	_, issued, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	fresh, issued2, err := svc.RegisterAnonymous(ctx, toCreds(issued), "")
	if err != nil {
		t.Fatalf("register anonymous: %v", err)
	}
	if len(fresh.PassiveUsersData) != 0 {
		t.Fatalf("anonymous restart must not carry passive users, got %+v", fresh.PassiveUsersData)
	}
	if _, _, err := svc.Auth(ctx, Credentials{Refresh: issued.Refresh}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("old session must be gone, got %v", err)
	}
	if _, _, err := svc.Auth(ctx, toCreds(issued2)); err != nil {
		t.Fatalf("new session must work: %v", err)
	}
}

func TestLoginAddsAccountAndKeepsOldActiveAsPassive(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	alice, _, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bob, bobTokens, err := svc.RegisterByPassword(ctx, Credentials{}, "bob", "correct-horse")
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}

	result, issued, err := svc.Login(ctx, toCreds(bobTokens), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if issued == nil {
		t.Fatal("login must rotate the pair")
	}
	if result.UserData.ID != alice.UserData.ID {
		t.Fatalf("expected alice active, got %d", result.UserData.ID)
	}
	if len(result.PassiveUsersData) != 1 || result.PassiveUsersData[0].ID != bob.UserData.ID {
		t.Fatalf("expected bob passive, got %+v", result.PassiveUsersData)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	if _, _, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Login(ctx, Credentials{}, "alice", "wrong-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, Credentials{}, "nobody", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown login, got %v", err)
	}
}

func TestRefreshRotationKillsOldPair(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	_, issued, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Only the refresh token remains, as after access expiry.
	result, rotated, err := svc.Auth(ctx, Credentials{Refresh: issued.Refresh})
	if err != nil {
		t.Fatalf("refresh auth: %v", err)
	}
	if rotated == nil {
		t.Fatal("expected a rotated pair")
	}
	if result.UserData.Login != "alice" {
		t.Fatalf("unexpected login %q", result.UserData.Login)
	}

	// Replaying the consumed refresh token must fail.
	if _, _, err := svc.Auth(ctx, Credentials{Refresh: issued.Refresh}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
	// The rotated pair works.
	if _, _, err := svc.Auth(ctx, toCreds(rotated)); err != nil {
		t.Fatalf("rotated pair must work: %v", err)
	}
}

func TestCheckoutSwapsActiveAndPassive(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	alice, _, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	_, bobTokens, err := svc.RegisterByPassword(ctx, Credentials{}, "bob", "correct-horse")
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	merged, mergedTokens, err := svc.Login(ctx, toCreds(bobTokens), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	bobID := merged.PassiveUsersData[0].ID

	result, issued, err := svc.Checkout(ctx, toCreds(mergedTokens), bobID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.UserData.ID != bobID {
		t.Fatalf("expected bob active, got %d", result.UserData.ID)
	}
	if len(result.PassiveUsersData) != 1 || result.PassiveUsersData[0].ID != alice.UserData.ID {
		t.Fatalf("expected alice passive, got %+v", result.PassiveUsersData)
	}
	if issued == nil {
		t.Fatal("checkout must rotate the pair")
	}
}

func TestCheckoutRequiresPassiveMembership(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	active, issued, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Checkout(ctx, toCreds(issued), 9999); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	// The active account is not in the passive set either.
	if _, _, err := svc.Checkout(ctx, toCreds(issued), active.UserData.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for self checkout, got %v", err)
	}
	if _, _, err := svc.Checkout(ctx, Credentials{}, 1); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated without session, got %v", err)
	}
}

func TestLogoutLastAccountRemovesSession(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	result, issued, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _, outcome, err := svc.Logout(ctx, toCreds(issued), result.UserData.ID)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if outcome != LogoutAllRemoved {
		t.Fatalf("expected LogoutAllRemoved, got %v", outcome)
	}
	if _, _, err := svc.Auth(ctx, toCreds(issued)); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("session must be gone, got %v", err)
	}
}

func TestLogoutActivePromotesFirstPassive(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	_, _, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bob, bobTokens, err := svc.RegisterByPassword(ctx, Credentials{}, "bob", "correct-horse")
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	merged, mergedTokens, err := svc.Login(ctx, toCreds(bobTokens), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	result, issued, outcome, err := svc.Logout(ctx, toCreds(mergedTokens), merged.UserData.ID)
	if err != nil {
		t.Fatalf("logout active: %v", err)
	}
	if outcome != LogoutRotated {
		t.Fatalf("expected LogoutRotated, got %v", outcome)
	}
	if result.UserData.ID != bob.UserData.ID {
		t.Fatalf("expected bob promoted, got %d", result.UserData.ID)
	}
	if len(result.PassiveUsersData) != 0 {
		t.Fatalf("expected empty passive set, got %+v", result.PassiveUsersData)
	}
	if issued == nil {
		t.Fatal("expected a rotated pair")
	}
}

func TestLogoutPassiveFiltersIt(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	alice, _, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bob, bobTokens, err := svc.RegisterByPassword(ctx, Credentials{}, "bob", "correct-horse")
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	_, mergedTokens, err := svc.Login(ctx, toCreds(bobTokens), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	result, _, outcome, err := svc.Logout(ctx, toCreds(mergedTokens), bob.UserData.ID)
	if err != nil {
		t.Fatalf("logout passive: %v", err)
	}
	if outcome != LogoutRotated {
		t.Fatalf("expected LogoutRotated, got %v", outcome)
	}
	if result.UserData.ID != alice.UserData.ID {
		t.Fatalf("active user must stay, got %d", result.UserData.ID)
	}
	if len(result.PassiveUsersData) != 0 {
		t.Fatalf("expected bob filtered out, got %+v", result.PassiveUsersData)
	}
}

func TestLogoutUnknownAccountIsNoop(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	_, issued, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _, outcome, err := svc.Logout(ctx, toCreds(issued), 9999)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if outcome != LogoutNotSignedIn {
		t.Fatalf("expected LogoutNotSignedIn, got %v", outcome)
	}
	// The session survives untouched.
	if _, _, err := svc.Auth(ctx, toCreds(issued)); err != nil {
		t.Fatalf("session must survive, got %v", err)
	}

	_, _, outcome, err = svc.Logout(ctx, Credentials{}, 1)
	if err != nil {
		t.Fatalf("logout without session: %v", err)
	}
	if outcome != LogoutNotSignedIn {
		t.Fatalf("expected LogoutNotSignedIn without session, got %v", outcome)
	}
}

func TestLogoutAll(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	_, bobTokens, err := svc.RegisterByPassword(ctx, Credentials{}, "bob", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse"); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	merged, mergedTokens, err := svc.Login(ctx, toCreds(bobTokens), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(merged.PassiveUsersData) != 1 {
		t.Fatalf("expected one passive user, got %+v", merged.PassiveUsersData)
	}

	outcome, err := svc.LogoutAll(ctx, toCreds(mergedTokens))
	if err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if outcome != LogoutAllRemoved {
		t.Fatalf("expected LogoutAllRemoved, got %v", outcome)
	}
	if _, _, err := svc.Auth(ctx, toCreds(mergedTokens)); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("session must be gone, got %v", err)
	}

	outcome, err = svc.LogoutAll(ctx, Credentials{})
	if err != nil {
		t.Fatalf("logout all without session: %v", err)
	}
	if outcome != LogoutNotSignedIn {
		t.Fatalf("expected LogoutNotSignedIn, got %v", outcome)
	}
}

func TestIsLoginBusy(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	busy, err := svc.IsLoginBusy(ctx, "alice")
	if err != nil {
		t.Fatalf("check free login: %v", err)
	}
	if busy {
		t.Fatal("unregistered login must be free")
	}

	if _, _, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	busy, err = svc.IsLoginBusy(ctx, "alice")
	if err != nil {
		t.Fatalf("check taken login: %v", err)
	}
	if !busy {
		t.Fatal("registered login must be busy")
	}
	// Second check is served from the cache.
	busy, err = svc.IsLoginBusy(ctx, "alice")
	if err != nil || !busy {
		t.Fatalf("cached check failed: busy=%v err=%v", busy, err)
	}
}

func TestChangeLogin(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	alice, issued, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.ChangeLogin(ctx, toCreds(issued), alice.UserData.ID, "alice2"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, _, err := svc.Login(ctx, Credentials{}, "alice2", "correct-horse"); err != nil {
		t.Fatalf("login with new name: %v", err)
	}
	if _, _, err := svc.Login(ctx, Credentials{}, "alice", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old name must be gone, got %v", err)
	}

	// Renaming somebody else's account is forbidden.
	if err := svc.ChangeLogin(ctx, toCreds(issued), alice.UserData.ID+100, "whatever"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	// Renaming without a session is unauthenticated.
	if err := svc.ChangeLogin(ctx, Credentials{}, alice.UserData.ID, "whatever"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestChangeLoginTakenAndAnonymous(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	if _, _, err := svc.RegisterByPassword(ctx, Credentials{}, "bob", "correct-horse"); err != nil {
		t.Fatalf("register bob: %v", err)
	}
	alice, issued, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if err := svc.ChangeLogin(ctx, toCreds(issued), alice.UserData.ID, "bob"); !errors.Is(err, ErrLoginTaken) {
		t.Fatalf("expected ErrLoginTaken, got %v", err)
	}

	anon, anonTokens, err := svc.RegisterAnonymous(ctx, Credentials{}, "")
	if err != nil {
		t.Fatalf("register anonymous: %v", err)
	}
	if err := svc.ChangeLogin(ctx, toCreds(anonTokens), anon.UserData.ID, "fresh"); !errors.Is(err, ErrNoPasswordAuth) {
		t.Fatalf("expected ErrNoPasswordAuth, got %v", err)
	}
}

// dropActiveFlags corrupts every stored session by clearing the active
// membership marker.
func dropActiveFlags(t *testing.T, svc *PassportService) {
	t.Helper()
	err := svc.db.Model(&domain.UserToken{}).
		Where("is_active_user = ?", true).
		Update("is_active_user", false).Error
	if err != nil {
		t.Fatalf("corrupt memberships: %v", err)
	}
}

func TestRegisterByPasswordOverCorruptSessionStartsFresh(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	_, issued, err := svc.RegisterAnonymous(ctx, Credentials{}, "")
	if err != nil {
		t.Fatalf("register anonymous: %v", err)
	}
	dropActiveFlags(t, svc)

	result, issued2, err := svc.RegisterByPassword(ctx, toCreds(issued), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register over corrupt session: %v", err)
	}
	if issued2 == nil {
		t.Fatal("expected a fresh token pair")
	}
	if len(result.PassiveUsersData) != 0 {
		t.Fatalf("corrupt membership must not be carried forward, got %v", result.PassiveUsersData)
	}

	// The corrupt session's rows are gone.
	if _, _, err := svc.Auth(ctx, toCreds(issued)); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected old session to be dead, got %v", err)
	}
}

func TestLoginOverCorruptSessionStartsFresh(t *testing.T) {
	svc := newPassportForTest(t)
	ctx := context.Background()

	if _, _, err := svc.RegisterByPassword(ctx, Credentials{}, "carol", "correct-horse"); err != nil {
		t.Fatalf("register carol: %v", err)
	}
	_, issued, err := svc.RegisterByPassword(ctx, Credentials{}, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	_, issued, err = svc.RegisterByPassword(ctx, toCreds(issued), "bob", "correct-horse")
	if err != nil {
		t.Fatalf("register bob over alice: %v", err)
	}
	dropActiveFlags(t, svc)

	result, issued2, err := svc.Login(ctx, toCreds(issued), "carol", "correct-horse")
	if err != nil {
		t.Fatalf("login over corrupt session: %v", err)
	}
	if issued2 == nil {
		t.Fatal("expected a fresh token pair")
	}
	if result.UserData.Login != "carol" {
		t.Fatalf("unexpected login %q", result.UserData.Login)
	}
	if len(result.PassiveUsersData) != 0 {
		t.Fatalf("corrupt membership must not be carried forward, got %v", result.PassiveUsersData)
	}
}
