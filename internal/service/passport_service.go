package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rizus/passport/internal/domain"
	"github.com/rizus/passport/internal/observability"
	"github.com/rizus/passport/internal/repository"
	"github.com/rizus/passport/internal/security"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credentials are the raw envelope values read from the request cookies.
// Either or both may be empty.
type Credentials struct {
	Access  string
	Refresh string
}

// IssuedTokens is a freshly signed envelope pair the handler must set as
// cookies. A nil *IssuedTokens means the cookies are left untouched.
type IssuedTokens struct {
	Access  string
	Refresh string
}

// LogoutOutcome tells the handler what happened to the session.
type LogoutOutcome int

const (
	// LogoutNotSignedIn means the removable account was not part of the
	// session in the first place.
	LogoutNotSignedIn LogoutOutcome = iota
	// LogoutAllRemoved means the session is gone and cookies must be cleared.
	LogoutAllRemoved
	// LogoutRotated means the session continues with a new envelope pair.
	LogoutRotated
)

// resolvedToken pairs a verified envelope with its authoritative membership
// rows. The envelope payload is advisory only.
type resolvedToken struct {
	row   *domain.Token
	users domain.TokenUsers
}

type PassportService struct {
	db            *gorm.DB
	users         repository.UserRepository
	tokens        repository.TokenRepository
	codec         *security.TokenCodec
	hasher        *security.PasswordHasher
	loginCache    BusyLoginCacheStore
	loginCacheTTL time.Duration
}

func NewPassportService(
	db *gorm.DB,
	users repository.UserRepository,
	tokens repository.TokenRepository,
	codec *security.TokenCodec,
	hasher *security.PasswordHasher,
	loginCache BusyLoginCacheStore,
	loginCacheTTL time.Duration,
) *PassportService {
	if loginCache == nil {
		loginCache = NewNoopBusyLoginCacheStore()
	}
	return &PassportService{
		db:            db,
		users:         users,
		tokens:        tokens,
		codec:         codec,
		hasher:        hasher,
		loginCache:    loginCache,
		loginCacheTTL: loginCacheTTL,
	}
}

// Cookie lifetimes follow the envelope lifetimes.
func (s *PassportService) AccessTTL() time.Duration  { return s.codec.AccessTTL() }
func (s *PassportService) RefreshTTL() time.Duration { return s.codec.RefreshTTL() }

// Auth answers "who is this browser signed in as". A valid access envelope is
// served as-is. With only a refresh envelope the pair is rotated: the old
// refresh row dies and a new pair carrying the same membership is issued.
func (s *PassportService) Auth(ctx context.Context, creds Credentials) (*domain.AuthResult, *IssuedTokens, error) {
	access, err := s.resolveAccess(ctx, creds.Access)
	if err != nil {
		return nil, nil, err
	}
	if access != nil {
		if access.users.ActiveUserID == 0 {
			observability.RecordPassportOperation(ctx, "auth", "corrupt_session")
			return nil, nil, ErrNoActiveUser
		}
		result, err := s.authResult(ctx, access.users)
		if err != nil {
			return nil, nil, err
		}
		observability.RecordPassportOperation(ctx, "auth", "success")
		return result, nil, nil
	}

	refresh, err := s.resolveRefresh(ctx, creds.Refresh)
	if err != nil {
		return nil, nil, err
	}
	if refresh == nil {
		observability.RecordPassportOperation(ctx, "auth", "unauthenticated")
		return nil, nil, ErrNotAuthenticated
	}
	if refresh.users.ActiveUserID == 0 {
		observability.RecordPassportOperation(ctx, "auth", "corrupt_session")
		return nil, nil, ErrNoActiveUser
	}

	issued, err := s.rotate(ctx, []*resolvedToken{refresh}, refresh.users.ActiveUserID, refresh.users.PassiveUserIDs)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.authResult(ctx, refresh.users)
	if err != nil {
		return nil, nil, err
	}
	observability.RecordPassportOperation(ctx, "auth", "rotated")
	return result, issued, nil
}

// RegisterByPassword creates a password account. Signed-out browsers get a
// fresh session. A signed-in anonymous account is upgraded in place; a
// signed-in password account spawns a new identity and keeps the old one as
// a passive member.
func (s *PassportService) RegisterByPassword(ctx context.Context, creds Credentials, login, password string) (*domain.AuthResult, *IssuedTokens, error) {
	if _, err := s.users.FindPasswordAuthByLogin(login); err == nil {
		observability.RecordPassportOperation(ctx, "register_password", "login_taken")
		return nil, nil, ErrLoginTaken
	} else if !errors.Is(err, repository.ErrAuthNotFound) {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}

	current, err := s.resolveCurrent(ctx, creds)
	if err != nil {
		return nil, nil, err
	}

	var (
		issued      *IssuedTokens
		activeID    uint
		passiveIDs  []uint
		resultUsers domain.TokenUsers
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		tokens := s.tokens.WithTx(tx)

		if current == nil {
			user, err := users.Create()
			if err != nil {
				return err
			}
			if _, err := users.CreatePasswordAuth(user.ID, login, hash); err != nil {
				return err
			}
			activeID, passiveIDs = user.ID, nil
		} else {
			if err := deleteResolved(tokens, current); err != nil {
				return err
			}
			oldActive := current[0].users.ActiveUserID
			oldPassive := current[0].users.PassiveUserIDs
			switch {
			case oldActive == 0:
				// A session without an active member is a consistency
				// fault; its membership is not trusted, so the browser
				// starts over with a fresh single-account session.
				user, err := users.Create()
				if err != nil {
					return err
				}
				if _, err := users.CreatePasswordAuth(user.ID, login, hash); err != nil {
					return err
				}
				activeID, passiveIDs = user.ID, nil
			default:
				auths, err := users.AuthsByUserID(oldActive)
				if err != nil {
					return err
				}
				switch {
				case auths.Anonymous != nil && auths.Password == nil:
					// Upgrade the anonymous account in place.
					if _, err := users.CreatePasswordAuth(oldActive, login, hash); err != nil {
						return err
					}
					activeID, passiveIDs = oldActive, oldPassive
				case auths.Password != nil:
					user, err := users.Create()
					if err != nil {
						return err
					}
					if _, err := users.CreatePasswordAuth(user.ID, login, hash); err != nil {
						return err
					}
					activeID = user.ID
					passiveIDs = append([]uint{oldActive}, oldPassive...)
				default:
					return ErrUnknownAuthType
				}
			}
		}

		var err error
		issued, resultUsers, err = s.issueTokens(tokens, activeID, passiveIDs)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			err = ErrNotAuthenticated
		}
		if errors.Is(err, repository.ErrLoginTaken) {
			err = ErrLoginTaken
		}
		observability.RecordPassportOperation(ctx, "register_password", "error")
		return nil, nil, err
	}

	if err := s.loginCache.Invalidate(ctx); err != nil {
		observability.RecordPassportOperation(ctx, "register_password", "cache_invalidate_error")
	}
	result, err := s.authResult(ctx, resultUsers)
	if err != nil {
		return nil, nil, err
	}
	observability.RecordPassportOperation(ctx, "register_password", "success")
	return result, issued, nil
}

// RegisterAnonymous starts a brand new throwaway account. Any existing
// session is discarded, passive members included. An empty login gets a
// generated one.
func (s *PassportService) RegisterAnonymous(ctx context.Context, creds Credentials, login string) (*domain.AuthResult, *IssuedTokens, error) {
	if login == "" {
		login = anonymousLogin()
	}
	current, err := s.resolveCurrent(ctx, creds)
	if err != nil {
		return nil, nil, err
	}

	var (
		issued      *IssuedTokens
		resultUsers domain.TokenUsers
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		tokens := s.tokens.WithTx(tx)

		if current != nil {
			if err := deleteResolved(tokens, current); err != nil {
				return err
			}
		}
		user, err := users.Create()
		if err != nil {
			return err
		}
		if _, err := users.CreateAnonymousAuth(user.ID, login); err != nil {
			return err
		}
		issued, resultUsers, err = s.issueTokens(tokens, user.ID, nil)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			err = ErrNotAuthenticated
		}
		if errors.Is(err, repository.ErrLoginTaken) {
			err = ErrLoginTaken
		}
		observability.RecordPassportOperation(ctx, "register_anonymous", "error")
		return nil, nil, err
	}

	result, err := s.authResult(ctx, resultUsers)
	if err != nil {
		return nil, nil, err
	}
	observability.RecordPassportOperation(ctx, "register_anonymous", "success")
	return result, issued, nil
}

// Login signs into a password account. With an existing session the old
// active user steps back into the passive set; the target account becomes
// active even if it already sat in the passive set.
func (s *PassportService) Login(ctx context.Context, creds Credentials, login, password string) (*domain.AuthResult, *IssuedTokens, error) {
	auth, err := s.users.FindPasswordAuthByLogin(login)
	if err != nil {
		if errors.Is(err, repository.ErrAuthNotFound) {
			observability.RecordPassportOperation(ctx, "login", "invalid_credentials")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !s.hasher.Verify(auth.PasswordHash, password) {
		observability.RecordPassportOperation(ctx, "login", "invalid_credentials")
		return nil, nil, ErrInvalidCredentials
	}

	current, err := s.resolveCurrent(ctx, creds)
	if err != nil {
		return nil, nil, err
	}

	active := auth.UserID
	var passive []uint
	var old []*resolvedToken
	if current != nil {
		old = append(old, current...)
		state := current[0].users
		switch {
		case state.ActiveUserID == 0:
			// Consistency fault, the old membership is not trusted.
		case state.ActiveUserID != active:
			passive = append([]uint{state.ActiveUserID}, state.PassiveUserIDs...)
		default:
			passive = state.PassiveUserIDs
		}
	}

	issued, resultUsers, err := s.rotateIssuing(ctx, old, active, passive)
	if err != nil {
		observability.RecordPassportOperation(ctx, "login", "error")
		return nil, nil, err
	}
	result, err := s.authResult(ctx, resultUsers)
	if err != nil {
		return nil, nil, err
	}
	observability.RecordPassportOperation(ctx, "login", "success")
	return result, issued, nil
}

// Checkout switches the active account to one of the passive members.
func (s *PassportService) Checkout(ctx context.Context, creds Credentials, newActiveID uint) (*domain.AuthResult, *IssuedTokens, error) {
	current, err := s.resolveCurrent(ctx, creds)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		observability.RecordPassportOperation(ctx, "checkout", "unauthenticated")
		return nil, nil, ErrNotAuthenticated
	}
	state := current[0].users
	if !containsUser(state.PassiveUserIDs, newActiveID) {
		observability.RecordPassportOperation(ctx, "checkout", "forbidden")
		return nil, nil, ErrNotAuthorized
	}

	passive := make([]uint, 0, len(state.PassiveUserIDs))
	for _, id := range state.PassiveUserIDs {
		if id != newActiveID {
			passive = append(passive, id)
		}
	}
	if state.ActiveUserID != 0 {
		passive = append(passive, state.ActiveUserID)
	}

	issued, resultUsers, err := s.rotateIssuing(ctx, current, newActiveID, passive)
	if err != nil {
		observability.RecordPassportOperation(ctx, "checkout", "error")
		return nil, nil, err
	}
	result, err := s.authResult(ctx, resultUsers)
	if err != nil {
		return nil, nil, err
	}
	observability.RecordPassportOperation(ctx, "checkout", "success")
	return result, issued, nil
}

// Logout removes one account from the session. Removing the active account
// promotes the first passive member; removing the last account kills the
// session entirely.
func (s *PassportService) Logout(ctx context.Context, creds Credentials, removableID uint) (*domain.AuthResult, *IssuedTokens, LogoutOutcome, error) {
	current, err := s.resolveCurrent(ctx, creds)
	if err != nil {
		return nil, nil, LogoutNotSignedIn, err
	}
	if current == nil {
		observability.RecordPassportOperation(ctx, "logout", "not_signed_in")
		return nil, nil, LogoutNotSignedIn, nil
	}
	state := current[0].users
	isActive := state.ActiveUserID != 0 && state.ActiveUserID == removableID
	if !isActive && !containsUser(state.PassiveUserIDs, removableID) {
		observability.RecordPassportOperation(ctx, "logout", "not_signed_in")
		return nil, nil, LogoutNotSignedIn, nil
	}

	if state.ActiveUserID == 0 || (isActive && len(state.PassiveUserIDs) == 0) {
		if err := s.removeResolved(ctx, current); err != nil {
			observability.RecordPassportOperation(ctx, "logout", "error")
			return nil, nil, LogoutNotSignedIn, err
		}
		observability.RecordPassportOperation(ctx, "logout", "all_removed")
		return nil, nil, LogoutAllRemoved, nil
	}

	var active uint
	var passive []uint
	if isActive {
		active = state.PassiveUserIDs[0]
		passive = state.PassiveUserIDs[1:]
	} else {
		active = state.ActiveUserID
		passive = make([]uint, 0, len(state.PassiveUserIDs))
		for _, id := range state.PassiveUserIDs {
			if id != removableID {
				passive = append(passive, id)
			}
		}
	}

	issued, resultUsers, err := s.rotateIssuing(ctx, current, active, passive)
	if err != nil {
		observability.RecordPassportOperation(ctx, "logout", "error")
		return nil, nil, LogoutNotSignedIn, err
	}
	result, err := s.authResult(ctx, resultUsers)
	if err != nil {
		return nil, nil, LogoutNotSignedIn, err
	}
	observability.RecordPassportOperation(ctx, "logout", "rotated")
	return result, issued, LogoutRotated, nil
}

// LogoutAll kills the whole session regardless of how many accounts it
// holds. Already-gone token rows are fine.
func (s *PassportService) LogoutAll(ctx context.Context, creds Credentials) (LogoutOutcome, error) {
	current, err := s.resolveCurrent(ctx, creds)
	if err != nil {
		return LogoutNotSignedIn, err
	}
	if current == nil {
		observability.RecordPassportOperation(ctx, "logout_all", "not_signed_in")
		return LogoutNotSignedIn, nil
	}
	if err := s.removeResolved(ctx, current); err != nil {
		observability.RecordPassportOperation(ctx, "logout_all", "error")
		return LogoutNotSignedIn, err
	}
	observability.RecordPassportOperation(ctx, "logout_all", "success")
	return LogoutAllRemoved, nil
}

// IsLoginBusy reports whether a password login is already taken. Taken
// answers are cached; free answers always hit the database.
func (s *PassportService) IsLoginBusy(ctx context.Context, login string) (bool, error) {
	if busy, err := s.loginCache.Get(ctx, login); err == nil && busy {
		observability.RecordPassportOperation(ctx, "login_check", "cache_hit")
		return true, nil
	}
	_, err := s.users.FindPasswordAuthByLogin(login)
	if err == nil {
		if err := s.loginCache.Set(ctx, login, s.loginCacheTTL); err != nil {
			observability.RecordPassportOperation(ctx, "login_check", "cache_set_error")
		}
		observability.RecordPassportOperation(ctx, "login_check", "busy")
		return true, nil
	}
	if errors.Is(err, repository.ErrAuthNotFound) {
		observability.RecordPassportOperation(ctx, "login_check", "free")
		return false, nil
	}
	return false, err
}

// ChangeLogin renames the password login of the session's active account.
// Only the active account may be renamed, and only when it has password auth.
func (s *PassportService) ChangeLogin(ctx context.Context, creds Credentials, targetUserID uint, newLogin string) error {
	current, err := s.resolveCurrent(ctx, creds)
	if err != nil {
		return err
	}
	if current == nil {
		observability.RecordPassportOperation(ctx, "change_login", "unauthenticated")
		return ErrNotAuthenticated
	}
	if current[0].users.ActiveUserID != targetUserID {
		observability.RecordPassportOperation(ctx, "change_login", "forbidden")
		return ErrNotAuthorized
	}
	auths, err := s.users.AuthsByUserID(targetUserID)
	if err != nil {
		return err
	}
	if auths.Password == nil {
		observability.RecordPassportOperation(ctx, "change_login", "no_password_auth")
		return ErrNoPasswordAuth
	}
	if auths.Password.Login == newLogin {
		observability.RecordPassportOperation(ctx, "change_login", "noop")
		return nil
	}
	if _, err := s.users.FindPasswordAuthByLogin(newLogin); err == nil {
		observability.RecordPassportOperation(ctx, "change_login", "login_taken")
		return ErrLoginTaken
	} else if !errors.Is(err, repository.ErrAuthNotFound) {
		return err
	}
	if err := s.users.UpdatePasswordLogin(targetUserID, newLogin); err != nil {
		if errors.Is(err, repository.ErrLoginTaken) {
			observability.RecordPassportOperation(ctx, "change_login", "login_taken")
			return ErrLoginTaken
		}
		return err
	}
	if err := s.loginCache.Invalidate(ctx); err != nil {
		observability.RecordPassportOperation(ctx, "change_login", "cache_invalidate_error")
	}
	observability.RecordPassportOperation(ctx, "change_login", "success")
	return nil
}

// resolveAccess verifies the access envelope and loads the membership behind
// its jti. Unverifiable or unbacked envelopes resolve to nil, not an error.
func (s *PassportService) resolveAccess(ctx context.Context, raw string) (*resolvedToken, error) {
	return s.resolve(ctx, raw, domain.TokenKindAccess)
}

func (s *PassportService) resolveRefresh(ctx context.Context, raw string) (*resolvedToken, error) {
	return s.resolve(ctx, raw, domain.TokenKindRefresh)
}

func (s *PassportService) resolve(ctx context.Context, raw string, kind domain.TokenKind) (*resolvedToken, error) {
	if raw == "" {
		return nil, nil
	}
	var claims *security.Claims
	var err error
	if kind == domain.TokenKindAccess {
		claims, err = s.codec.ParseAccessToken(raw)
	} else {
		claims, err = s.codec.ParseRefreshToken(raw)
	}
	if err != nil {
		observability.RecordTokenValidation(ctx, string(kind), "invalid")
		return nil, nil
	}
	row, err := s.tokens.FindByID(claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			observability.RecordTokenValidation(ctx, string(kind), "revoked")
			return nil, nil
		}
		return nil, err
	}
	if row.Kind != kind {
		observability.RecordTokenValidation(ctx, string(kind), "kind_mismatch")
		return nil, nil
	}
	users, err := s.tokens.Users(row.ID)
	if err != nil {
		return nil, err
	}
	observability.RecordTokenValidation(ctx, string(kind), "valid")
	return &resolvedToken{row: row, users: users}, nil
}

// resolveCurrent resolves both envelopes. The returned slice is ordered so
// index 0 carries the session state the caller should read; nil means no
// session at all.
func (s *PassportService) resolveCurrent(ctx context.Context, creds Credentials) ([]*resolvedToken, error) {
	access, err := s.resolveAccess(ctx, creds.Access)
	if err != nil {
		return nil, err
	}
	refresh, err := s.resolveRefresh(ctx, creds.Refresh)
	if err != nil {
		return nil, err
	}
	switch {
	case access != nil && refresh != nil:
		return []*resolvedToken{access, refresh}, nil
	case access != nil:
		return []*resolvedToken{access}, nil
	case refresh != nil:
		return []*resolvedToken{refresh}, nil
	default:
		return nil, nil
	}
}

// rotate deletes the old token rows and issues a fresh pair in one
// transaction. A concurrent rotation that already consumed a row surfaces as
// ErrNotAuthenticated.
func (s *PassportService) rotate(ctx context.Context, old []*resolvedToken, active uint, passive []uint) (*IssuedTokens, error) {
	issued, _, err := s.rotateIssuing(ctx, old, active, passive)
	return issued, err
}

func (s *PassportService) rotateIssuing(ctx context.Context, old []*resolvedToken, active uint, passive []uint) (*IssuedTokens, domain.TokenUsers, error) {
	var issued *IssuedTokens
	var users domain.TokenUsers
	err := s.db.Transaction(func(tx *gorm.DB) error {
		tokens := s.tokens.WithTx(tx)
		if err := deleteResolved(tokens, old); err != nil {
			return err
		}
		var err error
		issued, users, err = s.issueTokens(tokens, active, passive)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, domain.TokenUsers{}, ErrNotAuthenticated
		}
		return nil, domain.TokenUsers{}, err
	}
	return issued, users, nil
}

// issueTokens creates an access and a refresh row carrying the same
// membership and signs an envelope for each.
func (s *PassportService) issueTokens(tokens repository.TokenRepository, active uint, passive []uint) (*IssuedTokens, domain.TokenUsers, error) {
	passive = dedupPassive(active, passive)

	accessRow, err := tokens.Create(domain.TokenKindAccess, active, passive)
	if err != nil {
		return nil, domain.TokenUsers{}, err
	}
	refreshRow, err := tokens.Create(domain.TokenKindRefresh, active, passive)
	if err != nil {
		return nil, domain.TokenUsers{}, err
	}

	accessJWT, err := s.codec.SignAccessToken(accessRow.ID, active, passive)
	if err != nil {
		return nil, domain.TokenUsers{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshJWT, err := s.codec.SignRefreshToken(refreshRow.ID, active, passive)
	if err != nil {
		return nil, domain.TokenUsers{}, fmt.Errorf("sign refresh token: %w", err)
	}

	users := domain.TokenUsers{ActiveUserID: active, PassiveUserIDs: passive}
	return &IssuedTokens{Access: accessJWT, Refresh: refreshJWT}, users, nil
}

// removeResolved deletes session rows outside a rotation. Rows already gone
// are fine here, a logout should win against its own race.
func (s *PassportService) removeResolved(ctx context.Context, old []*resolvedToken) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		tokens := s.tokens.WithTx(tx)
		for _, t := range old {
			if err := tokens.Delete(t.row.ID); err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
				return err
			}
		}
		return nil
	})
}

// authResult loads fresh auth method rows for every session member and
// projects them into the public shape.
func (s *PassportService) authResult(ctx context.Context, users domain.TokenUsers) (*domain.AuthResult, error) {
	ids := append([]uint{users.ActiveUserID}, users.PassiveUserIDs...)
	auths, err := s.users.AuthsByUserIDs(ids)
	if err != nil {
		return nil, err
	}
	result := &domain.AuthResult{
		UserData:         auths[users.ActiveUserID].Data(users.ActiveUserID),
		PassiveUsersData: make([]domain.UserData, 0, len(users.PassiveUserIDs)),
	}
	for _, id := range users.PassiveUserIDs {
		result.PassiveUsersData = append(result.PassiveUsersData, auths[id].Data(id))
	}
	return result, nil
}

func deleteResolved(tokens repository.TokenRepository, old []*resolvedToken) error {
	for _, t := range old {
		if err := tokens.Delete(t.row.ID); err != nil {
			return err
		}
	}
	return nil
}

// dedupPassive keeps the first occurrence of each passive id and never lets
// the active account shadow itself in the passive set.
func dedupPassive(active uint, passive []uint) []uint {
	if len(passive) == 0 {
		return nil
	}
	seen := map[uint]bool{active: true}
	out := make([]uint, 0, len(passive))
	for _, id := range passive {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func containsUser(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func anonymousLogin() string {
	return "anon-" + uuid.NewString()
}
