package repository

import (
	"context"
	"errors"

	"github.com/rizus/passport/internal/domain"
	"github.com/rizus/passport/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrAuthNotFound = errors.New("auth method not found")
	ErrLoginTaken   = errors.New("login already taken")
)

// UserRepository persists account identities and their auth method rows.
// Login uniqueness is backed by a real unique index; the duplicate-key error
// is translated to ErrLoginTaken so racing registrations lose cleanly.
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create() (*domain.User, error)
	FindByID(id uint) (*domain.User, error)
	CreatePasswordAuth(userID uint, login, passwordHash string) (*domain.PasswordAuth, error)
	CreateAnonymousAuth(userID uint, login string) (*domain.AnonymousAuth, error)
	FindPasswordAuthByLogin(login string) (*domain.PasswordAuth, error)
	AuthsByUserID(userID uint) (domain.UserAuths, error)
	AuthsByUserIDs(userIDs []uint) (map[uint]domain.UserAuths, error)
	UpdatePasswordLogin(userID uint, login string) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) WithTx(tx *gorm.DB) UserRepository {
	return &GormUserRepository{db: tx}
}

func (r *GormUserRepository) Create() (*domain.User, error) {
	user := &domain.User{}
	if err := r.db.Create(user).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "create", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "create", "success")
	return user, nil
}

func (r *GormUserRepository) FindByID(id uint) (*domain.User, error) {
	var u domain.User
	err := r.db.First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "success")
	return &u, nil
}

func (r *GormUserRepository) CreatePasswordAuth(userID uint, login, passwordHash string) (*domain.PasswordAuth, error) {
	auth := &domain.PasswordAuth{UserID: userID, Login: login, PasswordHash: passwordHash}
	if err := r.db.Create(auth).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(context.Background(), "password_auth", "create", "duplicate")
			return nil, ErrLoginTaken
		}
		observability.RecordRepositoryOperation(context.Background(), "password_auth", "create", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "password_auth", "create", "success")
	return auth, nil
}

func (r *GormUserRepository) CreateAnonymousAuth(userID uint, login string) (*domain.AnonymousAuth, error) {
	auth := &domain.AnonymousAuth{UserID: userID, Login: login}
	if err := r.db.Create(auth).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(context.Background(), "anonymous_auth", "create", "duplicate")
			return nil, ErrLoginTaken
		}
		observability.RecordRepositoryOperation(context.Background(), "anonymous_auth", "create", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "anonymous_auth", "create", "success")
	return auth, nil
}

func (r *GormUserRepository) FindPasswordAuthByLogin(login string) (*domain.PasswordAuth, error) {
	var auth domain.PasswordAuth
	err := r.db.Where("login = ?", login).First(&auth).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "password_auth", "find_by_login", "not_found")
			return nil, ErrAuthNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "password_auth", "find_by_login", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "password_auth", "find_by_login", "success")
	return &auth, nil
}

func (r *GormUserRepository) AuthsByUserID(userID uint) (domain.UserAuths, error) {
	auths, err := r.AuthsByUserIDs([]uint{userID})
	if err != nil {
		return domain.UserAuths{}, err
	}
	return auths[userID], nil
}

func (r *GormUserRepository) AuthsByUserIDs(userIDs []uint) (map[uint]domain.UserAuths, error) {
	result := make(map[uint]domain.UserAuths, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	var passwords []domain.PasswordAuth
	if err := r.db.Where("user_id IN ?", userIDs).Find(&passwords).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "password_auth", "find_by_user_ids", "error")
		return nil, err
	}
	var anonymous []domain.AnonymousAuth
	if err := r.db.Where("user_id IN ?", userIDs).Find(&anonymous).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "anonymous_auth", "find_by_user_ids", "error")
		return nil, err
	}
	for i := range passwords {
		auths := result[passwords[i].UserID]
		auths.Password = &passwords[i]
		result[passwords[i].UserID] = auths
	}
	for i := range anonymous {
		auths := result[anonymous[i].UserID]
		auths.Anonymous = &anonymous[i]
		result[anonymous[i].UserID] = auths
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "auths_by_user_ids", "success")
	return result, nil
}

func (r *GormUserRepository) UpdatePasswordLogin(userID uint, login string) error {
	res := r.db.Model(&domain.PasswordAuth{}).Where("user_id = ?", userID).Update("login", login)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(context.Background(), "password_auth", "update_login", "duplicate")
			return ErrLoginTaken
		}
		observability.RecordRepositoryOperation(context.Background(), "password_auth", "update_login", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "password_auth", "update_login", "not_found")
		return ErrAuthNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "password_auth", "update_login", "success")
	return nil
}
