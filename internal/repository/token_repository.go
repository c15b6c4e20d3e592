package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rizus/passport/internal/domain"
	"github.com/rizus/passport/internal/observability"

	"gorm.io/gorm"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenRepository persists token rows and their membership rows. Mutating
// methods must run inside the caller's transaction: bind one with WithTx
// before the first write.
type TokenRepository interface {
	WithTx(tx *gorm.DB) TokenRepository
	Create(kind domain.TokenKind, activeUserID uint, passiveUserIDs []uint) (*domain.Token, error)
	FindByID(id string) (*domain.Token, error)
	Users(tokenID string) (domain.TokenUsers, error)
	Delete(tokenID string) error
	CleanupExpired(kind domain.TokenKind, olderThan time.Time) (int64, error)
}

type GormTokenRepository struct{ db *gorm.DB }

func NewTokenRepository(db *gorm.DB) TokenRepository { return &GormTokenRepository{db: db} }

func (r *GormTokenRepository) WithTx(tx *gorm.DB) TokenRepository {
	return &GormTokenRepository{db: tx}
}

func (r *GormTokenRepository) Create(kind domain.TokenKind, activeUserID uint, passiveUserIDs []uint) (*domain.Token, error) {
	token := &domain.Token{Kind: kind}
	if err := r.db.Create(token).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "token", "create", "error")
		return nil, err
	}
	rows := make([]domain.UserToken, 0, 1+len(passiveUserIDs))
	rows = append(rows, domain.UserToken{TokenID: token.ID, UserID: activeUserID, IsActiveUser: true})
	for _, userID := range passiveUserIDs {
		rows = append(rows, domain.UserToken{TokenID: token.ID, UserID: userID, IsActiveUser: false})
	}
	if err := r.db.Create(&rows).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "token", "create", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "token", "create", "success")
	return token, nil
}

func (r *GormTokenRepository) FindByID(id string) (*domain.Token, error) {
	var t domain.Token
	err := r.db.Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "token", "find_by_id", "not_found")
			return nil, ErrTokenNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "token", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "token", "find_by_id", "success")
	return &t, nil
}

func (r *GormTokenRepository) Users(tokenID string) (domain.TokenUsers, error) {
	var rows []domain.UserToken
	err := r.db.Where("token_id = ?", tokenID).Order("id ASC").Find(&rows).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "token", "users", "error")
		return domain.TokenUsers{}, err
	}
	var users domain.TokenUsers
	for _, row := range rows {
		if row.IsActiveUser {
			users.ActiveUserID = row.UserID
			continue
		}
		users.PassiveUserIDs = append(users.PassiveUserIDs, row.UserID)
	}
	observability.RecordRepositoryOperation(context.Background(), "token", "users", "success")
	return users, nil
}

// Delete removes the membership rows, then the token row itself. A missing
// token row reports ErrTokenNotFound so a lost rotation race surfaces to the
// caller instead of silently succeeding.
func (r *GormTokenRepository) Delete(tokenID string) error {
	if err := r.db.Where("token_id = ?", tokenID).Delete(&domain.UserToken{}).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "token", "delete", "error")
		return err
	}
	res := r.db.Where("id = ?", tokenID).Delete(&domain.Token{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "token", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "token", "delete", "not_found")
		return ErrTokenNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "token", "delete", "success")
	return nil
}

// CleanupExpired drops token rows of one kind created before the cutoff,
// together with their membership rows. Envelope expiry already makes these
// rows unreachable; this reclaims the storage.
func (r *GormTokenRepository) CleanupExpired(kind domain.TokenKind, olderThan time.Time) (int64, error) {
	expired := r.db.Model(&domain.Token{}).Select("id").
		Where("kind = ? AND created_at <= ?", kind, olderThan)
	if err := r.db.Where("token_id IN (?)", expired).Delete(&domain.UserToken{}).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "token", "cleanup_expired", "error")
		return 0, err
	}
	res := r.db.Where("kind = ? AND created_at <= ?", kind, olderThan).Delete(&domain.Token{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "token", "cleanup_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "token", "cleanup_expired", "success")
	return res.RowsAffected, nil
}
