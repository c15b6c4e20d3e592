package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Token is the server-side backing row for one issued envelope. The row id
// travels inside the envelope as the jti claim; deleting the row invalidates
// the envelope regardless of its remaining JWT lifetime.
type Token struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Kind      TokenKind `gorm:"size:16;index;not null" json:"kind"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (t *Token) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// UserToken links a token row to one signed-in user. Exactly one row per
// token carries IsActiveUser=true; the rest are passive accounts reachable
// via checkout.
type UserToken struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	TokenID      string `gorm:"size:36;index;not null" json:"token_id"`
	UserID       uint   `gorm:"index;not null" json:"user_id"`
	IsActiveUser bool   `gorm:"not null" json:"is_active_user"`
}

// TokenUsers is the membership set of one token row. ActiveUserID is zero
// when no row is flagged active, which is a consistency fault and never a
// valid state.
type TokenUsers struct {
	ActiveUserID   uint
	PassiveUserIDs []uint
}
