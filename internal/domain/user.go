package domain

import "time"

type AuthType string

const (
	AuthTypePassword  AuthType = "password"
	AuthTypeAnonymous AuthType = "anonymous"
)

// User is a bare account identity. Everything that can prove ownership of it
// lives in the auth method rows.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type PasswordAuth struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Login        string    `gorm:"size:64;uniqueIndex;not null" json:"login"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type AnonymousAuth struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Login     string    `gorm:"size:64;uniqueIndex;not null" json:"login"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAuths holds the at-most-one auth method row per variant for one user.
type UserAuths struct {
	Password  *PasswordAuth
	Anonymous *AnonymousAuth
}

func (a UserAuths) Types() []AuthType {
	types := make([]AuthType, 0, 2)
	if a.Anonymous != nil {
		types = append(types, AuthTypeAnonymous)
	}
	if a.Password != nil {
		types = append(types, AuthTypePassword)
	}
	return types
}

// Login prefers the password login once one exists; until then the anonymous
// login names the account.
func (a UserAuths) Login() string {
	if a.Password != nil {
		return a.Password.Login
	}
	if a.Anonymous != nil {
		return a.Anonymous.Login
	}
	return ""
}

// UserData is the public projection returned by the auth endpoint.
type UserData struct {
	ID        uint       `json:"id"`
	Login     string     `json:"login"`
	AuthTypes []AuthType `json:"auth_types"`
}

func (a UserAuths) Data(userID uint) UserData {
	return UserData{ID: userID, Login: a.Login(), AuthTypes: a.Types()}
}

// AuthResult is the answer to "who is this browser signed in as".
type AuthResult struct {
	UserData         UserData   `json:"user_data"`
	PassiveUsersData []UserData `json:"passive_users_data"`
}
