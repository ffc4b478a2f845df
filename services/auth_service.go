package services

import (
	"net/url"

	"github.com/nanuri-team/nanuri-backend/models"
	"github.com/nanuri-team/nanuri-backend/utils"

	"gorm.io/gorm"
)

// AuthService resolves bearer tokens to user identities. Any failure along the
// way means anonymous, never an error; callers decide what anonymous means.
type AuthService struct {
	db *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// ResolveToken validates a token and looks the claimed user up in the
// database. Returns nil for anything but a valid token of an active user.
func (s *AuthService) ResolveToken(token string) *models.User {
	if token == "" {
		return nil
	}
	email, err := utils.ParseJWT(token)
	if err != nil {
		return nil
	}

	var user models.User
	if err := s.db.Where("email = ? AND disabled = ?", email, false).First(&user).Error; err != nil {
		return nil
	}
	return &user
}

// ResolveQueryToken pulls the token parameter out of a raw query string, for
// transports that cannot send an Authorization header.
func (s *AuthService) ResolveQueryToken(rawQuery string) (string, bool) {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", false
	}
	user := s.ResolveToken(params.Get("token"))
	if user == nil {
		return "", false
	}
	return user.Email, true
}
