package service

import (
	"context"
	"log"

	"duotoeic/internal/apperr"
	"duotoeic/internal/models"
)

// Login issues an access token for a configured user. The PIN is checked
// only when the profile carries a hash.
func (s *Service) Login(ctx context.Context, userID models.UserID, pin string) (string, models.User, error) {
	user, ok := s.Users.Get(userID)
	if !ok {
		return "", models.User{}, apperr.New(apperr.CodeUnauthenticated, "invalid credentials")
	}
	if user.PINHash != "" {
		if err := s.Auth.ComparePIN(user.PINHash, pin); err != nil {
			log.Printf("login for %s rejected", userID)
			return "", models.User{}, apperr.New(apperr.CodeUnauthenticated, "invalid credentials")
		}
	}
	token, err := s.Auth.GenerateToken(user.ID, s.TokenTTL)
	if err != nil {
		return "", models.User{}, err
	}
	return token, user, nil
}

// Profile returns the user and their partner.
func (s *Service) Profile(userID models.UserID) (models.User, models.User, error) {
	user, ok := s.Users.Get(userID)
	if !ok {
		return models.User{}, models.User{}, apperr.New(apperr.CodeNotFound, "user not found")
	}
	partner, _ := s.Users.Partner(userID)
	return user, partner, nil
}
