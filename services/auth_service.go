package services

import (
	"fmt"
	"log/slog"
	"time"

	"chat-relay/auth"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/repositories"

	"github.com/google/uuid"
)

// AuthService handles account creation and login. Tokens are short-lived
// JWTs; the websocket setup handshake revalidates them.
type AuthService struct {
	log           *slog.Logger
	users         repositories.IUserRepository
	search        repositories.ISearchIndex
	tokenDuration time.Duration
}

func NewAuthService(log *slog.Logger, users repositories.IUserRepository,
	search repositories.ISearchIndex, tokenDuration time.Duration) *AuthService {
	return &AuthService{
		log:           log,
		users:         users,
		search:        search,
		tokenDuration: tokenDuration,
	}
}

func (s *AuthService) Register(req auth.RegisterRequest) (chat.User, string, error) {
	if err := auth.ValidateRegister(req); err != nil {
		return chat.User{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}

	if _, taken, err := s.users.GetByEmail(req.Email); err != nil {
		return chat.User{}, "", err
	} else if taken {
		return chat.User{}, "", errors.ErrEmailTaken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return chat.User{}, "", err
	}

	record := repositories.DiskUser{
		ID:           chat.Principal(uuid.New().String()),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.users.StoreUser(record); err != nil {
		return chat.User{}, "", fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	user := repositories.ToUser(record)
	if s.search != nil {
		if err := s.search.IndexUser(user); err != nil {
			s.log.Warn("user indexing failed", "user_id", string(user.ID), "error", err)
		}
	}

	token, err := auth.GenerateToken(string(user.ID), user.Name, s.tokenDuration)
	if err != nil {
		return chat.User{}, "", err
	}
	s.log.Info("user registered", "user_id", string(user.ID))
	return user, token, nil
}

// Profile returns the caller's own account record.
func (s *AuthService) Profile(id chat.Principal) (chat.User, error) {
	record, err := s.users.GetUser(id)
	if err != nil {
		return chat.User{}, err
	}
	return repositories.ToUser(record), nil
}

// UpdateProfile changes the display name and/or avatar URL. Empty fields
// keep their current value. A renamed user is re-indexed for search.
func (s *AuthService) UpdateProfile(id chat.Principal, name, avatarURL string) (chat.User, error) {
	record, err := s.users.GetUser(id)
	if err != nil {
		return chat.User{}, err
	}
	if name != "" {
		if len(name) < 2 || len(name) > 64 {
			return chat.User{}, fmt.Errorf("%w: display name length", errors.ErrInvalidRequest)
		}
		record.Name = name
	}
	if avatarURL != "" {
		record.AvatarURL = avatarURL
	}
	if err := s.users.StoreUser(record); err != nil {
		return chat.User{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	user := repositories.ToUser(record)
	if s.search != nil && name != "" {
		if err := s.search.IndexUser(user); err != nil {
			s.log.Warn("user re-indexing failed", "user_id", string(user.ID), "error", err)
		}
	}
	return user, nil
}

func (s *AuthService) Login(req auth.LoginRequest) (chat.User, string, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return chat.User{}, "", fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}

	record, found, err := s.users.GetByEmail(req.Email)
	if err != nil {
		return chat.User{}, "", err
	}
	if !found {
		// Same failure as a wrong password: don't leak which emails exist.
		return chat.User{}, "", errors.ErrBadCredentials
	}

	match, err := auth.ComparePassword(req.Password, record.PasswordHash)
	if err != nil {
		return chat.User{}, "", err
	}
	if !match {
		return chat.User{}, "", errors.ErrBadCredentials
	}

	token, err := auth.GenerateToken(string(record.ID), record.Name, s.tokenDuration)
	if err != nil {
		return chat.User{}, "", err
	}
	return repositories.ToUser(record), token, nil
}
