package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/viraj-gavade/Thriftify-sub000/internal/apperr"
	"github.com/viraj-gavade/Thriftify-sub000/internal/auth"
	"github.com/viraj-gavade/Thriftify-sub000/internal/models"
	"github.com/viraj-gavade/Thriftify-sub000/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type SignupInput struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	// Identifier is a username or an email address.
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Session is what a successful signup or login hands back.
type Session struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"accessToken"`
	ExpiresAt   time.Time   `json:"expiresAt"`
}

type AuthService struct {
	users  repository.UserRepository
	jwt    *auth.JWTManager
	cost   int
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, jwt *auth.JWTManager, hashCost int, logger *zap.Logger) *AuthService {
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, jwt: jwt, cost: hashCost, logger: logger}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := &models.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		Listings:     []primitive.ObjectID{},
		Bookmarks:    []primitive.ObjectID{},
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("username or email already taken")
		}
		return nil, apperr.Internal(err)
	}
	s.logger.Info("user signed up", zap.String("user_id", u.ID.Hex()))
	return s.session(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	ident := strings.TrimSpace(in.Identifier)
	var (
		u   *models.User
		err error
	)
	if strings.Contains(ident, "@") {
		u, err = s.users.FindByEmail(ctx, strings.ToLower(ident))
	} else {
		u, err = s.users.FindByUsername(ctx, ident)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	return s.session(u)
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	token, exp, err := s.jwt.GenerateAccessToken(u.ID.Hex())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{User: u.Public(), AccessToken: token, ExpiresAt: exp}, nil
}

// Profile is the public view of any user.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.UserSummary, error) {
	id, err := parseID(userID, "user id")
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	sum := u.Summary()
	return &sum, nil
}
