package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"notechat-be/internal/dto"
	"notechat-be/internal/entity"
	"notechat-be/internal/pkg/apperror"
	"notechat-be/internal/repository/specification"
	"notechat-be/internal/repository/unitofwork"
	"notechat-be/pkg/events"
	pktNats "notechat-be/pkg/nats"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenExpiry = time.Hour * 24

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, eventPublisher *pktNats.Publisher) IAuthService {
	return &authService{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	user := &entity.User{
		Id:           uuid.New(),
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: &hashStr,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		event := events.NewUserRegistered(user.Id, user.Email)
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			fmt.Printf("[WARN] Failed to publish USER_REGISTERED event: %v\n", err)
		}
	}

	return &dto.RegisterResponse{Id: user.Id, Email: user.Email}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}
	if user == nil || user.PasswordHash == nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	claims := jwt.MapClaims{
		"user_id": user.Id.String(),
		"exp":     time.Now().Add(accessTokenExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_secret"
	}
	signedToken, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{Token: signedToken}, nil
}
