package auth

import (
	"context"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
	"github.com/jhoicas/invoicely-api/internal/domain"
	"github.com/jhoicas/invoicely-api/internal/domain/entity"
	"github.com/jhoicas/invoicely-api/internal/domain/repository"
	"github.com/jhoicas/invoicely-api/pkg/jwt"
)

// MinPasswordLength longitud mínima de la contraseña al registrarse.
const MinPasswordLength = 6

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: registro, login y usuario actual.
type AuthUseCase struct {
	userRepo repository.UserRepository
	jwtCfg   JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, jwtCfg: jwtCfg}
}

// Register crea un usuario en plan free: hashea password con bcrypt, persiste y devuelve token.
// Devuelve ErrEmailAlreadyExists si el email ya está registrado.
func (uc *AuthUseCase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.TokenResponse, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name es obligatorio")
	}
	if !govalidator.IsEmail(email) {
		return nil, domain.Invalid("email inválido")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, domain.Invalid("la contraseña debe tener al menos %d caracteres", MinPasswordLength)
	}

	existing, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user := &entity.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Tier:         entity.TierFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return uc.tokenFor(user)
}

// Login verifica email/password y genera el JWT. Email desconocido o password incorrecta
// devuelven el mismo ErrUnauthorized.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	return uc.tokenFor(user)
}

// Me devuelve el usuario autenticado con su plan vigente.
func (uc *AuthUseCase) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return toUserResponse(user), nil
}

// ResolveActor lee el plan del usuario en cada petición: un cambio por webhook aplica de inmediato.
func (uc *AuthUseCase) ResolveActor(ctx context.Context, userID string) (entity.Actor, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return entity.Actor{}, err
	}
	if user == nil {
		return entity.Actor{}, domain.ErrUnauthorized
	}
	tier := user.Tier
	if !tier.Valid() {
		tier = entity.TierFree
	}
	return entity.Actor{UserID: user.ID, Tier: tier}, nil
}

func (uc *AuthUseCase) tokenFor(user *entity.User) (*dto.TokenResponse, error) {
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		Token: token,
		User:  *toUserResponse(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		SubscriptionStatus: string(u.Tier),
		CreatedAt:          u.CreatedAt,
	}
}
