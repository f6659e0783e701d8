package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
	"github.com/debugmentor/debugmentor-backend/internal/logger"
	"github.com/debugmentor/debugmentor-backend/internal/normalization"
	"github.com/debugmentor/debugmentor-backend/internal/repos"
	"github.com/debugmentor/debugmentor-backend/internal/requestdata"
	"github.com/debugmentor/debugmentor-backend/internal/types"
	"github.com/debugmentor/debugmentor-backend/internal/utils"
)

type JWTClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) (*TokenPair, error)
	LoginUser(ctx context.Context, email, password string) (*types.User, *TokenPair, error)
	RefreshUser(ctx context.Context) (*TokenPair, error)
	LogoutUser(ctx context.Context) error
	// SetContextFromToken verifies the access token and loads identity into
	// request data on the returned context.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// CheckToken is the soft variant used by /auth/check: an invalid token
	// yields (nil, nil), never an error.
	CheckToken(ctx context.Context, tokenString string) (*types.User, error)
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	tokenRepo    repos.UserTokenRepo
	jwtSecretKey string
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	tokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:           db,
		log:          log.With("service", "AuthService"),
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) (*TokenPair, error) {
	utils.NormalizeUserFields(user)
	if vErr := utils.ValidateRegistration(user); vErr != nil {
		return nil, apierr.ValidationFailed("user", vErr.Error())
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, user.Email)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	if exists {
		return nil, apierr.ValidationFailed("email", "already in use")
	}

	if hErr := utils.HashPassword(user); hErr != nil {
		return nil, hErr
	}

	user.ID = uuid.New()
	user.Role = types.RoleUser
	if user.ExperienceLevel == "" {
		user.ExperienceLevel = types.ExperienceBeginner
	}
	if user.Language == "" {
		user.Language = "hinglish"
	}
	user.LastActive = time.Now()

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, cErr := as.userRepo.Create(ctx, tx, []*types.User{user}); cErr != nil {
			return fmt.Errorf("failed to create user: %w", cErr)
		}
		var tErr error
		pair, tErr = as.issueTokens(ctx, tx, user)
		return tErr
	})
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	return pair, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (*types.User, *TokenPair, error) {
	email = normalization.ParseInputString(email)
	if vErr := utils.ValidateLogin(email, password); vErr != nil {
		return nil, nil, apierr.ValidationFailed("credentials", vErr.Error())
	}

	users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, nil, apierr.StorageUnavailable(err)
	}
	if len(users) == 0 {
		return nil, nil, apierr.AuthRejected(fmt.Errorf("invalid credentials"))
	}
	user := users[0]

	if hErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); hErr != nil {
		return nil, nil, apierr.AuthRejected(fmt.Errorf("invalid credentials"))
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if uErr := as.userRepo.UpdateFields(ctx, tx, user.ID, map[string]interface{}{
			"last_active": time.Now(),
		}); uErr != nil {
			return uErr
		}
		var tErr error
		pair, tErr = as.issueTokens(ctx, tx, user)
		return tErr
	})
	if err != nil {
		return nil, nil, apierr.StorageUnavailable(err)
	}
	user.LastActive = time.Now()
	return user, pair, nil
}

func (as *authService) RefreshUser(ctx context.Context) (*TokenPair, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return nil, apierr.AuthRejected(fmt.Errorf("no refresh token in request"))
	}

	var pair *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tokens, ftErr := as.tokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
		if ftErr != nil {
			return ftErr
		}
		if len(tokens) == 0 {
			return apierr.AuthRejected(fmt.Errorf("unknown refresh token"))
		}
		existing := tokens[0]
		if existing.ExpiresAt.Before(time.Now()) {
			_ = as.tokenRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{existing.ID})
			return apierr.AuthRejected(fmt.Errorf("refresh token expired"))
		}

		users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existing.UserID})
		if uErr != nil {
			return uErr
		}
		if len(users) == 0 {
			return apierr.AuthRejected(fmt.Errorf("no user for refresh token"))
		}

		var tErr error
		pair, tErr = as.issueTokens(ctx, tx, users[0])
		if tErr != nil {
			return tErr
		}
		return as.tokenRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{existing.ID})
	})
	if err != nil {
		if ae := apierr.From(err); ae.Code == apierr.CodeAuthRejected {
			return nil, ae
		}
		return nil, apierr.StorageUnavailable(err)
	}
	return pair, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return apierr.AuthRejected(fmt.Errorf("no token in request"))
	}

	tokens, err := as.tokenRepo.GetByAccessTokens(ctx, nil, []string{rd.TokenString})
	if err != nil {
		return apierr.StorageUnavailable(err)
	}
	if len(tokens) == 0 {
		return nil
	}
	if err := as.tokenRepo.FullDeleteByIDs(ctx, nil, []uuid.UUID{tokens[0].ID}); err != nil {
		return apierr.StorageUnavailable(err)
	}
	return nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims, err := as.parseToken(tokenString)
	if err != nil {
		return ctx, apierr.AuthRejected(err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.AuthRejected(fmt.Errorf("invalid user id in token: %w", err))
	}

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        claims.Role,
	}
	if tokens, ftErr := as.tokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString}); ftErr == nil && len(tokens) > 0 {
		rd.RefreshToken = tokens[0].RefreshToken
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) CheckToken(ctx context.Context, tokenString string) (*types.User, error) {
	if tokenString == "" {
		return nil, nil
	}
	claims, err := as.parseToken(tokenString)
	if err != nil {
		return nil, nil
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil
	}
	users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func (as *authService) parseToken(tokenString string) (*JWTClaims, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	return claims, nil
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (*TokenPair, error) {
	claims := JWTClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	userToken := &types.UserToken{
		ID:           uuid.New(),
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: uuid.New().String(),
		ExpiresAt:    time.Now().Add(as.refreshTTL),
	}
	if _, err := as.tokenRepo.Create(ctx, tx, []*types.UserToken{userToken}); err != nil {
		return nil, fmt.Errorf("create user token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: userToken.RefreshToken,
	}, nil
}
