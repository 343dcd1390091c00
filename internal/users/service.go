package users

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"github.com/MarcoPoloResearchLab/foodgram/internal/auth"
	"github.com/MarcoPoloResearchLab/foodgram/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	opServiceNew    = "users.service.new"
	opRegister      = "users.register"
	opLogin         = "users.login"
	opLogout        = "users.logout"
	opAuthenticate  = "users.authenticate"
	opGet           = "users.get"
	opList          = "users.list"
	opUpdateProfile = "users.update_profile"
	opSetPassword   = "users.set_password"

	invalidCredentialsDetail = "unable to log in with provided credentials"
)

var (
	errMissingDatabase    = errors.New("database handle is required")
	errMissingTokenIssuer = errors.New("token issuer is required")
	noOpLogger            = zap.NewNop()
)

// TokenIssuer signs and validates bearer tokens.
type TokenIssuer interface {
	IssueToken(ctx context.Context, subject auth.TokenSubject) (auth.IssuedToken, error)
	ValidateToken(token string) (auth.TokenClaims, error)
}

// ServiceConfig describes the dependencies of the account service.
type ServiceConfig struct {
	Database     *gorm.DB
	TokenIssuer  TokenIssuer
	IDProvider   IDProvider
	Clock        func() time.Time
	Logger       *zap.Logger
	PasswordCost int
}

// Service manages accounts, passwords and issued tokens.
type Service struct {
	db           *gorm.DB
	issuer       TokenIssuer
	idProvider   IDProvider
	clock        func() time.Time
	logger       *zap.Logger
	passwordCost int
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperror.Internal(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.TokenIssuer == nil {
		return nil, apperror.Internal(opServiceNew, "missing_token_issuer", errMissingTokenIssuer)
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	cost := cfg.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		db:           cfg.Database,
		issuer:       cfg.TokenIssuer,
		idProvider:   idProvider,
		clock:        clock,
		logger:       logger,
		passwordCost: cost,
	}, nil
}

// Register creates an account. Email and username must be unused.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	input.Email = normalizeEmail(input.Email)
	input.Username = normalize(input.Username)
	input.FirstName = normalize(input.FirstName)
	input.LastName = normalize(input.LastName)
	if fields := validation.ValidateStruct(&input); fields != nil {
		return User{}, apperror.Validation(opRegister, "invalid_input", fields.Error(), fields)
	}

	db := s.db.WithContext(ctx)
	if fields, err := s.takenIdentifiers(db, 0, input.Email, input.Username); err != nil {
		s.logError(opRegister, "lookup_failed", err)
		return User{}, apperror.Internal(opRegister, "lookup_failed", err)
	} else if fields != nil {
		return User{}, apperror.Validation(opRegister, "duplicate", fields.Error(), fields)
	}

	hash, err := hashPassword(input.Password, s.passwordCost)
	if err != nil {
		s.logError(opRegister, "hash_failed", err)
		return User{}, apperror.Internal(opRegister, "hash_failed", err)
	}

	user := User{
		Email:        input.Email,
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		if apperror.IsUniqueViolation(err) {
			return User{}, apperror.Validation(opRegister, "duplicate", "user with this email or username already exists", nil)
		}
		s.logError(opRegister, "insert_failed", err, zap.String("username", input.Username))
		return User{}, apperror.Internal(opRegister, "insert_failed", err)
	}
	return user, nil
}

// Login checks the credentials and issues a token backed by a stored AuthToken row.
func (s *Service) Login(ctx context.Context, input LoginInput) (auth.IssuedToken, error) {
	input.Email = normalizeEmail(input.Email)
	if fields := validation.ValidateStruct(&input); fields != nil {
		return auth.IssuedToken{}, apperror.Validation(opLogin, "invalid_input", fields.Error(), fields)
	}

	db := s.db.WithContext(ctx)
	var user User
	err := db.Where("email = ?", input.Email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auth.IssuedToken{}, apperror.Validation(opLogin, "invalid_credentials", invalidCredentialsDetail, nil)
	}
	if err != nil {
		s.logError(opLogin, "lookup_failed", err)
		return auth.IssuedToken{}, apperror.Internal(opLogin, "lookup_failed", err)
	}

	matches, err := passwordMatches(user.PasswordHash, input.Password)
	if err != nil {
		s.logError(opLogin, "hash_compare_failed", err, zap.Uint("user_id", user.ID))
		return auth.IssuedToken{}, apperror.Internal(opLogin, "hash_compare_failed", err)
	}
	if !matches {
		return auth.IssuedToken{}, apperror.Validation(opLogin, "invalid_credentials", invalidCredentialsDetail, nil)
	}

	tokenID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opLogin, "id_generation_failed", err)
		return auth.IssuedToken{}, apperror.Internal(opLogin, "id_generation_failed", err)
	}
	issued, err := s.issuer.IssueToken(ctx, auth.TokenSubject{UserID: user.ID, TokenID: tokenID})
	if err != nil {
		s.logError(opLogin, "issue_failed", err, zap.Uint("user_id", user.ID))
		return auth.IssuedToken{}, apperror.Internal(opLogin, "issue_failed", err)
	}

	record := AuthToken{TokenID: tokenID, UserID: user.ID, ExpiresAt: issued.ExpiresAt.UTC()}
	if err := db.Create(&record).Error; err != nil {
		s.logError(opLogin, "token_insert_failed", err, zap.Uint("user_id", user.ID))
		return auth.IssuedToken{}, apperror.Internal(opLogin, "token_insert_failed", err)
	}
	return issued, nil
}

// Authenticate validates a raw bearer token and resolves its user. The token must still be
// recorded and unexpired.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (User, auth.TokenClaims, error) {
	claims, err := s.issuer.ValidateToken(rawToken)
	if err != nil {
		reason := "invalid_token"
		if errors.Is(err, auth.ErrExpiredToken) {
			reason = "expired_token"
		}
		return User{}, auth.TokenClaims{}, apperror.New(opAuthenticate, reason, apperror.ErrUnauthenticated, "invalid token", err)
	}

	db := s.db.WithContext(ctx)
	var record AuthToken
	err = db.Where("token_id = ? AND user_id = ?", claims.TokenID, claims.UserID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, auth.TokenClaims{}, apperror.New(opAuthenticate, "revoked_token", apperror.ErrUnauthenticated, "invalid token", err)
	}
	if err != nil {
		s.logError(opAuthenticate, "token_lookup_failed", err)
		return User{}, auth.TokenClaims{}, apperror.Internal(opAuthenticate, "token_lookup_failed", err)
	}
	if !s.clock().Before(record.ExpiresAt) {
		return User{}, auth.TokenClaims{}, apperror.New(opAuthenticate, "expired_token", apperror.ErrUnauthenticated, "invalid token", auth.ErrExpiredToken)
	}

	var user User
	err = db.Take(&user, claims.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, auth.TokenClaims{}, apperror.New(opAuthenticate, "unknown_user", apperror.ErrUnauthenticated, "invalid token", err)
	}
	if err != nil {
		s.logError(opAuthenticate, "user_lookup_failed", err, zap.Uint("user_id", claims.UserID))
		return User{}, auth.TokenClaims{}, apperror.Internal(opAuthenticate, "user_lookup_failed", err)
	}
	return user, claims, nil
}

// Logout revokes a single token.
func (s *Service) Logout(ctx context.Context, tokenID string) error {
	if err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).Delete(&AuthToken{}).Error; err != nil {
		s.logError(opLogout, "delete_failed", err)
		return apperror.Internal(opLogout, "delete_failed", err)
	}
	return nil
}

// Get loads a user by id.
func (s *Service) Get(ctx context.Context, id uint) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, apperror.New(opGet, "not_found", apperror.ErrNotFound, "user not found", err)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.Uint("user_id", id))
		return User{}, apperror.Internal(opGet, "query_failed", err)
	}
	return user, nil
}

// List returns one page of users ordered by id and the total count.
func (s *Service) List(ctx context.Context, offset, limit int) ([]User, int64, error) {
	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&User{}).Count(&total).Error; err != nil {
		s.logError(opList, "count_failed", err)
		return nil, 0, apperror.Internal(opList, "count_failed", err)
	}
	var users []User
	if err := db.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, 0, apperror.Internal(opList, "query_failed", err)
	}
	return users, total, nil
}

// UpdateProfile applies the non-nil fields of update.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (User, error) {
	for _, field := range []*string{update.Username, update.FirstName, update.LastName} {
		if field != nil {
			*field = normalize(*field)
		}
	}
	if fields := validation.ValidateStruct(&update); fields != nil {
		return User{}, apperror.Validation(opUpdateProfile, "invalid_input", fields.Error(), fields)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return User{}, err
	}

	db := s.db.WithContext(ctx)
	updates := map[string]interface{}{}
	if update.Username != nil && *update.Username != user.Username {
		if fields, err := s.takenIdentifiers(db, user.ID, "", *update.Username); err != nil {
			s.logError(opUpdateProfile, "lookup_failed", err, zap.Uint("user_id", userID))
			return User{}, apperror.Internal(opUpdateProfile, "lookup_failed", err)
		} else if fields != nil {
			return User{}, apperror.Validation(opUpdateProfile, "duplicate", fields.Error(), fields)
		}
		updates["username"] = *update.Username
	}
	if update.FirstName != nil {
		updates["first_name"] = *update.FirstName
	}
	if update.LastName != nil {
		updates["last_name"] = *update.LastName
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		if apperror.IsUniqueViolation(err) {
			return User{}, apperror.Validation(opUpdateProfile, "duplicate", "user with this username already exists", nil)
		}
		s.logError(opUpdateProfile, "update_failed", err, zap.Uint("user_id", userID))
		return User{}, apperror.Internal(opUpdateProfile, "update_failed", err)
	}
	return s.Get(ctx, userID)
}

// SetPassword replaces the password after checking the current one and revokes every token of
// the user.
func (s *Service) SetPassword(ctx context.Context, userID uint, change PasswordChange) error {
	if fields := validation.ValidateStruct(&change); fields != nil {
		return apperror.Validation(opSetPassword, "invalid_input", fields.Error(), fields)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	matches, err := passwordMatches(user.PasswordHash, change.CurrentPassword)
	if err != nil {
		s.logError(opSetPassword, "hash_compare_failed", err, zap.Uint("user_id", userID))
		return apperror.Internal(opSetPassword, "hash_compare_failed", err)
	}
	if !matches {
		fields := validation.FieldErrors{"current_password": "current_password is incorrect"}
		return apperror.Validation(opSetPassword, "wrong_password", fields.Error(), fields)
	}

	hash, err := hashPassword(change.NewPassword, s.passwordCost)
	if err != nil {
		s.logError(opSetPassword, "hash_failed", err, zap.Uint("user_id", userID))
		return apperror.Internal(opSetPassword, "hash_failed", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&User{}).Where("id = ?", userID).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&AuthToken{}).Error
	})
	if txErr != nil {
		s.logError(opSetPassword, "transaction_failed", txErr, zap.Uint("user_id", userID))
		return apperror.Internal(opSetPassword, "transaction_failed", txErr)
	}
	return nil
}

// takenIdentifiers reports which of email and username already belong to a user other than
// exceptID. Empty values are not checked.
func (s *Service) takenIdentifiers(db *gorm.DB, exceptID uint, email, username string) (validation.FieldErrors, error) {
	fields := validation.FieldErrors{}
	check := func(column, value, message string) error {
		if value == "" {
			return nil
		}
		var count int64
		if err := db.Model(&User{}).Where(column+" = ? AND id <> ?", value, exceptID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			fields[column] = message
		}
		return nil
	}
	if err := check("email", email, "user with this email already exists"); err != nil {
		return nil, err
	}
	if err := check("username", username, "user with this username already exists"); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("users service error", attrs...)
}
