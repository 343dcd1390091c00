// Package subscriptions lets users follow recipe authors.
package subscriptions

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"github.com/MarcoPoloResearchLab/foodgram/internal/recipes"
	"github.com/MarcoPoloResearchLab/foodgram/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opServiceNew        = "subscriptions.service.new"
	opSubscribe         = "subscriptions.subscribe"
	opUnsubscribe       = "subscriptions.unsubscribe"
	opList              = "subscriptions.list"
	opSubscribedTo      = "subscriptions.subscribed_to"
	opSummarize         = "subscriptions.summarize"
	opParseRecipesLimit = "subscriptions.parse_recipes_limit"

	// NoRecipesLimit returns every recipe of an author in a summary.
	NoRecipesLimit = -1
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingUsers    = errors.New("user directory is required")
	errMissingRecipes  = errors.New("recipe source is required")
	noOpLogger         = zap.NewNop()
)

// UserDirectory resolves accounts by id.
type UserDirectory interface {
	Get(ctx context.Context, id uint) (users.User, error)
}

// RecipeSource provides the recipe previews shown in author summaries.
type RecipeSource interface {
	AuthorRecipes(ctx context.Context, authorID uint, limit int) ([]recipes.Recipe, error)
	CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error)
}

// ServiceConfig describes the dependencies of the subscription service.
type ServiceConfig struct {
	Database *gorm.DB
	Users    UserDirectory
	Recipes  RecipeSource
	Logger   *zap.Logger
}

// Service manages follower relationships between users.
type Service struct {
	db      *gorm.DB
	users   UserDirectory
	recipes RecipeSource
	logger  *zap.Logger
}

// NewService constructs the subscription service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperror.Internal(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Users == nil {
		return nil, apperror.Internal(opServiceNew, "missing_users", errMissingUsers)
	}
	if cfg.Recipes == nil {
		return nil, apperror.Internal(opServiceNew, "missing_recipes", errMissingRecipes)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, users: cfg.Users, recipes: cfg.Recipes, logger: logger}, nil
}

// ParseRecipesLimit reads the recipes_limit query value. Empty means no limit.
func ParseRecipesLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NoRecipesLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		message := "recipes_limit must be a non-negative integer"
		return 0, apperror.Validation(opParseRecipesLimit, "invalid_query", message, map[string]string{"recipes_limit": message})
	}
	return limit, nil
}

// Subscribe makes follower follow followee and returns the followee's summary.
func (s *Service) Subscribe(ctx context.Context, followerID, followeeID uint, recipesLimit int) (AuthorSummary, error) {
	followee, err := s.users.Get(ctx, followeeID)
	if err != nil {
		return AuthorSummary{}, err
	}
	if followerID == followeeID {
		return AuthorSummary{}, apperror.New(opSubscribe, "self", apperror.ErrSelfSubscriptionForbidden, "you cannot subscribe to yourself", nil)
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&Subscription{}).Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Count(&count).Error; err != nil {
		s.logError(opSubscribe, "lookup_failed", err, zap.Uint("follower_id", followerID), zap.Uint("followee_id", followeeID))
		return AuthorSummary{}, apperror.Internal(opSubscribe, "lookup_failed", err)
	}
	if count > 0 {
		return AuthorSummary{}, apperror.New(opSubscribe, "duplicate", apperror.ErrDuplicateRelationship, "already subscribed to this author", nil)
	}

	if err := db.Create(&Subscription{FollowerID: followerID, FolloweeID: followeeID}).Error; err != nil {
		if apperror.IsUniqueViolation(err) {
			return AuthorSummary{}, apperror.New(opSubscribe, "duplicate", apperror.ErrDuplicateRelationship, "already subscribed to this author", err)
		}
		s.logError(opSubscribe, "insert_failed", err, zap.Uint("follower_id", followerID), zap.Uint("followee_id", followeeID))
		return AuthorSummary{}, apperror.Internal(opSubscribe, "insert_failed", err)
	}

	summaries, err := s.summarize(ctx, []users.User{followee}, map[uint]bool{followee.ID: true}, recipesLimit)
	if err != nil {
		return AuthorSummary{}, err
	}
	return summaries[0], nil
}

// Unsubscribe removes the follower relationship.
func (s *Service) Unsubscribe(ctx context.Context, followerID, followeeID uint) error {
	if _, err := s.users.Get(ctx, followeeID); err != nil {
		return err
	}
	if followerID == followeeID {
		return apperror.New(opUnsubscribe, "self", apperror.ErrSelfSubscriptionForbidden, "you cannot unsubscribe from yourself", nil)
	}

	result := s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&Subscription{})
	if result.Error != nil {
		s.logError(opUnsubscribe, "delete_failed", result.Error, zap.Uint("follower_id", followerID), zap.Uint("followee_id", followeeID))
		return apperror.Internal(opUnsubscribe, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.New(opUnsubscribe, "missing", apperror.ErrRelationshipNotFound, "not subscribed to this author", nil)
	}
	return nil
}

// List returns one page of the authors followerID follows, in subscription order, and the total.
func (s *Service) List(ctx context.Context, followerID uint, page recipes.Page, recipesLimit int) ([]AuthorSummary, int64, error) {
	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&Subscription{}).Where("follower_id = ?", followerID).Count(&total).Error; err != nil {
		s.logError(opList, "count_failed", err, zap.Uint("follower_id", followerID))
		return nil, 0, apperror.Internal(opList, "count_failed", err)
	}

	var followees []users.User
	err := db.Model(&users.User{}).
		Select("users.*").
		Joins("JOIN subscriptions ON subscriptions.followee_id = users.id").
		Where("subscriptions.follower_id = ?", followerID).
		Order("subscriptions.id ASC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&followees).Error
	if err != nil {
		s.logError(opList, "query_failed", err, zap.Uint("follower_id", followerID))
		return nil, 0, apperror.Internal(opList, "query_failed", err)
	}

	subscribed := make(map[uint]bool, len(followees))
	for _, followee := range followees {
		subscribed[followee.ID] = true
	}
	summaries, err := s.summarize(ctx, followees, subscribed, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// SubscribedTo reports which of authorIDs followerID follows.
func (s *Service) SubscribedTo(ctx context.Context, followerID uint, authorIDs []uint) (map[uint]bool, error) {
	subscribed := make(map[uint]bool, len(authorIDs))
	if len(authorIDs) == 0 {
		return subscribed, nil
	}
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("follower_id = ? AND followee_id IN ?", followerID, authorIDs).
		Pluck("followee_id", &ids).Error
	if err != nil {
		s.logError(opSubscribedTo, "query_failed", err, zap.Uint("follower_id", followerID))
		return nil, apperror.Internal(opSubscribedTo, "query_failed", err)
	}
	for _, id := range ids {
		subscribed[id] = true
	}
	return subscribed, nil
}

func (s *Service) summarize(ctx context.Context, authors []users.User, subscribed map[uint]bool, recipesLimit int) ([]AuthorSummary, error) {
	ids := make([]uint, 0, len(authors))
	for _, author := range authors {
		ids = append(ids, author.ID)
	}
	counts, err := s.recipes.CountByAuthors(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(opSummarize, "count_failed", err)
	}

	summaries := make([]AuthorSummary, 0, len(authors))
	for _, author := range authors {
		authored, err := s.recipes.AuthorRecipes(ctx, author.ID, recipesLimit)
		if err != nil {
			return nil, apperror.Internal(opSummarize, "recipes_failed", err)
		}
		previews := make([]recipes.Summary, 0, len(authored))
		for _, recipe := range authored {
			previews = append(previews, recipe.Summary())
		}
		summaries = append(summaries, AuthorSummary{
			User:         author,
			IsSubscribed: subscribed[author.ID],
			Recipes:      previews,
			RecipesCount: counts[author.ID],
		})
	}
	return summaries, nil
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
	s.loggerOrDefault().Error("subscriptions service error", attrs...)
}
