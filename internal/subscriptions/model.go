package subscriptions

import (
	"time"

	"github.com/MarcoPoloResearchLab/foodgram/internal/recipes"
	"github.com/MarcoPoloResearchLab/foodgram/internal/users"
)

// Subscription records that Follower follows Followee. Self-subscription is rejected by the
// service, not by the schema.
type Subscription struct {
	ID         uint      `gorm:"column:id;primaryKey"`
	FollowerID uint      `gorm:"column:follower_id;not null;uniqueIndex:idx_subscriptions_pair,priority:1"`
	FolloweeID uint      `gorm:"column:followee_id;not null;uniqueIndex:idx_subscriptions_pair,priority:2;index"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Subscription) TableName() string {
	return "subscriptions"
}

// AuthorSummary is an author profile with subscription state and a preview of their recipes.
type AuthorSummary struct {
	User         users.User
	IsSubscribed bool
	Recipes      []recipes.Summary
	RecipesCount int64
}
