package policy

import (
	"context"

	"github.com/diewo77/minimarket/internal/models"
	"gorm.io/gorm"
)

// DBActorResolver loads actors from the users table.
type DBActorResolver struct {
	DB *gorm.DB
}

// NewDBActorResolver creates a database-backed actor resolver.
func NewDBActorResolver(db *gorm.DB) *DBActorResolver {
	return &DBActorResolver{DB: db}
}

// Resolve returns the actor for userID with its role preloaded.
// A missing user yields gorm.ErrRecordNotFound.
func (r *DBActorResolver) Resolve(ctx context.Context, userID uint) (Actor, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Role").First(&user, userID).Error; err != nil {
		return Actor{}, err
	}
	return ActorOf(&user), nil
}
