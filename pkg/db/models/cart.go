package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single active cart tied to a user. Version is the optimistic
// concurrency token bumped on every successful write.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_carts_user"`
	Version   int64      `gorm:"column:version;not null;default:1"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
