package gormgw

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartRecord is one persisted cart, unique per owner kind/id pair.
type CartRecord struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OwnerKind string     `gorm:"column:owner_kind;not null;uniqueIndex:idx_cart_owner"`
	OwnerID   string     `gorm:"column:owner_id;not null;uniqueIndex:idx_cart_owner"`
	Revision  int64      `gorm:"column:revision;not null;default:0"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *CartRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// CartItem is a product-level snapshot tied to a CartRecord. Position keeps
// the cart's display order stable across replace writes.
type CartItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID          uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID       string          `gorm:"column:product_id;not null"`
	UnitListPrice   decimal.Decimal `gorm:"column:unit_list_price;type:numeric(12,2);not null"`
	DiscountPercent *int            `gorm:"column:discount_percent"`
	Quantity        int             `gorm:"column:quantity;not null"`
	Position        int             `gorm:"column:position;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
