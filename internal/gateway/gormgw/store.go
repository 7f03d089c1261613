package gormgw

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/avelinehq/cartside/internal/gateway"
	pkgerrors "github.com/avelinehq/cartside/pkg/errors"
	"github.com/avelinehq/cartside/pkg/types"
)

// Store persists carts in a relational database through GORM. Each owner key
// maps to at most one CartRecord; saves replace the record's items wholesale.
type Store struct {
	db *gorm.DB
}

// New binds the store to the provided GORM handle.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db handle required")
	}
	return &Store{db: db}, nil
}

// AutoMigrate creates the cart tables for the bound schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CartRecord{}, &CartItem{})
}

// Load returns the persisted lines for the owner, or an empty cart when no
// record exists yet.
func (s *Store) Load(ctx context.Context, owner types.OwnerKey) ([]types.CartLine, error) {
	record, err := s.findByOwner(ctx, s.db, owner)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load cart")
	}
	return linesFromItems(record.Items), nil
}

// Save creates or replaces the owner's cart record with the provided lines.
func (s *Store) Save(ctx context.Context, owner types.OwnerKey, lines []types.CartLine, revision int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.saveTx(ctx, tx, owner, lines, revision)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "save cart")
	}
	return nil
}

// Migrate folds the session owner's cart into the user owner's cart and
// removes the session record. Both sides missing is a no-op.
func (s *Store) Migrate(ctx context.Context, sessionID, userID string) error {
	sessionOwner := types.SessionOwner(sessionID)
	userOwner := types.UserOwner(userID)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessionRecord, err := s.findByOwner(ctx, tx, sessionOwner)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		sessionLines := []types.CartLine(nil)
		if sessionRecord != nil {
			sessionLines = linesFromItems(sessionRecord.Items)
		}

		userRecord, err := s.findByOwner(ctx, tx, userOwner)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		userLines := []types.CartLine(nil)
		revision := int64(0)
		if userRecord != nil {
			userLines = linesFromItems(userRecord.Items)
			revision = userRecord.Revision
		}

		merged := gateway.MergeLines(sessionLines, userLines)
		if err := s.saveTx(ctx, tx, userOwner, merged, revision+1); err != nil {
			return err
		}

		if sessionRecord != nil {
			if err := tx.WithContext(ctx).
				Where("cart_id = ?", sessionRecord.ID).
				Delete(&CartItem{}).Error; err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Delete(sessionRecord).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "migrate cart")
	}
	return nil
}

func (s *Store) saveTx(ctx context.Context, tx *gorm.DB, owner types.OwnerKey, lines []types.CartLine, revision int64) error {
	record, err := s.findByOwner(ctx, tx, owner)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = &CartRecord{
			OwnerKind: string(owner.Kind),
			OwnerID:   owner.ID,
		}
		if err := tx.WithContext(ctx).Omit("Items").Create(record).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	record.Revision = revision
	if err := tx.WithContext(ctx).Omit("Items").Save(record).Error; err != nil {
		return err
	}

	if err := tx.WithContext(ctx).
		Where("cart_id = ?", record.ID).
		Delete(&CartItem{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	items := make([]CartItem, 0, len(lines))
	for i, line := range lines {
		items = append(items, CartItem{
			CartID:          record.ID,
			ProductID:       line.ProductID,
			UnitListPrice:   line.UnitListPrice,
			DiscountPercent: cloneDiscount(line.DiscountPercent),
			Quantity:        line.Quantity,
			Position:        i,
		})
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (s *Store) findByOwner(ctx context.Context, tx *gorm.DB, owner types.OwnerKey) (*CartRecord, error) {
	var record CartRecord
	err := tx.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("owner_kind = ? AND owner_id = ?", string(owner.Kind), owner.ID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func linesFromItems(items []CartItem) []types.CartLine {
	if len(items) == 0 {
		return nil
	}
	lines := make([]types.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, types.CartLine{
			ProductID:       item.ProductID,
			UnitListPrice:   item.UnitListPrice,
			DiscountPercent: cloneDiscount(item.DiscountPercent),
			Quantity:        item.Quantity,
		})
	}
	return lines
}

func cloneDiscount(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
