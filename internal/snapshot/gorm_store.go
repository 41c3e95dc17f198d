package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aarluxe/pos-cart/internal/cart"
	"github.com/aarluxe/pos-cart/internal/customers"
	pkgdb "github.com/aarluxe/pos-cart/pkg/db"
	"github.com/aarluxe/pos-cart/pkg/db/models"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps snapshots in the cart_snapshots table created by pkg/migrate.
type GormStore struct {
	db  *pkgdb.Client
	ttl time.Duration
	now func() time.Time
}

func NewGormStore(db *pkgdb.Client, ttl time.Duration) *GormStore {
	return &GormStore{db: db, ttl: ttl, now: time.Now}
}

// Load reads the snapshot for terminalID. An expired row is deleted in the
// same transaction and reported as not found.
func (s *GormStore) Load(ctx context.Context, terminalID string) (*State, error) {
	var row models.CartSnapshot
	expired := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("terminal_id = ?", terminalID).First(&row).Error; err != nil {
			return err
		}
		if row.ExpiresAt == nil || s.now().Before(*row.ExpiresAt) {
			return nil
		}
		expired = true
		return tx.Where("terminal_id = ?", terminalID).Delete(&models.CartSnapshot{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound(terminalID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart snapshot")
	}
	if expired {
		return nil, errNotFound(terminalID)
	}

	state := State{
		Context: customers.CartContext{CustomerID: row.CustomerID, VehicleID: row.VehicleID},
		SavedAt: row.UpdatedAt,
	}
	var items []cart.LineItem
	if err := json.Unmarshal([]byte(row.Items), &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode snapshot items")
	}
	if err := json.Unmarshal([]byte(row.Totals), &state.Totals); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode snapshot totals")
	}
	state.Items = items
	return &state, nil
}

func (s *GormStore) Save(ctx context.Context, terminalID string, state State) error {
	items, err := json.Marshal(state.Items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode snapshot items")
	}
	totals, err := json.Marshal(state.Totals)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode snapshot totals")
	}

	row := models.CartSnapshot{
		TerminalID: terminalID,
		CustomerID: state.Context.CustomerID,
		VehicleID:  state.Context.VehicleID,
		Items:      string(items),
		Totals:     string(totals),
	}
	if s.ttl > 0 {
		expires := s.now().Add(s.ttl)
		row.ExpiresAt = &expires
	}

	err = s.db.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "terminal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"customer_id", "vehicle_id", "items", "totals", "expires_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart snapshot")
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, terminalID string) error {
	err := s.db.DB().WithContext(ctx).Where("terminal_id = ?", terminalID).Delete(&models.CartSnapshot{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart snapshot")
	}
	return nil
}
