package models

import "time"

// CartSnapshot is the persisted cart of one POS terminal. Items and Totals
// hold JSON so the row layout is the same on sqlite and postgres.
type CartSnapshot struct {
	TerminalID string     `gorm:"column:terminal_id;size:128;primaryKey"`
	CustomerID int64      `gorm:"column:customer_id;not null;default:0"`
	VehicleID  int64      `gorm:"column:vehicle_id;not null;default:0"`
	Items      string     `gorm:"column:items;type:text;not null"`
	Totals     string     `gorm:"column:totals;type:text;not null"`
	ExpiresAt  *time.Time `gorm:"column:expires_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
