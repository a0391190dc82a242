package models

import (
	"time"
)

// Snapshot is one stored customer list, keyed by ISO calendar date.
type Snapshot struct {
	Date      string             `gorm:"primaryKey;type:varchar(10)" json:"date"`
	Customers []SnapshotCustomer `gorm:"foreignKey:SnapshotDate;references:Date;constraint:OnDelete:CASCADE;" json:"customers,omitempty"`
	CreatedAt time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Snapshot) TableName() string {
	return "snapshots"
}

type SnapshotCustomer struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	SnapshotDate string `gorm:"type:varchar(10);not null;uniqueIndex:idx_snapshot_customer" json:"snapshot_date"`
	Customer     string `gorm:"type:varchar(255);not null;uniqueIndex:idx_snapshot_customer" json:"customer"`
}

func (SnapshotCustomer) TableName() string {
	return "snapshot_customers"
}

// MasterRecord is the persisted outreach history of one phone number.
type MasterRecord struct {
	PhoneNumber string       `gorm:"primaryKey;type:varchar(50)" json:"phone_number"`
	Status      string       `gorm:"type:varchar(20)" json:"status"`
	Count       int          `gorm:"not null" json:"count"`
	Position    int          `gorm:"not null;default:0" json:"-"` // row order in the master sheet
	Sends       []MasterSend `gorm:"foreignKey:PhoneNumber;references:PhoneNumber;constraint:OnDelete:CASCADE;" json:"sends"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MasterRecord) TableName() string {
	return "master_records"
}

type MasterSend struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	PhoneNumber string `gorm:"type:varchar(50);not null;uniqueIndex:idx_master_send_seq" json:"phone_number"`
	Sequence    int    `gorm:"not null;uniqueIndex:idx_master_send_seq" json:"sequence"`
	Template    string `gorm:"type:varchar(255)" json:"template"`
	SentOn      string `gorm:"type:varchar(10)" json:"sent_on"`
}

func (MasterSend) TableName() string {
	return "master_sends"
}

// LeadSession holds a staged working table between stage and submit.
type LeadSession struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FirstSession bool         `json:"first_session"`
	Templates    string       `gorm:"type:text" json:"templates"` // newline separated repository
	Status       string       `gorm:"type:varchar(20);default:'staged'" json:"status"`
	Rows         []SessionRow `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE;" json:"rows"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	CommittedAt  *time.Time   `json:"committed_at"`
}

func (LeadSession) TableName() string {
	return "lead_sessions"
}

type SessionRow struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	SessionID   string `gorm:"index;type:varchar(36)" json:"session_id"`
	Position    int    `json:"position"`
	Date        string `gorm:"type:varchar(10)" json:"date"`
	PhoneNumber string `gorm:"type:varchar(50)" json:"phone_number"`
	Priority    int    `json:"priority"`
	Sent        bool   `json:"sent"`
	Template    string `gorm:"type:varchar(255)" json:"template"`
}

func (SessionRow) TableName() string {
	return "session_rows"
}

// All lists every model for auto-migration and data copies.
func All() []interface{} {
	return []interface{}{
		&Snapshot{},
		&SnapshotCustomer{},
		&MasterRecord{},
		&MasterSend{},
		&LeadSession{},
		&SessionRow{},
	}
}
