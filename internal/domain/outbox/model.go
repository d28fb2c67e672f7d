package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventType string

const (
	TypeNotification        EventType = "notification"
	TypeIssueLicense        EventType = "issue_license"
	TypeRecordTalentEarning EventType = "record_talent_earning"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Event is a side effect committed together with the transition that caused it.
type Event struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Type      EventType `gorm:"type:text;not null" json:"type"`
	OrderID   string    `gorm:"type:uuid;not null;index" json:"order_id"`
	Recipient string    `json:"recipient,omitempty"`
	Template  string    `json:"template,omitempty"`
	Payload   string    `gorm:"type:text" json:"payload,omitempty"`

	Status        Status     `gorm:"type:text;not null;default:'pending';index:idx_outbox_due,priority:1" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt time.Time  `gorm:"not null;index:idx_outbox_due,priority:2" json:"next_attempt_at"`
	LastError     string     `json:"last_error,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Event) TableName() string { return "outbox_events" }

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	if e.NextAttemptAt.IsZero() {
		e.NextAttemptAt = time.Now()
	}
	return nil
}

// Context is the order snapshot rendered into notifications.
type Context struct {
	OrderNumber   string `json:"order_number"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Tier          string `json:"tier"`
	Title         string `json:"title,omitempty"`
	Email         string `json:"email"`
	VersionNumber int    `json:"version_number,omitempty"`
	Remaining     int    `json:"remaining,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (e *Event) SetContext(c Context) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	e.Payload = string(b)
	return nil
}

func (e *Event) Context() (Context, error) {
	var c Context
	if e.Payload == "" {
		return c, nil
	}
	err := json.Unmarshal([]byte(e.Payload), &c)
	return c, err
}

// Enqueue stores events on tx so they commit or roll back with it.
func Enqueue(tx *gorm.DB, events ...*Event) error {
	if len(events) == 0 {
		return nil
	}
	return tx.Create(events).Error
}
