package orders

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Order struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber string `gorm:"not null;uniqueIndex:idx_orders_order_number" json:"order_number"`
	Kind        Kind   `gorm:"type:text;not null;index" json:"kind"`
	Status      Status `gorm:"type:text;not null;index" json:"status"`
	Tier        string `gorm:"type:text;not null" json:"tier"`

	// RevisionsUsed is version_count for music and revision_count for voice.
	RevisionsUsed int `gorm:"not null;default:0" json:"revisions_used"`
	MaxRevisions  int `gorm:"not null" json:"max_revisions"`

	ConfirmedVersionID    *string    `gorm:"type:uuid" json:"confirmed_version_id"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date"`
	TalentID              *string    `gorm:"type:uuid;index" json:"talent_id"`

	PriceEUR float64 `json:"price_eur"`
	Email    string  `gorm:"not null;index" json:"email"`

	Title    string `json:"title,omitempty"`
	Brief    string `json:"brief,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Language string `json:"language,omitempty"`
	Script   string `json:"script,omitempty"`

	LockVersion int `gorm:"not null;default:0" json:"-"`

	Versions     []Version     `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Annotations  []Annotation  `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Deliverables []Deliverable `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// AwaitingFinalUpload is derived from status and never stored.
func (o *Order) AwaitingFinalUpload() bool {
	return o.Status == StatusAwaitingFinal
}

// DirectionLocked reports whether the client has committed to a version.
func (o *Order) DirectionLocked() bool {
	return o.ConfirmedVersionID != nil
}

type Version struct {
	ID            string      `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID       string      `gorm:"type:uuid;not null;uniqueIndex:idx_versions_order_type_number,priority:1" json:"order_id"`
	VersionType   VersionType `gorm:"type:text;not null;uniqueIndex:idx_versions_order_type_number,priority:2" json:"version_type"`
	VersionNumber int         `gorm:"not null;uniqueIndex:idx_versions_order_type_number,priority:3" json:"version_number"`

	FileURL  string        `gorm:"not null" json:"file_url"`
	FileName string        `json:"file_name"`
	Status   VersionStatus `gorm:"type:text;not null;default:'pending_review'" json:"status"`

	// admin
	Notes string `json:"notes,omitempty"`

	// client
	OverallRating   *int    `json:"overall_rating,omitempty"`
	OverallNotes    *string `json:"overall_notes,omitempty"`
	RevisionRequest *string `json:"revision_request,omitempty"`

	Annotations []Annotation `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (v *Version) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// Annotation is time-stamped client feedback on a music version.
type Annotation struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	VersionID string `gorm:"type:uuid;not null;index" json:"version_id"`
	OrderID   string `gorm:"type:uuid;not null;index" json:"order_id"`

	TimeStart float64  `gorm:"not null" json:"time_start"`
	TimeEnd   *float64 `json:"time_end,omitempty"`

	AnnotationType AnnotationType `gorm:"type:text;not null" json:"annotation_type"`
	Category       string         `gorm:"type:text;not null" json:"category"`
	Label          string         `json:"label,omitempty"`
	Notes          string         `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (a *Annotation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

type Deliverable struct {
	ID        string   `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   string   `gorm:"type:uuid;not null;index:idx_deliverables_order_sort,priority:1" json:"order_id"`
	FileURL   string   `gorm:"not null" json:"file_url"`
	FileName  string   `json:"file_name"`
	FileType  FileType `gorm:"type:text;not null;default:'other'" json:"file_type"`
	Label     string   `json:"label,omitempty"`
	SortOrder int      `gorm:"not null;default:0;index:idx_deliverables_order_sort,priority:2" json:"sort_order"`

	CreatedAt time.Time `json:"created_at"`
}

func (d *Deliverable) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// LicenseCertificate is issued once per completed top-tier voice order.
type LicenseCertificate struct {
	ID                string `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID           string `gorm:"type:uuid;not null;uniqueIndex:idx_license_certificates_order" json:"order_id"`
	CertificateNumber string `gorm:"not null;uniqueIndex:idx_license_certificates_number" json:"certificate_number"`
	Email             string `json:"email"`
	Tier              string `json:"tier"`

	IssuedAt time.Time `json:"issued_at"`
}

func (l *LicenseCertificate) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
