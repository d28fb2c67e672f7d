package orders

import "studio-orders/internal/domain/plans"

// Kind selects which workflow table drives an order.
type Kind = plans.Line

const (
	KindMusic = plans.LineMusic
	KindVoice = plans.LineVoice
)

// Status is the workflow position of an order.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusInProduction   Status = "in_production"
	StatusDemoReady      Status = "demo_ready"
	StatusVersionReady   Status = "version_ready"
	StatusDelivered      Status = "delivered"
	StatusAwaitingFinal  Status = "awaiting_final"
	StatusCompleted      Status = "completed"
)

var allStatuses = []Status{
	StatusPendingPayment,
	StatusPaid,
	StatusInProduction,
	StatusDemoReady,
	StatusVersionReady,
	StatusDelivered,
	StatusAwaitingFinal,
	StatusCompleted,
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool { return s == StatusCompleted }

// VersionType partitions the ledger. Voice orders only use VersionRevision.
type VersionType string

const (
	VersionDemo     VersionType = "demo"
	VersionRevision VersionType = "revision"
)

// VersionStatus is the review outcome of a single artifact.
type VersionStatus string

const (
	VersionPendingReview     VersionStatus = "pending_review"
	VersionSelected          VersionStatus = "selected"
	VersionApproved          VersionStatus = "approved"
	VersionRejected          VersionStatus = "rejected"
	VersionRevisionRequested VersionStatus = "revision_requested"
)

// Chosen reports whether the version counts as the order's single pick.
func (s VersionStatus) Chosen() bool {
	return s == VersionSelected || s == VersionApproved
}

type AnnotationType string

const (
	AnnotationKeep     AnnotationType = "keep"
	AnnotationChange   AnnotationType = "change"
	AnnotationQuestion AnnotationType = "question"
)

func (t AnnotationType) Valid() bool {
	switch t {
	case AnnotationKeep, AnnotationChange, AnnotationQuestion:
		return true
	}
	return false
}

type FileType string

const (
	FileMP3     FileType = "mp3"
	FileWAV     FileType = "wav"
	FileFLAC    FileType = "flac"
	FileStem    FileType = "stem"
	FileMIDI    FileType = "midi"
	FileProject FileType = "project"
	FileZip     FileType = "zip"
	FileOther   FileType = "other"
)

// ParseFileType maps free input (often a file extension) onto the closed set.
func ParseFileType(raw string) FileType {
	switch FileType(raw) {
	case FileMP3, FileWAV, FileFLAC, FileStem, FileMIDI, FileProject, FileZip:
		return FileType(raw)
	}
	switch raw {
	case "mid":
		return FileMIDI
	case "als", "logicx", "flp", "ptx":
		return FileProject
	}
	return FileOther
}
