package model

// ColumnOptions are the known per-column flags. Unknown keys coming from
// older or newer clients are dropped on decode rather than rejected.
type ColumnOptions struct {
	AutoClose  bool   `json:"autoclose,omitempty"`
	AutoHide   bool   `json:"autohide,omitempty"`
	Background string `json:"background,omitempty"`
}

type Column struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	BoardID int64  `gorm:"not null;index"`
	Title   string `gorm:"not null"`

	// Sequence holds the ordered ids of this column's cards, comma-joined.
	Sequence     string        `gorm:"not null;default:''"`
	Locked       bool          `gorm:"not null;default:false"`
	Options      ColumnOptions `gorm:"serializer:json"`
	LastModified int64         `gorm:"not null;index"`
}
