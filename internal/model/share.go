package model

// BoardShare grants a user access to a board they do not own.
type BoardShare struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	BoardID int64  `gorm:"not null;index"`
	UserID  int64  `gorm:"not null;index"`
	Role    string `gorm:"not null;check:role IN ('viewer', 'editor')"`
}

const (
	RoleViewer = "viewer" // may fetch incremental updates only
	RoleEditor = "editor" // may mutate the board
)
