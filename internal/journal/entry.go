package journal

import "time"

// Entry is one journaled event.
type Entry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`
	Event        string    `gorm:"not null;index" json:"event"`
	WindowID     string    `gorm:"index" json:"window_id,omitempty"`
	MonitorIndex *int      `json:"monitor_index,omitempty"`
	CurrentMB    uint64    `json:"current_mb,omitempty"`
	LimitMB      uint64    `json:"limit_mb,omitempty"`
	Payload      string    `gorm:"type:text" json:"payload,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Query filters Recent.
type Query struct {
	Event string
	Since time.Time
	Limit int
}
