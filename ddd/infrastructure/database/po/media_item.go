package po

import "time"

// MediaItem 媒体条目持久化对象
type MediaItem struct {
	BaseModel
	ItemUUID        string     `gorm:"column:item_uuid;type:varchar(36);uniqueIndex" json:"item_uuid"`
	Slug            string     `gorm:"column:slug;type:varchar(191);uniqueIndex" json:"slug"`
	Title           string     `gorm:"column:title;type:varchar(255)" json:"title"`
	OriginalPath    string     `gorm:"column:original_path;type:varchar(512)" json:"original_path"`
	StreamPath      *string    `gorm:"column:stream_path;type:varchar(512)" json:"stream_path,omitempty"`
	HLSMasterPath   *string    `gorm:"column:hls_master_path;type:varchar(512)" json:"hls_master_path,omitempty"`
	PosterPath      *string    `gorm:"column:poster_path;type:varchar(512)" json:"poster_path,omitempty"`
	RenditionsJSON  *string    `gorm:"column:renditions;type:json" json:"renditions,omitempty"`
	DurationSeconds float64    `gorm:"column:duration_seconds;type:double" json:"duration_seconds"`
	Width           int        `gorm:"column:width;type:int" json:"width"`
	Height          int        `gorm:"column:height;type:int" json:"height"`
	State           string     `gorm:"column:state;type:varchar(20);index" json:"state"`
	Progress        *int       `gorm:"column:progress;type:int" json:"progress,omitempty"`
	ErrorMessage    string     `gorm:"column:error_message;type:varchar(512)" json:"error_message"`
	QueuedAt        *time.Time `gorm:"column:queued_at;type:timestamp" json:"queued_at,omitempty"`
	StartedAt       *time.Time `gorm:"column:started_at;type:timestamp" json:"started_at,omitempty"`
	LastHeartbeatAt *time.Time `gorm:"column:last_heartbeat_at;type:timestamp" json:"last_heartbeat_at,omitempty"`
	FinishedAt      *time.Time `gorm:"column:finished_at;type:timestamp" json:"finished_at,omitempty"`
}

// TableName 指定表名
func (MediaItem) TableName() string {
	return "media_items"
}
