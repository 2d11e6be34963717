package po

// ProcessingLog 处理日志持久化对象，只追加
type ProcessingLog struct {
	BaseModel
	ItemUUID    string  `gorm:"column:item_uuid;type:varchar(36);index:idx_item_kind" json:"item_uuid"`
	JobKind     string  `gorm:"column:job_kind;type:varchar(32);index:idx_item_kind" json:"job_kind"`
	Severity    string  `gorm:"column:severity;type:varchar(10)" json:"severity"`
	Message     string  `gorm:"column:message;type:varchar(1024)" json:"message"`
	ContextJSON *string `gorm:"column:context;type:json" json:"context,omitempty"`
	Percent     *int    `gorm:"column:percent;type:int" json:"percent,omitempty"`
}

// TableName 指定表名
func (ProcessingLog) TableName() string {
	return "processing_logs"
}
