package vo

// JobKind 后台作业种类
type JobKind string

const (
	// JobKindMetadata 元数据提取与封面帧
	JobKindMetadata JobKind = "metadata"
	// JobKindPrepareStream 快速起播MP4准备
	JobKindPrepareStream JobKind = "prepare_stream"
	// JobKindBuildRenditions 多清晰度转码
	JobKindBuildRenditions JobKind = "build_renditions"
	// JobKindHLS HLS多码率切片
	JobKindHLS JobKind = "hls"

	// JobKindWatchdog 巡检写日志用的标记种类，不参与队列派发
	JobKindWatchdog JobKind = "watchdog"
)

// IsValid 检查作业种类是否有效
func (k JobKind) IsValid() bool {
	switch k {
	case JobKindMetadata, JobKindPrepareStream, JobKindBuildRenditions, JobKindHLS:
		return true
	default:
		return false
	}
}

// String 返回作业种类字符串
func (k JobKind) String() string {
	return string(k)
}

// DrivesStateMachine 元数据作业独立运行，失败不影响条目主状态
func (k JobKind) DrivesStateMachine() bool {
	return k != JobKindMetadata
}

// ParseJobKind 解析作业种类，非法值返回false
func ParseJobKind(s string) (JobKind, bool) {
	k := JobKind(s)
	return k, k.IsValid()
}

// LogSeverity 处理日志级别
type LogSeverity string

const (
	SeverityInfo  LogSeverity = "info"
	SeverityWarn  LogSeverity = "warn"
	SeverityError LogSeverity = "error"
)

// IsValid 检查日志级别是否有效
func (s LogSeverity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarn, SeverityError:
		return true
	default:
		return false
	}
}
