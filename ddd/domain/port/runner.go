package port

import (
	"context"

	"media-service/ddd/domain/vo"
)

// ProgressCallback is invoked by the runner to report percentage progress (0-99).
type ProgressCallback func(percent int)

// HeartbeatCallback is invoked at a fixed interval while the process is alive,
// whether or not progress advanced.
type HeartbeatCallback func()

// RunSpec describes a single external tool invocation.
// OnProgress and OnHeartbeat are never invoked concurrently; implementations
// must serialize them so callers can mutate shared state without locking.
type RunSpec struct {
	Binary          string
	Args            []string
	DurationSeconds float64
	OnProgress      ProgressCallback
	OnHeartbeat     HeartbeatCallback
}

// ProcessRunner 执行外部转码进程并解析其进度输出
type ProcessRunner interface {
	Run(ctx context.Context, spec RunSpec) error
}

// MediaProber 探测源视频属性
type MediaProber interface {
	Probe(ctx context.Context, absPath string) (vo.MediaProbe, error)
}

// ToolLocator 查找外部工具可执行文件
type ToolLocator interface {
	// Locate 返回工具绝对路径，找不到时返回错误
	Locate(name string) (string, error)
}
