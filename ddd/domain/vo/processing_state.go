package vo

// ProcessingState 媒体条目处理状态
type ProcessingState string

const (
	// StatePending 待处理（尚未入队）
	StatePending ProcessingState = "pending"
	// StateQueued 已入队
	StateQueued ProcessingState = "queued"
	// StateProcessing 处理中
	StateProcessing ProcessingState = "processing"
	// StateReady 已就绪
	StateReady ProcessingState = "ready"
	// StateFailed 失败
	StateFailed ProcessingState = "failed"
)

// IsValid 检查状态是否有效
func (s ProcessingState) IsValid() bool {
	switch s {
	case StatePending, StateQueued, StateProcessing, StateReady, StateFailed:
		return true
	default:
		return false
	}
}

// String 返回状态字符串
func (s ProcessingState) String() string {
	return string(s)
}

// IsTerminal 检查是否为轮询可停止的终态
func (s ProcessingState) IsTerminal() bool {
	return s == StateReady || s == StateFailed
}

// CanTransitionTo 检查是否可以转换到目标状态
func (s ProcessingState) CanTransitionTo(target ProcessingState) bool {
	switch s {
	case StatePending:
		// 入队前置检查不通过时直接落failed
		return target == StateQueued || target == StateFailed
	case StateQueued:
		return target == StateProcessing || target == StateFailed
	case StateProcessing:
		return target == StateReady || target == StateFailed
	case StateFailed:
		// 手动或自动重试重新入队；重试前置检查再次不通过时覆盖失败原因
		return target == StateQueued || target == StateFailed
	case StateReady:
		// 就绪后追加清晰度不回退整体状态
		return false
	default:
		return false
	}
}
