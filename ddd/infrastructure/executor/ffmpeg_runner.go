package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"media-service/ddd/domain/port"
	"media-service/pkg/config"
	"media-service/pkg/logger"
)

// FFmpegRunner 执行外部转码进程，解析进度流并维持心跳
type FFmpegRunner struct {
	heartbeatEvery time.Duration
	stallWarnAfter time.Duration
	tailKeep       int
}

func NewFFmpegRunner(cfg *config.PipelineConfig) *FFmpegRunner {
	r := &FFmpegRunner{
		heartbeatEvery: 5 * time.Second,
		stallWarnAfter: 60 * time.Second,
		tailKeep:       200,
	}
	if cfg != nil {
		if cfg.HeartbeatEvery > 0 {
			r.heartbeatEvery = cfg.HeartbeatEvery
		}
		if cfg.StallWarnAfter > 0 {
			r.stallWarnAfter = cfg.StallWarnAfter
		}
		if cfg.KeepLogs > 0 {
			r.tailKeep = cfg.KeepLogs
		}
	}
	return r
}

// Run 启动进程并阻塞到其退出；退出码非0一律视为失败，
// 不论之前上报过多少进度
func (r *FFmpegRunner) Run(ctx context.Context, spec port.RunSpec) error {
	cmd := exec.Command(spec.Binary, spec.Args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", spec.Binary, err)
	}

	state := &runState{lastLineAt: time.Now()}

	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		r.scanProgress(ctx, stderr, spec, state)
	}()

	beatDone := make(chan struct{})
	go r.keepAlive(ctx, spec, state, beatDone, scanDone)

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-scanDone
		<-beatDone
		<-waitErr
		return ctx.Err()
	case err := <-waitErr:
		<-scanDone
		<-beatDone
		if err != nil {
			tail := state.tail(50)
			if len(tail) > 0 {
				logger.Errorf("transcode process failed binary=%s tail_stderr=%s", spec.Binary, strings.Join(tail, "\n"))
			}
			return fmt.Errorf("%s exited abnormally: %w", spec.Binary, err)
		}
		return nil
	}
}

type runState struct {
	mu         sync.Mutex
	lastLineAt time.Time
	buf        []string

	// cbMu 串行化进度与心跳回调，两者来自不同goroutine但不能并发进入调用方
	cbMu sync.Mutex
}

func (s *runState) notifyProgress(spec port.RunSpec, pct int) {
	if spec.OnProgress == nil {
		return
	}
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	spec.OnProgress(pct)
}

func (s *runState) notifyHeartbeat(spec port.RunSpec) {
	if spec.OnHeartbeat == nil {
		return
	}
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	spec.OnHeartbeat()
}

func (s *runState) touch() {
	s.mu.Lock()
	s.lastLineAt = time.Now()
	s.mu.Unlock()
}

func (s *runState) sinceLastLine() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastLineAt)
}

func (s *runState) capture(line string, keep int) {
	s.mu.Lock()
	if len(s.buf) >= keep {
		s.buf = s.buf[1:]
	}
	s.buf = append(s.buf, line)
	s.mu.Unlock()
}

func (s *runState) tail(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) > n {
		return append([]string(nil), s.buf[len(s.buf)-n:]...)
	}
	return append([]string(nil), s.buf...)
}

func (r *FFmpegRunner) scanProgress(ctx context.Context, stderr io.ReadCloser, spec port.RunSpec, state *runState) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	parser := newProgressParser(spec.DurationSeconds)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := scanner.Text()
		state.touch()

		if pct, ok := parser.ParseLine(line); ok {
			state.notifyProgress(spec, pct)
			continue
		}
		if !IsProgressLine(line) {
			state.capture(line, r.tailKeep)
		}
	}
}

// keepAlive 固定间隔刷心跳；长时间无输出只告警，
// 终止卡死进程的裁决权在外部巡检
func (r *FFmpegRunner) keepAlive(ctx context.Context, spec port.RunSpec, state *runState, done, scanDone chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.heartbeatEvery)
	defer ticker.Stop()

	warned := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-scanDone:
			return
		case <-ticker.C:
			state.notifyHeartbeat(spec)
			silent := state.sinceLastLine()
			if silent > r.stallWarnAfter {
				if !warned {
					logger.Warnf("transcode process silent binary=%s silent_for=%s threshold=%s", spec.Binary, silent.Truncate(time.Second), r.stallWarnAfter)
					warned = true
				}
			} else {
				warned = false
			}
		}
	}
}
