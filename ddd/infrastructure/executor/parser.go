package executor

import (
	"regexp"
	"strconv"
	"strings"
)

var reClockTime = regexp.MustCompile(`time=(\d+):(\d+):(\d+\.?\d*)`)

// progressParser 把ffmpeg进度行换算为0-99的百分比。
// 优先机器可读的 out_time_ms（微秒），回退到日志里的 HH:MM:SS.ms 时间戳；
// 单次执行内百分比只增不减。
type progressParser struct {
	durationSeconds float64
	lastPercent     int
}

func newProgressParser(durationSeconds float64) *progressParser {
	return &progressParser{durationSeconds: durationSeconds, lastPercent: -1}
}

// ParseLine 返回新的百分比；行不含进度或未前进时ok为false
func (p *progressParser) ParseLine(line string) (int, bool) {
	if p.durationSeconds <= 0 {
		return 0, false
	}

	if strings.HasPrefix(line, "out_time_ms=") {
		raw := strings.TrimPrefix(line, "out_time_ms=")
		if us, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return p.advance(us / 1e6)
		}
		return 0, false
	}

	if m := reClockTime.FindStringSubmatch(line); len(m) == 4 {
		hh, _ := strconv.ParseFloat(m[1], 64)
		mm, _ := strconv.ParseFloat(m[2], 64)
		ss, _ := strconv.ParseFloat(m[3], 64)
		return p.advance(hh*3600 + mm*60 + ss)
	}

	return 0, false
}

// IsProgressLine 进度行不进入stderr尾部缓冲
func IsProgressLine(line string) bool {
	if strings.Contains(line, "=") {
		key := line[:strings.Index(line, "=")]
		switch key {
		case "out_time_ms", "out_time_us", "out_time", "frame", "fps", "bitrate", "total_size", "speed", "progress", "dup_frames", "drop_frames", "stream_0_0_q":
			return true
		}
	}
	return false
}

func (p *progressParser) advance(currentSeconds float64) (int, bool) {
	pct := int(currentSeconds / p.durationSeconds * 100)
	if pct < 0 {
		pct = 0
	}
	// 完成的100%只在进程成功退出且产物校验后授予
	if pct > 99 {
		pct = 99
	}
	if pct <= p.lastPercent {
		return 0, false
	}
	p.lastPercent = pct
	return pct, true
}
