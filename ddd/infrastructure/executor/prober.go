package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"media-service/ddd/domain/port"
	"media-service/ddd/domain/vo"
)

// FFprobeProber 通过ffprobe的JSON输出探测源视频属性
type FFprobeProber struct {
	locator port.ToolLocator
}

func NewFFprobeProber(locator port.ToolLocator) *FFprobeProber {
	return &FFprobeProber{locator: locator}
}

// Probe 探测时长、分辨率、码率与编码名，时长未知不算错误
func (p *FFprobeProber) Probe(ctx context.Context, absPath string) (vo.MediaProbe, error) {
	binary, err := p.locator.Locate("ffprobe")
	if err != nil {
		return vo.MediaProbe{}, err
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		absPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return vo.MediaProbe{}, fmt.Errorf("ffprobe %s: %w", absPath, err)
	}
	return parseProbeOutput(out)
}

type probePayload struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// parseProbeOutput 解析ffprobe JSON，字段缺失时保持零值继续
func parseProbeOutput(raw []byte) (vo.MediaProbe, error) {
	var payload probePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return vo.MediaProbe{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var probe vo.MediaProbe
	if d, err := strconv.ParseFloat(strings.TrimSpace(payload.Format.Duration), 64); err == nil {
		probe.DurationSeconds = d
	}
	if b, err := strconv.Atoi(strings.TrimSpace(payload.Format.BitRate)); err == nil {
		probe.BitrateKbps = b / 1000
	}
	for _, s := range payload.Streams {
		if s.CodecType == "video" {
			probe.Width = s.Width
			probe.Height = s.Height
			probe.CodecName = s.CodecName
			break
		}
	}
	return probe, nil
}
