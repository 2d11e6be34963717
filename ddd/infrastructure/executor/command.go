package executor

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"media-service/ddd/domain/vo"
)

// CommandBuilder 以类型化参数列表构建各类ffmpeg调用，避免字符串拼接
type CommandBuilder struct {
	preset         string
	threads        int
	segmentSeconds int
}

func NewCommandBuilder(preset string, threads, segmentSeconds int) *CommandBuilder {
	if preset == "" {
		preset = "veryfast"
	}
	if segmentSeconds <= 0 {
		segmentSeconds = 6
	}
	return &CommandBuilder{preset: preset, threads: threads, segmentSeconds: segmentSeconds}
}

// scaleFilter 等比缩放后居中填充到目标尺寸，档位表保证宽高为偶数
func scaleFilter(width, height int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		width, height, width, height)
}

// progressArgs 统一走机器可读进度通道
func progressArgs() []string {
	return []string{"-progress", "pipe:2", "-nostats"}
}

// RenditionArgs 单清晰度MP4转码参数
func (b *CommandBuilder) RenditionArgs(inputAbs, outputAbs string, tier vo.QualityTier) []string {
	args := []string{"-i", inputAbs}
	args = append(args, progressArgs()...)
	args = append(args,
		"-vf", scaleFilter(tier.Width, tier.Height),
		"-c:v", "libx264",
		"-preset", b.preset,
		"-b:v", fmt.Sprintf("%dk", tier.VideoBitrateKbps),
		"-maxrate", fmt.Sprintf("%dk", tier.VideoBitrateKbps),
		"-bufsize", fmt.Sprintf("%dk", tier.BufsizeKbps()),
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", tier.AudioBitrateKbps),
		"-movflags", "+faststart",
	)
	args = b.appendThreads(args)
	args = append(args, "-y", outputAbs)
	return args
}

// FastStartArgs 快速起播MP4参数，索引原子前置
func (b *CommandBuilder) FastStartArgs(inputAbs, outputAbs string) []string {
	args := []string{"-i", inputAbs}
	args = append(args, progressArgs()...)
	args = append(args,
		"-c:v", "libx264",
		"-preset", b.preset,
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
	)
	args = b.appendThreads(args)
	args = append(args, "-y", outputAbs)
	return args
}

// HLSTierArgs 单档位HLS切片参数，关键帧间隔与分片长度对齐
func (b *CommandBuilder) HLSTierArgs(inputAbs, outDirAbs string, tier vo.QualityTier) []string {
	// 按25fps基准取GOP，保证每个分片起始于关键帧
	gop := b.segmentSeconds * 25
	playlist := filepath.Join(outDirAbs, fmt.Sprintf("%s.m3u8", tier.Label))
	segments := filepath.Join(outDirAbs, fmt.Sprintf("%s_%%04d.ts", tier.Label))

	args := []string{"-i", inputAbs}
	args = append(args, progressArgs()...)
	args = append(args,
		"-vf", scaleFilter(tier.Width, tier.Height),
		"-c:v", "libx264",
		"-preset", b.preset,
		"-b:v", fmt.Sprintf("%dk", tier.VideoBitrateKbps),
		"-maxrate", fmt.Sprintf("%dk", tier.VideoBitrateKbps),
		"-bufsize", fmt.Sprintf("%dk", tier.BufsizeKbps()),
		"-g", strconv.Itoa(gop),
		"-keyint_min", strconv.Itoa(gop),
		"-sc_threshold", "0",
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", tier.AudioBitrateKbps),
		"-hls_time", strconv.Itoa(b.segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_segment_filename", segments,
	)
	args = b.appendThreads(args)
	args = append(args, "-y", playlist)
	return args
}

// PosterArgs 在指定时间点抓取单帧封面
func (b *CommandBuilder) PosterArgs(inputAbs, outputAbs string, atSeconds float64) []string {
	return []string{
		"-ss", strconv.FormatFloat(atSeconds, 'f', 2, 64),
		"-i", inputAbs,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", outputAbs,
	}
}

func (b *CommandBuilder) appendThreads(args []string) []string {
	if b.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(b.threads))
	}
	return args
}

// PosterTimestamp 取视频25%处抓帧，最小1秒，短片回退到0
func PosterTimestamp(durationSeconds float64) float64 {
	const epsilon = 0.5
	if durationSeconds <= epsilon {
		return 0
	}
	ts := durationSeconds * 0.25
	if ts < 1 {
		ts = 1
	}
	if ts > durationSeconds-epsilon {
		// 中点兜底，仍越界就从头抓
		ts = durationSeconds / 2
		if ts > durationSeconds-epsilon {
			return 0
		}
	}
	return ts
}

// MasterPlaylist 按完成档位生成HLS主清单，带宽为视频加音频码率
func MasterPlaylist(tiers []vo.QualityTier) string {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	sb.WriteString("#EXT-X-VERSION:3\n")
	for _, t := range tiers {
		sb.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n", t.BandwidthBps(), t.Resolution()))
		sb.WriteString(fmt.Sprintf("%s.m3u8\n", t.Label))
	}
	return sb.String()
}
