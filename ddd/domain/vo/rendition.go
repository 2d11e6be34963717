package vo

import "fmt"

// QualityTier 清晰度档位定义
type QualityTier struct {
	Label            string
	Width            int
	Height           int
	VideoBitrateKbps int
	AudioBitrateKbps int
}

// 档位表从低到高排列，码率含缓冲区按2倍计
var qualityLadder = []QualityTier{
	{Label: "360", Width: 640, Height: 360, VideoBitrateKbps: 800, AudioBitrateKbps: 96},
	{Label: "480", Width: 854, Height: 480, VideoBitrateKbps: 1400, AudioBitrateKbps: 128},
	{Label: "720", Width: 1280, Height: 720, VideoBitrateKbps: 2800, AudioBitrateKbps: 128},
	{Label: "1080", Width: 1920, Height: 1080, VideoBitrateKbps: 5000, AudioBitrateKbps: 192},
}

// QualityLadder 返回完整档位表的副本
func QualityLadder() []QualityTier {
	out := make([]QualityTier, len(qualityLadder))
	copy(out, qualityLadder)
	return out
}

// FloorTier 保底档位（最低清晰度）
func FloorTier() QualityTier {
	return qualityLadder[0]
}

// TierByLabel 按标签查找档位
func TierByLabel(label string) (QualityTier, bool) {
	for _, t := range qualityLadder {
		if t.Label == label {
			return t, true
		}
	}
	return QualityTier{}, false
}

// SelectTiers 按源视频高度挑选档位：绝不放大，只保留目标高度不超过源高度的档位；
// 源比最低档还小时保底生成最低档（可关闭）
func SelectTiers(sourceHeight int, includeFloor bool) []QualityTier {
	var tiers []QualityTier
	for _, t := range qualityLadder {
		if sourceHeight >= t.Height {
			tiers = append(tiers, t)
		}
	}
	if len(tiers) == 0 && includeFloor {
		tiers = append(tiers, FloorTier())
	}
	return tiers
}

// BufsizeKbps 转码缓冲区大小，取目标码率的2倍
func (t QualityTier) BufsizeKbps() int {
	return t.VideoBitrateKbps * 2
}

// BandwidthBps 主清单申报带宽，视频+音频码率换算为bps
func (t QualityTier) BandwidthBps() int {
	return (t.VideoBitrateKbps + t.AudioBitrateKbps) * 1000
}

// Resolution 返回 WxH 形式的分辨率串
func (t QualityTier) Resolution() string {
	return fmt.Sprintf("%dx%d", t.Width, t.Height)
}

// RenditionDescriptor 已完成清晰度的产物描述，一经写入不再修改
type RenditionDescriptor struct {
	Quality     string `json:"quality"`
	Path        string `json:"path"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	BitrateKbps int    `json:"bitrate_kbps"`
	SizeBytes   int64  `json:"size_bytes"`
}

// MediaProbe 探测到的源视频属性
type MediaProbe struct {
	DurationSeconds float64
	Width           int
	Height          int
	BitrateKbps     int
	CodecName       string
}

// HasDuration 时长未知时进度只能按估算处理
func (p MediaProbe) HasDuration() bool {
	return p.DurationSeconds > 0
}
