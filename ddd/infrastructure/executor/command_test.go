package executor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-service/ddd/domain/vo"
)

func argValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, a := range args {
		if a == flag {
			require.Less(t, i+1, len(args), "flag %s has no value", flag)
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}

func TestRenditionArgs(t *testing.T) {
	b := NewCommandBuilder("veryfast", 4, 6)
	tier, _ := vo.TierByLabel("720")
	args := b.RenditionArgs("/in/src.mp4", "/out/720.mp4", tier)

	assert.Equal(t, "/in/src.mp4", argValue(t, args, "-i"))
	assert.Equal(t, "pipe:2", argValue(t, args, "-progress"))
	assert.Contains(t, args, "-nostats")
	assert.Equal(t, "2800k", argValue(t, args, "-b:v"))
	assert.Equal(t, "2800k", argValue(t, args, "-maxrate"))
	assert.Equal(t, "5600k", argValue(t, args, "-bufsize"))
	assert.Equal(t, "128k", argValue(t, args, "-b:a"))
	assert.Equal(t, "4", argValue(t, args, "-threads"))
	assert.Equal(t, "+faststart", argValue(t, args, "-movflags"))

	vf := argValue(t, args, "-vf")
	assert.Contains(t, vf, "scale=1280:720:force_original_aspect_ratio=decrease")
	assert.Contains(t, vf, "pad=1280:720:(ow-iw)/2:(oh-ih)/2")

	assert.Equal(t, "/out/720.mp4", args[len(args)-1])
}

func TestFastStartArgs(t *testing.T) {
	b := NewCommandBuilder("", 0, 0)
	args := b.FastStartArgs("/in/src.mov", "/out/stream.mp4")

	assert.Equal(t, "+faststart", argValue(t, args, "-movflags"))
	assert.Equal(t, "veryfast", argValue(t, args, "-preset"))
	assert.Equal(t, "23", argValue(t, args, "-crf"))
	assert.NotContains(t, args, "-threads")
	assert.Equal(t, "/out/stream.mp4", args[len(args)-1])
}

func TestHLSTierArgs(t *testing.T) {
	b := NewCommandBuilder("veryfast", 0, 6)
	tier, _ := vo.TierByLabel("480")
	args := b.HLSTierArgs("/in/src.mp4", "/out/hls", tier)

	assert.Equal(t, "6", argValue(t, args, "-hls_time"))
	assert.Equal(t, "vod", argValue(t, args, "-hls_playlist_type"))
	assert.Equal(t, "independent_segments", argValue(t, args, "-hls_flags"))
	assert.Equal(t, "150", argValue(t, args, "-g"))
	assert.Equal(t, "150", argValue(t, args, "-keyint_min"))
	assert.Equal(t, "0", argValue(t, args, "-sc_threshold"))
	assert.Equal(t, "/out/hls/480_%04d.ts", argValue(t, args, "-hls_segment_filename"))
	assert.Equal(t, "/out/hls/480.m3u8", args[len(args)-1])
}

func TestPosterArgs(t *testing.T) {
	b := NewCommandBuilder("veryfast", 0, 6)
	args := b.PosterArgs("/in/src.mp4", "/out/poster.jpg", 12.5)

	assert.Equal(t, "12.50", argValue(t, args, "-ss"))
	assert.Equal(t, "1", argValue(t, args, "-frames:v"))
	assert.Equal(t, "/out/poster.jpg", args[len(args)-1])
}

func TestPosterTimestamp(t *testing.T) {
	// 25%处抓帧
	assert.InDelta(t, 30.0, PosterTimestamp(120), 0.01)
	// 最小1秒
	assert.InDelta(t, 1.0, PosterTimestamp(3), 0.01)
	// 极短片回退到0
	assert.Zero(t, PosterTimestamp(0.4))
	assert.Zero(t, PosterTimestamp(0))
}

func TestMasterPlaylist(t *testing.T) {
	tiers := vo.SelectTiers(720, true)
	playlist := MasterPlaylist(tiers)

	lines := strings.Split(strings.TrimSpace(playlist), "\n")
	require.Equal(t, "#EXTM3U", lines[0])
	assert.Contains(t, playlist, "#EXT-X-STREAM-INF:BANDWIDTH=896000,RESOLUTION=640x360\n360.m3u8")
	assert.Contains(t, playlist, "#EXT-X-STREAM-INF:BANDWIDTH=2928000,RESOLUTION=1280x720\n720.m3u8")
	assert.NotContains(t, playlist, "1080")
}
