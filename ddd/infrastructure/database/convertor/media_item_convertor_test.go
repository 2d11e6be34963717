package convertor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-service/ddd/domain/entity"
	"media-service/ddd/domain/vo"
)

func TestMediaItemConvertorRoundTrip(t *testing.T) {
	cvt := NewMediaItemConvertor()

	item := entity.NewMediaItemEntity("demo", "Demo", "originals/demo.mp4")
	require.NoError(t, item.MarkQueued())
	require.NoError(t, item.MarkProcessing())
	require.NoError(t, item.SetProgress(42))
	item.SetProbe(vo.MediaProbe{DurationSeconds: 120.5, Width: 1920, Height: 1080, BitrateKbps: 2400, CodecName: "h264"})
	item.SetStreamPath("streams/demo.mp4")
	item.AddRendition(vo.RenditionDescriptor{Quality: "360", Path: "renditions/demo/360.mp4", Width: 640, Height: 360, BitrateKbps: 800, SizeBytes: 12345})

	p := cvt.ToPO(item)
	require.NotNil(t, p)
	assert.Equal(t, "processing", p.State)
	require.NotNil(t, p.Progress)
	assert.Equal(t, 42, *p.Progress)
	require.NotNil(t, p.RenditionsJSON)
	require.NotNil(t, p.StreamPath)
	assert.Nil(t, p.HLSMasterPath)

	back := cvt.ToEntity(p)
	require.NotNil(t, back)
	assert.Equal(t, item.ItemUUID(), back.ItemUUID())
	assert.Equal(t, vo.StateProcessing, back.State())
	assert.Equal(t, "streams/demo.mp4", back.StreamPath())
	assert.InDelta(t, 120.5, back.DurationSeconds(), 0.001)

	desc, ok := back.Rendition("360")
	require.True(t, ok)
	assert.Equal(t, int64(12345), desc.SizeBytes)
}

func TestMediaItemConvertorNilProgress(t *testing.T) {
	cvt := NewMediaItemConvertor()
	item := entity.NewMediaItemEntity("demo", "Demo", "originals/demo.mp4")

	p := cvt.ToPO(item)
	assert.Nil(t, p.Progress)

	back := cvt.ToEntity(p)
	assert.Nil(t, back.Progress())
}

func TestProcessingLogConvertorRoundTrip(t *testing.T) {
	cvt := NewProcessingLogConvertor()

	entry := entity.NewProcessingLogEntry("item-1", vo.JobKindHLS, vo.SeverityWarn, "encoder slow").
		WithContext("tier", "720").
		WithPercent(63)

	p := cvt.ToPO(entry)
	require.NotNil(t, p)
	assert.Equal(t, "hls", p.JobKind)
	assert.Equal(t, "warn", p.Severity)
	require.NotNil(t, p.ContextJSON)
	require.NotNil(t, p.Percent)

	p.Id = 7
	p.CreatedAt = time.Now()
	back := cvt.ToEntity(p)
	assert.Equal(t, int64(7), back.ID())
	assert.Equal(t, vo.JobKindHLS, back.JobKind())
	assert.Equal(t, "720", back.Context()["tier"])
	assert.Equal(t, 63, *back.Percent())
}
