package component

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	appsvc "media-service/ddd/application/app"
	"media-service/ddd/application/cqe"
	"media-service/pkg/config"
	pkgkafka "media-service/pkg/kafka"
	"media-service/pkg/logger"
	"media-service/pkg/manager"
)

func init() {
	manager.RegisterComponentPlugin(&MediaProcessConsumerPlugin{})
}

// MediaProcessConsumerPlugin 媒体处理消息消费者插件，上游系统通过Kafka触发处理
type MediaProcessConsumerPlugin struct{}

func (p *MediaProcessConsumerPlugin) Name() string { return "mediaProcessConsumer" }

func (p *MediaProcessConsumerPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	cfg := config.GetGlobalConfig()
	if !cfg.Kafka.Enabled {
		logger.Info("Kafka disabled, media process consumer not started")
		return &disabledConsumer{}
	}

	var mediaApp appsvc.MediaApp
	if deps != nil {
		if v, ok := deps.MediaAppService.(appsvc.MediaApp); ok {
			mediaApp = v
		}
	}
	if mediaApp == nil {
		mediaApp = appsvc.DefaultMediaApp()
	}
	return &mediaProcessConsumer{
		mediaApp: mediaApp,
		topic:    cfg.Kafka.Topics.MediaProcess,
		groupID:  cfg.Kafka.GroupID,
	}
}

// mediaProcessMessage 消息体，未登记的条目先登记再触发处理
type mediaProcessMessage struct {
	ItemUUID     string `json:"item_uuid"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	OriginalPath string `json:"original_path"`
	Kind         string `json:"kind"`
	Reason       string `json:"reason"`
}

type mediaProcessConsumer struct {
	mediaApp appsvc.MediaApp
	topic    string
	groupID  string
	ctx      context.Context
	cancel   context.CancelFunc
}

func (c *mediaProcessConsumer) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())
	reader := pkgkafka.DefaultClient().Reader(c.topic, c.groupID)
	go func() {
		defer reader.Close()
		logger.Infof("Kafka consumer started topic=%s group=%s", c.topic, c.groupID)
		for {
			msg, err := reader.ReadMessage(c.ctx)
			if err != nil {
				if c.ctx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "EOF") {
					logger.Debug("Kafka reader EOF")
				} else {
					logger.Warnf("Kafka read error error=%s", err.Error())
				}
				continue
			}
			c.handle(msg.Value)
		}
	}()
	return nil
}

func (c *mediaProcessConsumer) handle(value []byte) {
	var m mediaProcessMessage
	if err := json.Unmarshal(value, &m); err != nil {
		logger.Warnf("Kafka message unmarshal error error=%s", err.Error())
		return
	}
	logger.Infof("Kafka message received item_uuid=%s slug=%s kind=%s", m.ItemUUID, m.Slug, m.Kind)

	ctx := context.Background()
	itemUUID := m.ItemUUID
	if itemUUID == "" && m.Slug != "" {
		item, err := c.mediaApp.RegisterMedia(ctx, &cqe.RegisterMediaReq{
			Slug:         m.Slug,
			Title:        m.Title,
			OriginalPath: m.OriginalPath,
		})
		if err != nil {
			logger.Warnf("RegisterMedia via Kafka failed error=%s slug=%s", err.Error(), m.Slug)
			return
		}
		itemUUID = item.ItemUUID
	}
	if itemUUID == "" {
		logger.Warn("Kafka message missing item_uuid and slug, dropped")
		return
	}
	if m.Kind == "" {
		// 登记消息可以不带处理类型，元数据提取在登记时已经派发
		return
	}

	reason := m.Reason
	if reason == "" {
		reason = "kafka"
	}
	req := &cqe.EnqueueProcessingReq{ItemUUID: itemUUID, Kind: m.Kind, Reason: reason}
	if _, err := c.mediaApp.EnqueueProcessing(ctx, req); err != nil {
		logger.Warnf("EnqueueProcessing via Kafka failed error=%s item_uuid=%s kind=%s", err.Error(), itemUUID, m.Kind)
	}
}

func (c *mediaProcessConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *mediaProcessConsumer) GetName() string { return "mediaProcessConsumer" }

// disabledConsumer Kafka关闭时的空实现
type disabledConsumer struct{}

func (d *disabledConsumer) Start() error    { return nil }
func (d *disabledConsumer) Stop() error     { return nil }
func (d *disabledConsumer) GetName() string { return "mediaProcessConsumer(disabled)" }
