package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer feeds payloads persisted by other instances into the local hub.
type Consumer struct {
	reader *kafka.Reader
	log    *zap.SugaredLogger
}

func NewConsumer(brokers []string, topic, groupID string, log *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, log: log}
}

func (c *Consumer) Start(ctx context.Context, handle func(key string, value []byte)) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warnw("kafka read", "err", err)
			time.Sleep(time.Second)
			continue
		}
		handle(string(m.Key), m.Value)
	}
}

func (c *Consumer) Close(ctx context.Context) error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
