package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/campuskit/iam-service/internal/infra/config"
)

// Producer owns the async sarama producer and the goroutine draining its
// error channel. Delivery failures are logged, not surfaced to callers;
// event publication is fire-and-forget.
type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
	prefix   string
	done     chan struct{}
}

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_5_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 100 * time.Millisecond
	cfg.Producer.Flush.Messages = 100
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Metadata.Retry.Max = 3
	cfg.Metadata.Retry.Backoff = 250 * time.Millisecond
	return cfg
}

func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	async, err := sarama.NewAsyncProducer(cfg.Brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	p := &Producer{
		producer: async,
		logger:   logger,
		prefix:   cfg.TopicPrefix,
		done:     make(chan struct{}),
	}
	go p.drainErrors()

	logger.Info("kafka producer ready",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix))

	return p, nil
}

func (p *Producer) drainErrors() {
	for {
		select {
		case perr := <-p.producer.Errors():
			if perr == nil {
				continue
			}
			p.logger.Error("kafka delivery failed",
				zap.String("topic", perr.Msg.Topic),
				zap.Error(perr.Err))
		case <-p.done:
			return
		}
	}
}

// Producer exposes the underlying async producer for message input.
func (p *Producer) Producer() sarama.AsyncProducer {
	return p.producer
}

// TopicName prefixes the event kind with the configured topic prefix.
func (p *Producer) TopicName(eventKind string) string {
	if p.prefix == "" || strings.HasPrefix(eventKind, p.prefix+".") {
		return eventKind
	}
	return p.prefix + "." + eventKind
}

// Close flushes pending messages and stops the error drain.
func (p *Producer) Close() error {
	close(p.done)
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
