// Package events publishes borrow-request lifecycle transitions.
package events

import (
	"context"

	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/libsys/library/internal/model"
)

type Publisher interface {
	Publish(ctx context.Context, ev model.BorrowEvent) error
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

// NewKafkaPublisher keys messages by ISBN so that events of one book stay ordered within a partition.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string, log *zap.Logger) *kafkaPublisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      log.Named("events"),
	}
}

func (p *kafkaPublisher) Publish(_ context.Context, ev model.BorrowEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.BookISBN),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(ev.Type)},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "send %s", ev.Type)
	}
	p.log.Debug("published",
		zap.String("type", string(ev.Type)),
		zap.String("request", ev.RequestID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

type noop struct{}

// Noop discards events; used when no brokers are configured.
func Noop() Publisher {
	return noop{}
}

func (noop) Publish(context.Context, model.BorrowEvent) error {
	return nil
}
