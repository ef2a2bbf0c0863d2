package events

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ekarpov/bookvault/internal/model"
	"github.com/ekarpov/bookvault/pkg/kafka"
)

// Publisher emits a BookEvent after every successful book mutation. Events
// are an audit side channel: the mutation has already committed when Publish
// runs, so callers treat a publish failure as log-worthy, not fatal.
type Publisher struct {
	producer sarama.SyncProducer
	log      *zap.Logger
}

func NewPublisher(producer sarama.SyncProducer, log *zap.Logger) *Publisher {
	return &Publisher{producer: producer, log: log.Named("events")}
}

func (p *Publisher) Publish(_ context.Context, event model.BookEvent) error {
	if p == nil || p.producer == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal book event")
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: kafka.BookEventsTopic,
		Key:   sarama.StringEncoder(event.BookID.String()),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return errors.Wrap(err, "send book event")
	}
	p.log.Debug("book event published",
		zap.String("book_id", event.BookID.String()),
		zap.String("action", string(event.Action)),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *Publisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
