package events

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/config"
)

const (
	BackendNone  = "none"
	BackendAMQP  = "amqp"
	BackendKafka = "kafka"
)

// FromConfig builds the configured publisher wrapped in a circuit breaker.
func FromConfig(cfg *config.Config) (Publisher, error) {
	var (
		p   Publisher
		err error
	)

	switch cfg.EventsBackend {
	case "", BackendNone:
		return Noop{}, nil
	case BackendAMQP:
		p, err = NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	case BackendKafka:
		p, err = NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}
	if err != nil {
		return nil, err
	}
	return NewGuarded(p, cfg.EventsBackend, 5, time.Minute), nil
}
