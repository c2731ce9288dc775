//go:generate mockgen -destination=mock/mock_relay.go -package=mock github.com/mqy/minichat/relay IKafkaWriter

package relay

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mqy/minichat/chatstore"
)

// IKafkaWriter is the part of kafka.Writer the relay uses.
type IKafkaWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Record is the kafka message value, one per appended envelope.
type Record struct {
	Owner    string             `json:"owner"`
	Kind     string             `json:"kind"`
	Key      string             `json:"key"`
	Version  uint64             `json:"version"`
	Time     time.Time          `json:"time"`
	Envelope chatstore.Envelope `json:"envelope"`
}
