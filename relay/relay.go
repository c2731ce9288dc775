// Package relay mirrors the envelopes a session receives into a kafka topic, so
// other processes can follow the conversations of a client.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	kafka "github.com/segmentio/kafka-go"

	"github.com/mqy/minichat/chatstore"
)

const (
	kafkaWriteTimeout = 10 * time.Second
	writeTimeout      = 3 * time.Second

	BackoffMinInterval = 1 * time.Second
	BackoffMaxInterval = 60 * time.Second
	BackoffMultiplier  = 1.5

	DefaultQueueSize = 1024
)

var relayCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "minichat",
	Name:      "relay_records_total",
	Help:      "Records handled by the kafka relay, by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(relayCounter)
}

// NewKafkaWriter creates the writer for topic. Records of one conversation hash
// to one partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Dialer: &kafka.Dialer{
			Timeout:   kafkaWriteTimeout,
			DualStack: true,
		},
	})
}

// Relay is a store observer that forwards appended envelopes to kafka. Observe
// never blocks: when the queue is full the record is dropped.
type Relay struct {
	owner    string
	writer   IKafkaWriter
	queue    chan kafka.Message
	maxBytes int

	minBackoff time.Duration
}

func New(owner string, writer IKafkaWriter, queueSize, maxBytes int) *Relay {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Relay{
		owner:      owner,
		writer:     writer,
		queue:      make(chan kafka.Message, queueSize),
		maxBytes:   maxBytes,
		minBackoff: BackoffMinInterval,
	}
}

// Observe is a chatstore observer. Only appends are relayed: replaced history
// is already known to the backend.
func (r *Relay) Observe(c chatstore.Change) {
	if c.Op != chatstore.OpAppend || c.Envelope == nil {
		return
	}

	value, err := json.Marshal(&Record{
		Owner:    r.owner,
		Kind:     c.Key.Kind.String(),
		Key:      c.Key.String(),
		Version:  c.Version,
		Time:     time.Now().UTC(),
		Envelope: *c.Envelope,
	})
	if err != nil {
		glog.Errorf("relay: error marshal record of %s: %v", c.Key, err)
		relayCounter.WithLabelValues("error").Inc()
		return
	}
	if r.maxBytes > 0 && len(value) > r.maxBytes {
		glog.Errorf("relay: record of %s exceeds max limit: %d > %d bytes", c.Key, len(value), r.maxBytes)
		relayCounter.WithLabelValues("oversize").Inc()
		return
	}

	select {
	case r.queue <- kafka.Message{Key: []byte(c.Key.String()), Value: value}:
	default:
		glog.Warningf("relay: queue full, drop record of %s", c.Key)
		relayCounter.WithLabelValues("dropped").Inc()
	}
}

// Run writes queued records until ctx is done, then closes the writer. Failed
// writes are retried with backoff.
func (r *Relay) Run(ctx context.Context, stopDoneNotifyC chan<- struct{}) {
	glog.Info("relay: ready")
	defer func() {
		if n := len(r.queue); n > 0 {
			glog.Warningf("relay: %d records not written", n)
		}
		_ = r.writer.Close()
		glog.Info("relay: stopped")
		stopDoneNotifyC <- struct{}{}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.queue:
			if !r.write(ctx, msg) {
				return
			}
		}
	}
}

// write retries msg until it is written or ctx is done.
func (r *Relay) write(ctx context.Context, msg kafka.Message) bool {
	var sleep time.Duration
	for {
		err := r.writeOnce(ctx, msg)
		if err == nil {
			relayCounter.WithLabelValues("ok").Inc()
			return true
		}

		glog.Errorf("relay: %v", err)
		if ctx.Err() != nil {
			return false
		}
		r.backoff(&sleep)
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return false
		}
	}
}

func (r *Relay) writeOnce(ctx context.Context, msg kafka.Message) error {
	ctx2, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := r.writer.WriteMessages(ctx2, msg); err != nil {
		return fmt.Errorf("error write %s to kafka: %v", msg.Key, err)
	}
	return nil
}

func (r *Relay) backoff(d *time.Duration) {
	if *d == 0 {
		*d = r.minBackoff
	} else {
		*d = time.Duration(float64(*d) * BackoffMultiplier)
		if *d < BackoffMaxInterval {
			*d = d.Truncate(time.Millisecond)
		} else {
			*d = r.minBackoff
		}
	}
}
