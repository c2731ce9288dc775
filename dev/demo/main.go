package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
	kafka "github.com/segmentio/kafka-go"

	"github.com/mqy/minichat/relay"
)

// The demo tails the relay topic and prints every record, i.e. what the clients
// running with --kafka-brokers receive.

// kafka-topics.sh --bootstrap-server localhost:9092 --topic minichat-envelopes --create

var (
	kafkaEndpoints = flag.String("kafka-endpoints", "127.0.0.1:9092", "kafka endpoints, ',' delimitted.")
	kafkaTopic     = flag.String("kafka-topic", "minichat-envelopes", "relay topic")
	kafkaGroupId   = flag.String("kafka-group-id", "", "consumer group, empty to read all partitions from the start")
	owner          = flag.String("owner", "", "only print records relayed by this identity")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if len(*kafkaEndpoints) == 0 {
		panic("--kafka-endpoints is required.")
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: strings.Split(*kafkaEndpoints, ","),
		GroupID: *kafkaGroupId,
		Topic:   *kafkaTopic,
		Dialer: &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})
	defer r.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				glog.Errorf("read: %v", err)
			}
			return
		}

		var rec relay.Record
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			glog.Errorf("bad record at offset %d: %v", msg.Offset, err)
			continue
		}
		if *owner != "" && rec.Owner != *owner {
			continue
		}

		env := rec.Envelope
		fmt.Printf("%s %s [%s] %s: %s", rec.Time.Format(time.RFC3339), rec.Owner, rec.Key, env.SenderName, env.Message)
		if env.Media != "" {
			fmt.Printf(" <%s %s>", env.MediaType, env.Media)
		}
		fmt.Println()
	}
}
