package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqy/minichat/chatstore"
	relay_mock "github.com/mqy/minichat/relay/mock"
)

func TestObserveForwardsAppendsOnly(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	writer := relay_mock.NewMockIKafkaWriter(mockCtrl)
	r := New("alice", writer, 16, 4096)

	cs := chatstore.NewStore()
	cs.Subscribe(r.Observe)

	env := chatstore.Envelope{SenderName: "bob", Status: chatstore.StatusMessage, Message: "hi", GroupID: "7"}
	cs.Ensure(chatstore.PrivateKey("bob"))
	cs.Replace(chatstore.PublicKey, []chatstore.Envelope{{SenderName: "x", Message: "old"}})
	cs.Append(chatstore.GroupKey("7"), env)
	cs.Remove(chatstore.PrivateKey("bob"))
	cs.Clear()

	written := make(chan kafka.Message, 4)
	writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, msgs ...kafka.Message) error {
		for _, m := range msgs {
			written <- m
		}
		return nil
	}).Times(1)
	writer.EXPECT().Close().Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopDone := make(chan struct{}, 1)
	go r.Run(ctx, stopDone)

	var msg kafka.Message
	select {
	case msg = <-written:
	case <-time.After(5 * time.Second):
		t.Fatal("nothing written")
	}
	cancel()
	<-stopDone

	assert.Equal(t, "group:7", string(msg.Key))
	var rec Record
	require.NoError(t, json.Unmarshal(msg.Value, &rec))
	assert.Equal(t, "alice", rec.Owner)
	assert.Equal(t, "group", rec.Kind)
	assert.EqualValues(t, 1, rec.Version)
	assert.Equal(t, env, rec.Envelope)
	assert.Empty(t, r.queue)
}

func TestObserveDropsOversizeAndOverflow(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	r := New("alice", relay_mock.NewMockIKafkaWriter(mockCtrl), 1, 512)

	big := chatstore.Envelope{SenderName: "bob", Message: strings.Repeat("x", 1024)}
	r.Observe(chatstore.Change{Op: chatstore.OpAppend, Key: chatstore.PublicKey, Envelope: &big})
	assert.Len(t, r.queue, 0)

	small := chatstore.Envelope{SenderName: "bob", Message: "hi"}
	r.Observe(chatstore.Change{Op: chatstore.OpAppend, Key: chatstore.PublicKey, Envelope: &small})
	r.Observe(chatstore.Change{Op: chatstore.OpAppend, Key: chatstore.PublicKey, Envelope: &small})
	assert.Len(t, r.queue, 1)
}

func TestRunRetriesFailedWrite(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	writer := relay_mock.NewMockIKafkaWriter(mockCtrl)
	r := New("alice", writer, 4, 0)
	r.minBackoff = 10 * time.Millisecond

	done := make(chan struct{})
	gomock.InOrder(
		writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(errors.New("leader not available")).Times(2),
		writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, ...kafka.Message) error {
			close(done)
			return nil
		}),
	)
	writer.EXPECT().Close().Return(nil)

	env := chatstore.Envelope{SenderName: "bob", Message: "hi"}
	r.Observe(chatstore.Change{Op: chatstore.OpAppend, Key: chatstore.PrivateKey("bob"), Envelope: &env})

	ctx, cancel := context.WithCancel(context.Background())
	stopDone := make(chan struct{}, 1)
	go r.Run(ctx, stopDone)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("write not retried")
	}
	cancel()
	<-stopDone
}

func TestBackoff(t *testing.T) {
	r := New("alice", nil, 1, 0)

	var d time.Duration
	r.backoff(&d)
	assert.Equal(t, BackoffMinInterval, d)
	r.backoff(&d)
	assert.Equal(t, 1500*time.Millisecond, d)

	d = BackoffMaxInterval
	r.backoff(&d)
	assert.Equal(t, BackoffMinInterval, d)
}
