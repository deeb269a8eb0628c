//go:build integration

package relay

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/rain-droid/orgIO/internal/consumer"
	"github.com/rain-droid/orgIO/internal/realtime"
	"github.com/rain-droid/orgIO/pkg/events"
)

type channelListener chan events.Envelope

func (c channelListener) Send(envelope events.Envelope) error {
	select {
	case c <- envelope:
		return nil
	default:
		return realtime.ErrListenerClosed
	}
}

func TestRelayDeliversAcrossInstances(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.RunContainer(ctx, testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	topic := "orgio.realtime"
	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))

	// Two hubs stand in for two API instances, each with its own consumer group.
	hubs := []*realtime.Hub{realtime.NewHub(), realtime.NewHub()}
	listeners := []channelListener{make(channelListener, 4), make(channelListener, 4)}
	consumerCtx, stop := context.WithCancel(ctx)
	defer stop()

	for i, hub := range hubs {
		hub.Subscribe("org-1", listeners[i])
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     "relay-integration-" + string(rune('a'+i)),
			Topic:       topic,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.FirstOffset,
		})
		t.Cleanup(func() { _ = reader.Close() })
		proc := consumer.NewProcessor(reader, NewHubHandler(hub))
		go func() {
			_ = proc.Run(consumerCtx)
		}()
	}

	publisher := NewPublisher(brokers, topic)
	defer publisher.Close()

	require.NoError(t, publisher.Notify(ctx, "org-1", events.Envelope{
		Type:    events.TypeSessionStarted,
		Payload: events.SessionStarted{SessionID: "s-1", BriefID: "b-1"},
	}))

	for _, listener := range listeners {
		select {
		case env := <-listener:
			require.Equal(t, events.TypeSessionStarted, env.Type)
		case <-time.After(60 * time.Second):
			t.Fatal("relayed envelope not delivered")
		}
	}
}
