package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lightsaway/event-gateway/internal/config"
	"github.com/lightsaway/event-gateway/internal/logger"
	"github.com/lightsaway/event-gateway/internal/metrics"
	"github.com/lightsaway/event-gateway/internal/model"
)

func qosFromConfig(level int) byte {
	switch level {
	case 1:
		return 1
	case 2:
		return 2
	default:
		return 0
	}
}

// MqttPublisher publishes events over paho.mqtt.golang, grounded on
// original_source/src/publisher/mqtt_publisher.rs's client options and
// QoS/retain semantics.
type MqttPublisher struct {
	client mqtt.Client
	qos    byte
	retain bool
}

func NewMqttPublisher(cfg config.MqttPublisherConfig) (*MqttPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetKeepAlive(time.Duration(cfg.KeepAliveSecs) * time.Second).
		SetCleanSession(cfg.CleanSession).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.GetLogger().WithError(err).Warn("mqtt publisher: connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, NewError("mqtt publisher: connect", token.Error())
	}

	return &MqttPublisher{client: client, qos: qosFromConfig(cfg.QoS), retain: cfg.Retain}, nil
}

func (p *MqttPublisher) PublishOne(ctx context.Context, topic string, event model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		metrics.RecordPublish("mqtt", topic, "error")
		return NewError("mqtt publisher: marshal event", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		metrics.RecordPublish("mqtt", topic, "error")
		return NewError("mqtt publisher: publish", ctx.Err())
	case <-done:
	}

	if token.Error() != nil {
		metrics.RecordPublish("mqtt", topic, "error")
		return NewError("mqtt publisher: publish", token.Error())
	}
	metrics.RecordPublish("mqtt", topic, "success")
	return nil
}

func (p *MqttPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
