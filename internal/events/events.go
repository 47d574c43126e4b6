package events

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/telana99/vehicle-record-ledger/internal/models"
)

// NewLogListener returns a listener that writes every ledger event to the
// log. This is the human-readable narration hook used by demo deployments.
func NewLogListener(logger *log.Logger) func(models.Event) {
	return func(ev models.Event) {
		logger.WithFields(log.Fields{
			"type":         ev.Type,
			"center":       ev.Center,
			"name":         ev.Name,
			"vehicle_id":   ev.VehicleID,
			"service_type": ev.ServiceType,
			"timestamp":    ev.Timestamp,
		}).Info("Ledger event")
	}
}

// mqttClient is the subset of the paho client the publisher uses.
type mqttClient interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher fans ledger events out to external observers subscribed
// against the ledger's address. Delivery is best-effort: a failed publish is
// logged and dropped, never retried.
type MQTTPublisher struct {
	client      mqttClient
	topicPrefix string
	logger      *log.Logger
}

// NewMQTTPublisher connects to the broker and returns a publisher scoped to
// the ledger address.
func NewMQTTPublisher(brokerURL, address string, logger *log.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("vehicleledger-" + address).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)

	p := newPublisherWithClient(client, address, logger)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s failed: %w", brokerURL, err)
	}
	return p, nil
}

func newPublisherWithClient(client mqttClient, address string, logger *log.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client:      client,
		topicPrefix: "vehicleledger/" + address,
		logger:      logger,
	}
}

// Publish sends one event as JSON to vehicleledger/<address>/<event-type>.
// Satisfies ledger.Listener.
func (p *MQTTPublisher) Publish(ev models.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal ledger event")
		return
	}
	topic := p.topicPrefix + "/" + string(ev.Type)
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		p.logger.WithField("topic", topic).Error("MQTT publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		p.logger.WithError(err).WithField("topic", topic).Error("MQTT publish failed")
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
