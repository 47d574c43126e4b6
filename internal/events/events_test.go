package events

import (
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telana99/vehicle-record-ledger/internal/models"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	published  []published
	publishErr error
}

func (c *fakeClient) Connect() mqtt.Token { return &fakeToken{} }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, published{topic: topic, payload: payload.([]byte)})
	return &fakeToken{err: c.publishErr}
}

func (c *fakeClient) Disconnect(quiesce uint) {}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{}
	publisher := newPublisherWithClient(client, "ledger-addr", log.New())

	publisher.Publish(models.Event{
		Type:        models.EventServiceRecordAdded,
		Center:      "quick-fix-auto",
		VehicleID:   "ABC123",
		ServiceType: "Oil Change",
		Timestamp:   1700000000,
	})

	require.Len(t, client.published, 1)
	assert.Equal(t, "vehicleledger/ledger-addr/service_record_added", client.published[0].topic)

	var ev models.Event
	require.NoError(t, json.Unmarshal(client.published[0].payload, &ev))
	assert.Equal(t, models.Principal("quick-fix-auto"), ev.Center)
	assert.Equal(t, "ABC123", ev.VehicleID)
	assert.Equal(t, int64(1700000000), ev.Timestamp)
}

func TestMQTTPublisher_TopicPerEventType(t *testing.T) {
	client := &fakeClient{}
	publisher := newPublisherWithClient(client, "ledger-addr", log.New())

	publisher.Publish(models.Event{Type: models.EventServiceCenterAdded, Center: "a", Name: "A"})
	publisher.Publish(models.Event{Type: models.EventServiceCenterRemoved, Center: "a"})

	require.Len(t, client.published, 2)
	assert.Equal(t, "vehicleledger/ledger-addr/service_center_added", client.published[0].topic)
	assert.Equal(t, "vehicleledger/ledger-addr/service_center_removed", client.published[1].topic)
}

func TestNewLogListener(t *testing.T) {
	logger := log.New()
	listener := NewLogListener(logger)

	// Must not panic on any event shape; logging output is not asserted.
	listener(models.Event{Type: models.EventServiceCenterAdded, Center: "a", Name: "A"})
	listener(models.Event{})
}
