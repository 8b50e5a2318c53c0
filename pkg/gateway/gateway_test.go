package gateway

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/airchat/pkg/history"
	"github.com/herlein/airchat/pkg/host"
)

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu       sync.Mutex
	pubs     []published
	handlers map[string]paho.MessageHandler
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]paho.MessageHandler{}}
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() paho.Token    { return &paho.DummyToken{} }
func (c *fakeClient) Disconnect(uint)        {}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pubs = append(c.pubs, published{topic, payload.([]byte)})
	return &paho.DummyToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = callback
	return &paho.DummyToken{}
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, callback paho.MessageHandler) paho.Token {
	for topic := range filters {
		c.Subscribe(topic, 0, callback)
	}
	return &paho.DummyToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.handlers, topic)
	}
	return &paho.DummyToken{}
}

func (c *fakeClient) AddRoute(topic string, callback paho.MessageHandler) {}

func (c *fakeClient) OptionsReader() paho.ClientOptionsReader {
	return paho.ClientOptionsReader{}
}

func (c *fakeClient) deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	h := c.handlers[topic]
	c.mu.Unlock()
	if h == nil {
		return false
	}
	h(c, &fakeMessage{topic: topic, payload: payload})
	return true
}

func (c *fakeClient) published() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.pubs...)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type sentMessage struct{ user, text string }

type fakeDevice struct {
	mu      sync.Mutex
	events  chan host.Event
	configs [][2]byte
	sent    []sentMessage
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{events: make(chan host.Event, 8)}
}

func (d *fakeDevice) Configure(code, backoff byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configs = append(d.configs, [2]byte{code, backoff})
	return nil
}

func (d *fakeDevice) Send(user, text string) error {
	if _, err := host.EncodeMessage(user, text); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentMessage{user, text})
	return nil
}

func (d *fakeDevice) ReadEvent() (host.Event, error) {
	ev, ok := <-d.events
	if !ok {
		return host.Event{}, io.EOF
	}
	return ev, nil
}

func (d *fakeDevice) sentMessages() []sentMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sentMessage(nil), d.sent...)
}

func startGateway(t *testing.T, client *fakeClient, dev *fakeDevice, hist *history.Store) *Gateway {
	g := New(client, "lab/airchat", dev, "gateway", hist)
	g.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	require.NoError(t, g.Configure(3, 20))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.handlers["lab/airchat/tx"] != nil
	}, time.Second, time.Millisecond)
	return g
}

func TestRunRequiresConfigure(t *testing.T) {
	g := New(newFakeClient(), "", newFakeDevice(), "gateway", nil)
	assert.ErrorIs(t, g.Run(context.Background()), ErrNotConfigured)
}

func TestPublishesReceivedMessages(t *testing.T) {
	client, dev := newFakeClient(), newFakeDevice()
	hist, err := history.Open(":memory:")
	require.NoError(t, err)
	defer hist.Close()
	startGateway(t, client, dev, hist)

	dev.events <- host.Event{Kind: host.EventMessage, User: "bob", Text: "hello"}
	require.Eventually(t, func() bool { return len(client.published()) == 1 }, time.Second, time.Millisecond)

	pub := client.published()[0]
	assert.Equal(t, "lab/airchat/rx", pub.topic)
	var msg RxMessage
	require.NoError(t, json.Unmarshal(pub.payload, &msg))
	assert.Equal(t, "bob", msg.User)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, uint8(3), msg.Channel)

	require.Eventually(t, func() bool {
		n, err := hist.Count()
		return err == nil && n == 1
	}, time.Second, time.Millisecond)
}

func TestResetReconfigures(t *testing.T) {
	client, dev := newFakeClient(), newFakeDevice()
	startGateway(t, client, dev, nil)

	dev.events <- host.Event{Kind: host.EventReset}
	require.Eventually(t, func() bool { return len(client.published()) == 1 }, time.Second, time.Millisecond)

	pub := client.published()[0]
	assert.Equal(t, "lab/airchat/status", pub.topic)
	var st StatusEvent
	require.NoError(t, json.Unmarshal(pub.payload, &st))
	assert.Equal(t, "reset", st.Event)
	assert.True(t, st.Reconfigured)

	dev.mu.Lock()
	defer dev.mu.Unlock()
	assert.Equal(t, [][2]byte{{3, 20}, {3, 20}}, dev.configs)
}

func TestTXRequests(t *testing.T) {
	client, dev := newFakeClient(), newFakeDevice()
	startGateway(t, client, dev, nil)

	require.True(t, client.deliver("lab/airchat/tx", []byte(`{"user":"alice","text":"from json"}`)))
	require.True(t, client.deliver("lab/airchat/tx", []byte("plain text")))
	require.True(t, client.deliver("lab/airchat/tx", []byte(`{"user":"x","text":"bad user"}`)))

	assert.Equal(t, []sentMessage{
		{"alice", "from json"},
		{"gateway", "plain text"},
	}, dev.sentMessages())
}

func TestRunEndsOnDeviceError(t *testing.T) {
	client, dev := newFakeClient(), newFakeDevice()
	g := New(client, "", dev, "gateway", nil)
	require.NoError(t, g.Configure(1, 10))
	close(dev.events)

	err := g.Run(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Empty(t, client.handlers)
}

func TestClientOptionsFromURL(t *testing.T) {
	opts, prefix, err := ClientOptionsFromURL("mqtt://u:p@broker:1883/lab/airchat?client-id=node1")
	require.NoError(t, err)
	assert.Equal(t, "lab/airchat", prefix)
	assert.Equal(t, "node1", opts.ClientID)
	assert.Equal(t, "u", opts.Username)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://broker:1883", opts.Servers[0].String())

	opts, prefix, err = ClientOptionsFromURL("ssl://broker:8883")
	require.NoError(t, err)
	assert.Empty(t, prefix)
	assert.NotEmpty(t, opts.ClientID)
	assert.Equal(t, "ssl://broker:8883", opts.Servers[0].String())

	assert.Equal(t, "rx", Topic("", "rx"))
	assert.Equal(t, "a/b/rx", Topic("a/b", "rx"))
}
