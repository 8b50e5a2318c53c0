// Package gateway bridges a device's chat traffic to an MQTT broker.
// Received messages go to <prefix>/rx, device resets to <prefix>/status
// and anything published on <prefix>/tx is sent over the air.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/herlein/airchat/pkg/history"
	"github.com/herlein/airchat/pkg/host"
)

const (
	TopicRX     = "rx"
	TopicTX     = "tx"
	TopicStatus = "status"

	tokenTimeout = 5 * time.Second
)

var ErrNotConfigured = errors.New("gateway: no channel configured")

// Device is the host side of a serial link
type Device interface {
	Configure(code, backoff byte) error
	Send(user, text string) error
	ReadEvent() (host.Event, error)
}

// RxMessage is published for every chat message heard
type RxMessage struct {
	User    string    `json:"user"`
	Text    string    `json:"text"`
	Channel uint8     `json:"channel"`
	Time    time.Time `json:"time"`
}

// TxRequest is accepted on the tx topic. A payload that is not JSON is
// sent as text under the gateway's own username.
type TxRequest struct {
	User string `json:"user,omitempty"`
	Text string `json:"text"`
}

// StatusEvent is published on device resets and garbled frames
type StatusEvent struct {
	Event        string    `json:"event"`
	Channel      uint8     `json:"channel"`
	Reconfigured bool      `json:"reconfigured"`
	Time         time.Time `json:"time"`
}

// Gateway owns one device and one broker connection
type Gateway struct {
	client  paho.Client
	prefix  string
	dev     Device
	user    string
	history *history.Store

	channel    uint8
	backoff    byte
	configured bool

	now func() time.Time
}

// New creates a gateway. History may be nil.
func New(client paho.Client, prefix string, dev Device, user string, hist *history.Store) *Gateway {
	return &Gateway{
		client:  client,
		prefix:  prefix,
		dev:     dev,
		user:    user,
		history: hist,
		now:     time.Now,
	}
}

// Configure sets the channel and remembers it for replay after resets
func (g *Gateway) Configure(code, backoff byte) error {
	if err := g.dev.Configure(code, backoff); err != nil {
		return fmt.Errorf("configure device: %w", err)
	}
	g.channel, g.backoff, g.configured = code, backoff, true
	glog.Infof("device configured: channel %d backoff %d", code, backoff)
	return nil
}

// Run subscribes to the tx topic and forwards device events until ctx
// is done or the device stops producing frames
func (g *Gateway) Run(ctx context.Context) error {
	if !g.configured {
		return ErrNotConfigured
	}
	token := g.client.Subscribe(Topic(g.prefix, TopicTX), 0, g.onTX)
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("subscribe %s: timeout", Topic(g.prefix, TopicTX))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", Topic(g.prefix, TopicTX), err)
	}
	defer g.client.Unsubscribe(Topic(g.prefix, TopicTX))

	errCh := make(chan error, 1)
	go func() {
		for {
			ev, err := g.dev.ReadEvent()
			if err != nil && !errors.Is(err, host.ErrFrameTooLong) {
				errCh <- err
				return
			}
			g.handleEvent(ev)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("device read: %w", err)
	}
}

func (g *Gateway) handleEvent(ev host.Event) {
	switch ev.Kind {
	case host.EventMessage:
		glog.V(1).Infof("rx %s: %s", ev.User, ev.Text)
		msg := RxMessage{User: ev.User, Text: ev.Text, Channel: g.channel, Time: g.now()}
		g.record(history.Received, ev.User, ev.Text)
		g.publish(TopicRX, msg)
	case host.EventReset:
		glog.Warning("device reset")
		st := StatusEvent{Event: "reset", Channel: g.channel, Time: g.now()}
		if err := g.dev.Configure(g.channel, g.backoff); err != nil {
			glog.Errorf("reconfigure after reset: %v", err)
		} else {
			st.Reconfigured = true
		}
		g.publish(TopicStatus, st)
	default:
		glog.Warningf("garbled frame: % x", ev.Raw)
		g.publish(TopicStatus, StatusEvent{Event: "garbled", Channel: g.channel, Time: g.now()})
	}
}

func (g *Gateway) onTX(_ paho.Client, msg paho.Message) {
	req := TxRequest{}
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		req = TxRequest{Text: string(msg.Payload())}
	}
	if req.User == "" {
		req.User = g.user
	}
	if err := g.dev.Send(req.User, req.Text); err != nil {
		glog.Warningf("tx from %s dropped: %v", msg.Topic(), err)
		return
	}
	glog.V(1).Infof("tx %s: %s", req.User, req.Text)
	g.record(history.Sent, req.User, req.Text)
}

func (g *Gateway) publish(leaf string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("marshal %s: %v", leaf, err)
		return
	}
	topic := Topic(g.prefix, leaf)
	g.client.Publish(topic, 0, false, payload)
	glog.V(2).Infof("PUB %q", topic)
}

func (g *Gateway) record(dir history.Direction, user, text string) {
	if g.history == nil {
		return
	}
	m := &history.Message{Direction: dir, Channel: g.channel, User: user, Text: text}
	if err := g.history.Record(m); err != nil {
		glog.Warningf("history: %v", err)
	}
}
