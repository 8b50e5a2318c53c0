// airchat-mqtt: Bridge an airchat device to an MQTT broker
//
// Messages heard over the air are published as JSON on <prefix>/rx, device
// resets on <prefix>/status, and payloads published on <prefix>/tx are
// sent as chat messages.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/herlein/airchat/pkg/gateway"
	"github.com/herlein/airchat/pkg/history"
	"github.com/herlein/airchat/pkg/host"
	"github.com/herlein/airchat/pkg/usbserial"
)

func main() {
	brokerURL := flag.String("broker", "mqtt://localhost:1883/airchat", "Broker URL; the path is the topic prefix")
	deviceSel := flag.String("d", "", usbserial.SelectorFlagUsage())
	channel := flag.Int("c", 0, "Channel code")
	user := flag.String("u", "", "Username for plain-text tx payloads (default: derived from machine id)")
	historyPath := flag.String("history", "", "History database path (disabled when empty)")
	flag.Parse()
	defer glog.Flush()

	if *channel < 0 || *channel > 254 {
		glog.Exitf("invalid channel code %d", *channel)
	}
	name := *user
	if name == "" {
		name = host.DefaultUsername()
	}
	if err := host.ValidateUsername(name); err != nil {
		glog.Exitf("%v", err)
	}

	port, err := usbserial.ResolvePort(usbserial.BridgeSelector(*deviceSel))
	if err != nil {
		glog.Exitf("%v", err)
	}
	client, closer, err := host.Dial(port)
	if err != nil {
		glog.Exitf("%v", err)
	}
	defer closer.Close()

	var store *history.Store
	if *historyPath != "" {
		if store, err = history.Open(*historyPath); err != nil {
			glog.Exitf("%v", err)
		}
		defer store.Close()
	}

	opts, prefix, err := gateway.ClientOptionsFromURL(*brokerURL)
	if err != nil {
		glog.Exitf("broker url: %v", err)
	}
	opts.SetOnConnectHandler(func(paho.Client) { glog.Info("connected") })
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) { glog.Warningf("connection lost: %v", err) })
	mqttClient := paho.NewClient(opts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		glog.Exitf("connect %s: %v", *brokerURL, token.Error())
	}
	defer mqttClient.Disconnect(250)

	gw := gateway.New(mqttClient, prefix, client, name, store)
	if err := gw.Configure(uint8(*channel), host.RandomBackoff()); err != nil {
		glog.Exitf("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
	}()

	glog.Infof("bridging %s to %s as %s", port, *brokerURL, name)
	if err := gw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		glog.Errorf("gateway stopped: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
