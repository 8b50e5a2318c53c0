package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/abiosoft/ishell"

	"github.com/herlein/airchat/pkg/history"
	"github.com/herlein/airchat/pkg/host"
	"github.com/herlein/airchat/pkg/profiles"
)

const defaultHistoryLines = 20

type chatShell struct {
	shell  *ishell.Shell
	client *host.Client
	store  *history.Store

	mu         sync.Mutex
	user       string
	channel    uint8
	configured bool
}

func newChatShell(client *host.Client, store *history.Store, user string) *chatShell {
	s := &chatShell{
		shell:  ishell.New(),
		client: client,
		store:  store,
		user:   user,
	}
	s.shell.SetPrompt("airchat > ")
	s.shell.AddCmd(&ishell.Cmd{
		Name: "user",
		Help: "[NAME] show or set the username",
		Func: s.userCmd,
	})
	s.shell.AddCmd(&ishell.Cmd{
		Name:    "config",
		Aliases: []string{"channel"},
		Help:    "CHANNEL configure the device (CH00-CH07 2FSK, CH10-CH17 OOK, or a code)",
		Func:    s.configCmd,
	})
	s.shell.AddCmd(&ishell.Cmd{
		Name:    "send",
		Aliases: []string{"say"},
		Help:    "TEXT send a message",
		Func:    s.sendCmd,
	})
	s.shell.AddCmd(&ishell.Cmd{
		Name: "history",
		Help: "[N] show the last N messages",
		Func: s.historyCmd,
	})
	s.shell.AddCmd(&ishell.Cmd{
		Name: "channels",
		Help: "list channel codes",
		Func: s.channelsCmd,
	})
	return s
}

func (s *chatShell) configure(code uint8) error {
	backoff, err := s.client.ConfigureProfile(profiles.ForChannelCode(code))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.channel, s.configured = code, true
	s.mu.Unlock()
	s.shell.Printf("Configured %s (backoff %d)\n", profiles.ChannelName(code), backoff)
	return nil
}

func (s *chatShell) record(dir history.Direction, user, text string) {
	s.mu.Lock()
	channel := s.channel
	s.mu.Unlock()
	if err := s.store.Record(&history.Message{Direction: dir, Channel: channel, User: user, Text: text}); err != nil {
		s.shell.Printf("history: %v\n", err)
	}
}

func (s *chatShell) userCmd(c *ishell.Context) {
	if len(c.Args) == 0 {
		s.mu.Lock()
		c.Println(s.user)
		s.mu.Unlock()
		return
	}
	if err := host.ValidateUsername(c.Args[0]); err != nil {
		c.Err(err)
		return
	}
	s.mu.Lock()
	s.user = c.Args[0]
	s.mu.Unlock()
	c.Printf("Username set to %s\n", c.Args[0])
}

func (s *chatShell) configCmd(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Err(fmt.Errorf("usage: config CHANNEL"))
		return
	}
	code, err := parseChannel(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	if err := s.configure(code); err != nil {
		c.Err(err)
	}
}

func (s *chatShell) sendCmd(c *ishell.Context) {
	text := strings.Join(c.Args, " ")
	s.mu.Lock()
	user, configured := s.user, s.configured
	s.mu.Unlock()
	if !configured {
		c.Err(fmt.Errorf("not configured, use config CHANNEL first"))
		return
	}
	if err := s.client.Send(user, text); err != nil {
		c.Err(err)
		return
	}
	c.Printf("> %s: %s\n", user, text)
	s.record(history.Sent, user, text)
}

func (s *chatShell) historyCmd(c *ishell.Context) {
	n := defaultHistoryLines
	if len(c.Args) > 0 {
		v, err := strconv.Atoi(c.Args[0])
		if err != nil || v <= 0 {
			c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
			return
		}
		n = v
	}
	msgs, err := s.store.Recent(n)
	if err != nil {
		c.Err(err)
		return
	}
	for _, m := range msgs {
		c.Println(m.String())
	}
}

func (s *chatShell) channelsCmd(c *ishell.Context) {
	for _, code := range profiles.ChannelCodes() {
		p := profiles.ForChannelCode(code)
		c.Printf("  %-5s code %2d  %-4s  %.3f MHz\n", p.Name, code, p.Modulation, float64(p.FrequencyHz())/1e6)
	}
}
