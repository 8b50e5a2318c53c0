package host

import (
	"fmt"
	"strings"

	"github.com/herlein/airchat/pkg/link"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 16
	MaxTextLen     = 192
	// MaxFrameLen bounds a read from the device
	MaxFrameLen = 256
)

// EventKind classifies a frame from the device
type EventKind int

const (
	// EventMessage is a chat message heard over the air
	EventMessage EventKind = iota
	// EventReset means the device rebooted and needs configuring again
	EventReset
	// EventGarbled is a data frame that did not decode
	EventGarbled
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventReset:
		return "reset"
	case EventGarbled:
		return "garbled"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one decoded frame
type Event struct {
	Kind EventKind
	User string
	Text string
	Raw  []byte
}

// EncodeConfig builds [0x01, code, backoff, 0xFF]
func EncodeConfig(code, backoff byte) ([]byte, error) {
	if code == link.Sentinel || backoff == link.Sentinel {
		return nil, ErrInvalidConfig
	}
	return []byte{link.TagConfig, code, backoff, link.Sentinel}, nil
}

// EncodeMessage builds [0x02, len(user), user..., text..., 0xFF]
func EncodeMessage(user, text string) ([]byte, error) {
	if err := ValidateUsername(user); err != nil {
		return nil, err
	}
	if len(text) == 0 || len(text) > MaxTextLen || !isASCII(text) {
		return nil, ErrInvalidText
	}
	frame := make([]byte, 0, 3+len(user)+len(text))
	frame = append(frame, link.TagData, byte(len(user)))
	frame = append(frame, user...)
	frame = append(frame, text...)
	return append(frame, link.Sentinel), nil
}

// ValidateUsername checks length and character set
func ValidateUsername(user string) error {
	if len(user) < MinUsernameLen || len(user) > MaxUsernameLen || !isASCII(user) || strings.ContainsRune(user, ' ') {
		return ErrInvalidUsername
	}
	return nil
}

// DecodeFrame interprets one frame including its terminator. Anything
// not tagged as data is treated as a reset notice.
func DecodeFrame(frame []byte) Event {
	ev := Event{Raw: frame}
	if len(frame) == 0 || frame[0] != link.TagData {
		ev.Kind = EventReset
		return ev
	}

	body := frame[1:]
	if n := len(body); n > 0 && body[n-1] == link.Sentinel {
		body = body[:n-1]
	}
	if len(body) == 0 {
		ev.Kind = EventGarbled
		return ev
	}
	userLen := int(body[0])
	if userLen+1 > len(body) {
		ev.Kind = EventGarbled
		return ev
	}
	user := string(body[1 : 1+userLen])
	text := string(body[1+userLen:])
	if !isASCII(user) || !isASCII(text) {
		ev.Kind = EventGarbled
		return ev
	}
	ev.Kind = EventMessage
	ev.User = user
	ev.Text = strings.TrimSpace(text)
	return ev
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
