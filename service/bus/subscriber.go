package bus

import (
	"context"

	"PRelay/logger"
)

// Handler receives each successfully decoded bus message, synchronously
// and in per-channel delivery order. It must not block on unbounded I/O.
type Handler func(msg *Message)

// Subscriber is one upstream bus backend. Subscribe is called once at
// process start with the fixed channel set; it fails loudly when the
// bus is unreachable so the process can report not-ready.
type Subscriber interface {
	Subscribe(ctx context.Context, channels []string, h Handler) error
	Close() error
}

// dispatchRaw parses and decodes one raw bus message and hands it to h.
// Malformed payloads and unknown kinds are logged with a short sample
// and dropped; the subscription keeps running either way.
func dispatchRaw(channel string, raw []byte, h Handler) {
	env, err := ParseEnvelope(channel, raw)
	if err != nil {
		logger.Warnf("[bus] drop malformed message channel=%s err=%v sample=%q", channel, err, sample(raw))
		return
	}
	msg, err := DecodeMessage(env)
	if err != nil {
		logger.Warnf("[bus] drop undecodable message channel=%s event=%s err=%v", channel, env.Event, err)
		return
	}
	h(msg)
}

func sample(raw []byte) []byte {
	if len(raw) > 256 {
		return raw[:256]
	}
	return raw
}
