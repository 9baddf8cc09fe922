package durasock

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/durasock/durasock/internal/codec"
	"github.com/durasock/durasock/pkg/logger"
	"github.com/durasock/durasock/pkg/transport"
	"github.com/durasock/durasock/pkg/transport/gorillaws"
)

// Encoding selects how envelopes are serialized on the wire.
type Encoding int

const (
	// EncodingText sends JSON text frames. This is the default.
	EncodingText Encoding = iota
	// EncodingBinary sends CBOR binary frames.
	EncodingBinary
)

// Initiator selects which side drives the heartbeat.
type Initiator int

const (
	// InitiatorSelf makes this side send pings and expect pongs.
	// This is the default.
	InitiatorSelf Initiator = iota
	// InitiatorPeer inverts the roles: the peer is expected to ping
	// periodically, this side replies with pongs and treats prolonged
	// silence as a liveness failure.
	InitiatorPeer
)

// SharedScope controls instance sharing through a [Registry].
type SharedScope int

const (
	// ShareNone constructs a fresh controller on every Acquire.
	ShareNone SharedScope = iota
	// SharePerURL shares one controller per URL.
	SharePerURL
	// ShareGlobal shares a single controller process-wide.
	ShareGlobal
)

// Defaults applied by Config for zero-valued fields.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultProbeTimeout      = 5 * time.Second
	DefaultReconnectDelay    = 5 * time.Second

	// closeTimeout bounds the graceful part of a transport teardown.
	closeTimeout = 5 * time.Second
)

// Config tunes a [Conn]. The zero value is usable; zero fields take the
// defaults above. A Config is copied at construction time and never mutated
// afterwards.
type Config struct {
	// HeartbeatInterval is how often a liveness probe is sent
	// (or, with InitiatorPeer, how often one is expected).
	HeartbeatInterval time.Duration

	// ProbeTimeout is how long to wait for the pong answering a probe
	// before declaring the transport dead. Conventionally at most
	// HeartbeatInterval.
	ProbeTimeout time.Duration

	// ReconnectDelay is the delay before the first reconnect attempt
	// after an unexpected closure.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the growth of the reconnect delay. It
	// defaults to ReconnectDelay, which disables growth entirely.
	MaxReconnectDelay time.Duration

	// MaxReconnectAttempts limits consecutive reconnect attempts.
	// 0 means unlimited.
	MaxReconnectAttempts int

	// Retryer overrides the delay/backoff fields above with a custom
	// retry strategy.
	Retryer Retryer

	// HeartbeatInitiator selects which side drives the heartbeat.
	HeartbeatInitiator Initiator

	// PayloadEncoding selects the wire serialization.
	PayloadEncoding Encoding

	// SharedScope controls sharing through [Registry.Acquire]. It has no
	// effect on [New].
	SharedScope SharedScope

	// Debug enables debug-level logging on the default logger.
	Debug bool

	// Logger receives lifecycle and wire events. Defaults to a text
	// slog handler on stdout, with debug entries gated by Debug.
	Logger logger.Logger

	// Dialer constructs transports. Defaults to gorilla/websocket.
	Dialer transport.Dialer
}

// withDefaults returns a copy with zero values filled in.
func (c Config) withDefaults() Config {
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = c.ReconnectDelay
	}
	if c.Logger == nil {
		level := slog.LevelInfo
		if c.Debug {
			level = slog.LevelDebug
		}
		c.Logger = logger.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	if c.Dialer == nil {
		c.Dialer = &gorillaws.Dialer{}
	}
	return c
}

func (c Config) validate() error {
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", c.HeartbeatInterval)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %v", c.ProbeTimeout)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect delay must be positive, got %v", c.ReconnectDelay)
	}
	if c.MaxReconnectDelay < c.ReconnectDelay {
		return fmt.Errorf("max reconnect delay %v is below reconnect delay %v", c.MaxReconnectDelay, c.ReconnectDelay)
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max reconnect attempts must not be negative, got %d", c.MaxReconnectAttempts)
	}
	switch c.PayloadEncoding {
	case EncodingText, EncodingBinary:
	default:
		return fmt.Errorf("unknown payload encoding %d", c.PayloadEncoding)
	}
	switch c.HeartbeatInitiator {
	case InitiatorSelf, InitiatorPeer:
	default:
		return fmt.Errorf("unknown heartbeat initiator %d", c.HeartbeatInitiator)
	}
	return nil
}

// codec returns the wire codec and frame kind for the configured encoding.
func (c Config) codec() (codec.Codec, transport.MessageKind) {
	if c.PayloadEncoding == EncodingBinary {
		return codec.CBOR{}, transport.KindBinary
	}
	return codec.JSON{}, transport.KindText
}

// retryer returns the configured Retryer, or one built from the delay fields.
func (c Config) retryer() Retryer {
	if c.Retryer != nil {
		return c.Retryer
	}
	return &LinearBackoffRetryer{
		InitialDelay: c.ReconnectDelay,
		MaxDelay:     c.MaxReconnectDelay,
		MaxRetries:   c.MaxReconnectAttempts,
	}
}

// rewriteScheme accepts http/https URLs and rewrites them to the ws/wss
// scheme of the transport. Native ws/wss URLs pass through unchanged.
func rewriteScheme(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "":
		return "", errors.New("URL has no scheme")
	default:
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	return u.String(), nil
}
