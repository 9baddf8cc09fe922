// The [durasock] package maintains a logically persistent, bidirectional
// message connection over a WebSocket that is allowed to fail.
//
// # Why
//
// Raw WebSocket connections go stale silently: NAT and proxy timeouts,
// suspended devices, and lost packets all kill a connection without the peer
// ever seeing a close event. durasock detects that staleness with a heartbeat,
// closes the dead transport, and transparently dials a replacement, while
// exposing a send/callback surface that looks like the socket it wraps.
//
// # Connection lifecycle
//
// [New] builds a [Conn] from a URL and a [Config]; [Conn.Connect] dials the
// first transport. While the connection is open, a heartbeat engine
// periodically sends {"type":"ping"} probes and expects a {"type":"pong"}
// reply within [Config.ProbeTimeout]. A missed pong force-closes the
// transport, which enters the same recovery path as any other unexpected
// closure: the reconnect scheduler arms a timer, backs off per the configured
// [Retryer], and dials a fresh transport.
//
// [Conn.Close] is terminal: it tears everything down and disables
// reconnection until [Conn.Connect] is called explicitly again.
//
// # Wire protocol
//
// Every frame is an envelope carrying a "type" discriminator. The values
// "ping" and "pong" are reserved for the heartbeat and never reach
// [Conn.OnMessage]; everything else is application payload. Envelopes are
// JSON text frames by default, or CBOR binary frames with
// [EncodingBinary].
//
// # Visibility-driven suspension
//
// Hosts that know when they move to the background (mobile wrappers, power
// management hooks) can feed a [Signal] channel to [Conn.WatchVisibility].
// Backgrounding suspends the connection without engaging the reconnect
// backoff; foregrounding redials immediately.
//
// # Shared instances
//
// [Registry.Acquire] returns one controller per URL (or one per process)
// instead of constructing anew, for hosts that want connection sharing. See
// [Config.SharedScope].
package durasock
