package negentropy

import "errors"

// Decode failures wrap one of these sentinels so transport adapters can map
// them to a session outcome with errors.Is: a varint or protocol error means
// the peer sent a malformed message and the session should be torn down,
// while a codec error is a framing problem one layer out.
var (
	// ErrVarint marks a truncated, overlong or overflowing variable-length
	// integer.
	ErrVarint = errors.New("bad varint")

	// ErrProtocol marks a structurally invalid message: unknown protocol
	// version or range mode, an oversized id prefix, non-monotonic bounds
	// or a truncated payload.
	ErrProtocol = errors.New("protocol violation")

	// ErrCodec marks a failure of the hex transport framing around a
	// message, as carried inside NEG-OPEN and NEG-MSG frames.
	ErrCodec = errors.New("bad message encoding")
)
