// Package envelope implements the control frames that carry negentropy
// messages over a Nostr relay connection: NEG-OPEN, NEG-MSG, NEG-ERR and
// NEG-CLOSE. Each frame is a JSON array whose first element labels it.
//
// The package only frames: hex payloads travel opaque, and feeding them to
// the reconciler is the caller's job.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Frame labels.
const (
	LabelOpen  = "NEG-OPEN"
	LabelMsg   = "NEG-MSG"
	LabelErr   = "NEG-ERR"
	LabelClose = "NEG-CLOSE"
)

// Frame is one parsed control frame.
type Frame interface {
	// Label returns the frame's leading label element.
	Label() string
}

// Open asks the relay to start a reconciliation session under a
// subscription id. Filter selects the record set being reconciled, in the
// relay's native filter syntax, and Message carries the initiator's
// opening negentropy message in lowercase hex.
type Open struct {
	SubscriptionID string
	Filter         json.RawMessage
	Message        string
}

// Msg carries one negentropy message, in lowercase hex, within an open
// session. Both directions use it.
type Msg struct {
	SubscriptionID string
	Message        string
}

// Err tears a session down with a reason. Reason conventionally starts
// with a machine-readable code, see ErrorReason.
type Err struct {
	SubscriptionID string
	Reason         string
}

// Close ends a session without error.
type Close struct {
	SubscriptionID string
}

// Label implements Frame.
func (Open) Label() string { return LabelOpen }

// Label implements Frame.
func (Msg) Label() string { return LabelMsg }

// Label implements Frame.
func (Err) Label() string { return LabelErr }

// Label implements Frame.
func (Close) Label() string { return LabelClose }

// Reason codes for Err frames.
const (
	// ReasonBlocked means the relay refuses to serve the session.
	ReasonBlocked = "blocked"
	// ReasonClosed means the relay dropped an open session, typically
	// after an idle timeout or resource pressure.
	ReasonClosed = "closed"
)

// ErrorReason formats a machine-readable reason code with an optional
// human-readable detail.
func ErrorReason(code, detail string) string {
	if detail == "" {
		return code
	}
	return code + ": " + detail
}

// NewSubscriptionID mints a random subscription id for an initiator with no
// naming scheme of its own. Ids only need to be unique per connection, but
// random ones keep concurrent sessions from colliding without coordination.
func NewSubscriptionID() string {
	return uuid.NewString()
}

// MarshalJSON implements json.Marshaler.
func (o Open) MarshalJSON() ([]byte, error) {
	filter := o.Filter
	if len(filter) == 0 {
		filter = json.RawMessage("{}")
	}
	return json.Marshal([]any{LabelOpen, o.SubscriptionID, filter, o.Message})
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Open) UnmarshalJSON(data []byte) error {
	elems, err := decodeFrame(data, LabelOpen, 4)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(elems[0], &o.SubscriptionID); err != nil {
		return fmt.Errorf("%s subscription id: %w", LabelOpen, err)
	}
	o.Filter = append(json.RawMessage(nil), elems[1]...)
	if err := json.Unmarshal(elems[2], &o.Message); err != nil {
		return fmt.Errorf("%s message: %w", LabelOpen, err)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Msg) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{LabelMsg, m.SubscriptionID, m.Message})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Msg) UnmarshalJSON(data []byte) error {
	elems, err := decodeFrame(data, LabelMsg, 3)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(elems[0], &m.SubscriptionID); err != nil {
		return fmt.Errorf("%s subscription id: %w", LabelMsg, err)
	}
	if err := json.Unmarshal(elems[1], &m.Message); err != nil {
		return fmt.Errorf("%s message: %w", LabelMsg, err)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e Err) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{LabelErr, e.SubscriptionID, e.Reason})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Err) UnmarshalJSON(data []byte) error {
	elems, err := decodeFrame(data, LabelErr, 3)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(elems[0], &e.SubscriptionID); err != nil {
		return fmt.Errorf("%s subscription id: %w", LabelErr, err)
	}
	if err := json.Unmarshal(elems[1], &e.Reason); err != nil {
		return fmt.Errorf("%s reason: %w", LabelErr, err)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Close) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{LabelClose, c.SubscriptionID})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Close) UnmarshalJSON(data []byte) error {
	elems, err := decodeFrame(data, LabelClose, 2)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(elems[0], &c.SubscriptionID); err != nil {
		return fmt.Errorf("%s subscription id: %w", LabelClose, err)
	}
	return nil
}

// Parse decodes a control frame, dispatching on its leading label.
func Parse(data []byte) (Frame, error) {
	label, _, err := peekLabel(data)
	if err != nil {
		return nil, err
	}
	switch label {
	case LabelOpen:
		var f Open
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return &f, nil
	case LabelMsg:
		var f Msg
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return &f, nil
	case LabelErr:
		var f Err
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return &f, nil
	case LabelClose:
		var f Close
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("control frame: unknown label %q", label)
	}
}

func peekLabel(data []byte) (string, []json.RawMessage, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return "", nil, fmt.Errorf("control frame: %w", err)
	}
	if len(arr) == 0 {
		return "", nil, errors.New("control frame: empty array")
	}
	var label string
	if err := json.Unmarshal(arr[0], &label); err != nil {
		return "", nil, fmt.Errorf("control frame label: %w", err)
	}
	return label, arr[1:], nil
}

func decodeFrame(data []byte, label string, elems int) ([]json.RawMessage, error) {
	got, rest, err := peekLabel(data)
	if err != nil {
		return nil, err
	}
	if got != label {
		return nil, fmt.Errorf("%s frame: unexpected label %q", label, got)
	}
	if len(rest) != elems-1 {
		return nil, fmt.Errorf("%s frame: %d elements, want %d", label, len(rest)+1, elems)
	}
	return rest, nil
}
