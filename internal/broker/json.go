package broker

import "encoding/json"

type wireEnvelope struct {
	Subject        string `json:"subject"`
	Kind           string `json:"event_kind"`
	SequenceNumber uint64 `json:"sequence_number"`
	TimestampUnix  int64  `json:"timestamp"`
	PlayerID       string `json:"player_id,omitempty"`
	RoomID         string `json:"room_id,omitempty"`
	Payload        any    `json:"payload,omitempty"`
}

// marshalEnvelope renders an Envelope for the external bus / for a
// transport's outbound text frame.
func marshalEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(wireEnvelope{
		Subject:        env.Subject,
		Kind:           string(env.Kind),
		SequenceNumber: env.SequenceNumber,
		TimestampUnix:  env.Timestamp.Unix(),
		PlayerID:       env.PlayerID,
		RoomID:         env.RoomID,
		Payload:        env.Payload,
	})
}

// MarshalEnvelope is the exported form, used by the transport layer to
// serialize outbound envelopes the same way the broker does for its
// external bus.
func MarshalEnvelope(env Envelope) ([]byte, error) {
	return marshalEnvelope(env)
}
