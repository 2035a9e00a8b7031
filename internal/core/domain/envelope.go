package domain

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"time"
)

// Envelope is the persisted form of a session record.
//
// On the wire it is a JSON object with exactly two fields: "data" holds the
// base64 text of the ciphertext and "time" the last write as float seconds
// since the Unix epoch.
type Envelope struct {
	Data []byte
	Time float64
}

type envelopeJSON struct {
	Data *string  `json:"data"`
	Time *float64 `json:"time"`
}

// NewEnvelope wraps payload with the given write time.
func NewEnvelope(payload []byte, at time.Time) Envelope {
	return Envelope{
		Data: payload,
		Time: UnixSeconds(at),
	}
}

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	data := base64.StdEncoding.EncodeToString(e.Data)
	t := e.Time
	return json.Marshal(envelopeJSON{Data: &data, Time: &t})
}

// UnmarshalJSON implements json.Unmarshaler. A record without a "data"
// field is rejected.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var raw envelopeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return ErrMalformedEnvelope.WithCause(err)
	}
	if raw.Data == nil {
		return ErrMalformedEnvelope.WithDetails("missing data field")
	}
	data, err := base64.StdEncoding.DecodeString(*raw.Data)
	if err != nil {
		return ErrMalformedEnvelope.WithCause(err)
	}
	e.Data = data
	e.Time = 0
	if raw.Time != nil {
		e.Time = *raw.Time
	}
	return nil
}

// Expired reports whether the envelope is at least maxLife old at now.
func (e Envelope) Expired(maxLife time.Duration, now time.Time) bool {
	return e.Time+maxLife.Seconds() <= UnixSeconds(now)
}

// WrittenAt returns the write time as a time.Time.
func (e Envelope) WrittenAt() time.Time {
	sec, frac := math.Modf(e.Time)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// UnixSeconds converts t to float seconds since the Unix epoch.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// EncodeEnvelope renders the wire form of env.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// DecodeEnvelope parses the wire form produced by EncodeEnvelope.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		if IsDomainError(err, "") {
			return Envelope{}, err
		}
		return Envelope{}, ErrMalformedEnvelope.WithCause(err)
	}
	return env, nil
}
