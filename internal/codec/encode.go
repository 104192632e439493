// Package codec packs vehicle state into fixed-layout CAN payloads and
// recovers engineering-unit signals from them. Both directions are pure and
// stateless apart from the encoder's per-message emission clock, and only read
// the immutable signal dictionary.
package codec

import (
	"math"
	"time"

	"github.com/cansim/cansim/internal/dbc"
	"github.com/cansim/cansim/pkg/core"
)

// packSignal writes a physical value into the signal's bit range of payload.
// raw = round((physical - offset) / scale), masked to the field width.
// The dictionary's min/max range is advisory and not enforced here.
func packSignal(payload []byte, sig dbc.SignalDef, physical float64) {
	raw := int64(math.Round((physical - sig.Offset) / sig.Scale))
	if raw < 0 {
		raw = 0
	}
	mask := uint64(math.MaxUint64)
	if sig.BitLength < 64 {
		mask = (1 << sig.BitLength) - 1
	}
	value := uint64(raw) & mask

	if !sig.BigEndian {
		// Little-endian signals are byte aligned (dictionary validation).
		for i := uint(0); i < sig.BitLength/8; i++ {
			payload[sig.StartBit/8+i] = byte(value >> (8 * i))
		}
		return
	}

	// MSB-first insertion: the raw value's high bit lands on StartBit.
	for i := uint(0); i < sig.BitLength; i++ {
		bit := (value >> (sig.BitLength - 1 - i)) & 1
		pos := sig.StartBit + i
		payload[pos/8] |= byte(bit << (7 - pos%8))
	}
}

// unpackSignal extracts the raw unsigned value of a signal from payload.
func unpackSignal(payload []byte, sig dbc.SignalDef) uint64 {
	if !sig.BigEndian {
		var value uint64
		for i := uint(0); i < sig.BitLength/8; i++ {
			value |= uint64(payload[sig.StartBit/8+i]) << (8 * i)
		}
		return value
	}

	var value uint64
	for i := uint(0); i < sig.BitLength; i++ {
		pos := sig.StartBit + i
		bit := (payload[pos/8] >> (7 - pos%8)) & 1
		value = value<<1 | uint64(bit)
	}
	return value
}

// signalValue maps a dictionary signal name to the vehicle state field it
// carries. Unknown names encode as zero.
func signalValue(name string, state core.VehicleState) float64 {
	switch name {
	case "speed_kmh":
		return state.SpeedKmh
	case "rpm":
		return state.RPM
	case "throttle":
		return state.ThrottlePct
	case "pressure":
		return state.BrakePressure
	case "active":
		if state.BrakeActive {
			return 1
		}
		return 0
	case "angle":
		return state.SteeringAngle
	}
	return 0
}

// Encoder samples the dense state timeline into a sparse frame stream: each
// message is emitted only when its transmission period has elapsed since its
// last emission, so a message never appears faster than its declared period.
type Encoder struct {
	db      *dbc.Database
	channel string

	// lastSentMs is the tick of each message's last emission. Starting at zero
	// means the first emission of every message happens one period into the
	// timeline, matching the transmission clock of a real bus node.
	lastSentMs map[uint32]int64
}

// NewEncoder creates an encoder over the given dictionary and channel name.
func NewEncoder(db *dbc.Database, channel string) *Encoder {
	e := &Encoder{
		db:         db,
		channel:    channel,
		lastSentMs: make(map[uint32]int64, len(db.Messages())),
	}
	return e
}

// encodeMessage packs one message's signals from a state snapshot.
// Unused payload bytes stay zero-filled.
func encodeMessage(msg *dbc.MessageDef, state core.VehicleState) []byte {
	payload := make([]byte, msg.Length)
	for _, sig := range msg.Signals {
		packSignal(payload, sig, signalValue(sig.Name, state))
	}
	return payload
}

// EncodeSample emits the frames due at one timeline tick. tickMs is the
// sample's offset from the timeline start in milliseconds.
func (e *Encoder) EncodeSample(sample core.TimelineSample, tickMs int64) []core.CanFrame {
	var frames []core.CanFrame
	for i := range e.db.Messages() {
		msg := &e.db.Messages()[i]
		if tickMs-e.lastSentMs[msg.ID] < int64(msg.PeriodMs) {
			continue
		}
		frames = append(frames, core.CanFrame{
			Time:    sample.Time,
			Channel: e.channel,
			ID:      msg.ID,
			Length:  msg.Length,
			Data:    encodeMessage(msg, sample.State),
		})
		e.lastSentMs[msg.ID] = tickMs
	}
	return frames
}

// EncodeTimeline runs the full timeline through the encoder in one forward
// sweep and returns the frame stream, ordered by time.
func (e *Encoder) EncodeTimeline(samples []core.TimelineSample, start time.Time) []core.CanFrame {
	var frames []core.CanFrame
	for _, sample := range samples {
		tickMs := sample.Time.Sub(start).Milliseconds()
		frames = append(frames, e.EncodeSample(sample, tickMs)...)
	}
	return frames
}
