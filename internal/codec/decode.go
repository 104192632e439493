package codec

import (
	"github.com/cansim/cansim/internal/dbc"
	"github.com/cansim/cansim/pkg/core"
)

// DecodedSignals is the typed decode result. Fields are nil when the frame
// carried no such signal, which is also the shape of a failed decode: the
// decoder runs per-frame at high volume and must never abort a batch, so an
// unknown identifier or malformed payload yields the all-unset result instead
// of an error.
type DecodedSignals struct {
	MessageName   *string  `json:"message_name"`
	SpeedKmh      *float64 `json:"speed_kmh"`
	RPM           *float64 `json:"rpm"`
	ThrottlePct   *float64 `json:"throttle_pct"`
	BrakePressure *float64 `json:"brake_pressure"`
	BrakeActive   *bool    `json:"brake_active"`
	SteeringAngle *float64 `json:"steering_angle"`
}

// Empty reports whether no field of the result is set.
func (d DecodedSignals) Empty() bool {
	return d.MessageName == nil && d.SpeedKmh == nil && d.RPM == nil &&
		d.ThrottlePct == nil && d.BrakePressure == nil && d.BrakeActive == nil &&
		d.SteeringAngle == nil
}

// Decoder recovers engineering-unit signal values from raw frames using the
// shared dictionary. Stateless and safe for concurrent use.
type Decoder struct {
	db *dbc.Database
}

// NewDecoder creates a decoder over the given dictionary.
func NewDecoder(db *dbc.Database) *Decoder {
	return &Decoder{db: db}
}

// Decode looks up the identifier and applies the inverse transform
// physical = raw*scale + offset for each declared signal. Unknown identifiers
// and empty or truncated payloads return the all-unset result.
func (d *Decoder) Decode(id uint32, payload []byte) DecodedSignals {
	var result DecodedSignals

	msg, ok := d.db.Lookup(id)
	if !ok || len(payload) < int(msg.Length) {
		return result
	}

	name := msg.Name
	result.MessageName = &name

	for _, sig := range msg.Signals {
		physical := float64(unpackSignal(payload, sig))*sig.Scale + sig.Offset
		switch sig.Name {
		case "speed_kmh":
			result.SpeedKmh = &physical
		case "rpm":
			result.RPM = &physical
		case "throttle":
			result.ThrottlePct = &physical
		case "pressure":
			result.BrakePressure = &physical
		case "active":
			active := physical != 0
			result.BrakeActive = &active
		case "angle":
			result.SteeringAngle = &physical
		}
	}

	return result
}

// DecodeFrame decodes a captured frame record.
func (d *Decoder) DecodeFrame(frame core.CanFrame) DecodedSignals {
	return d.Decode(frame.ID, frame.Data)
}
