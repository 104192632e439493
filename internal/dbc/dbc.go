// Package dbc holds the signal dictionary: the static table of CAN message
// identifiers mapped to payload layout, scale/offset transforms and transmission
// periods. The dictionary is loaded once, validated, and then shared by
// reference between the encoder, decoder and quality evaluator.
package dbc

import (
	"fmt"

	"github.com/cansim/cansim/pkg/core"
)

// DefaultPeriodMs is assumed for identifiers that are not in the dictionary
// when only timing information is requested.
const DefaultPeriodMs = 100

// SignalDef describes one physical quantity packed into a bit range of a
// message payload via a linear scale/offset transform.
//
// StartBit is the MSB-first bit offset from the start of the payload
// (0 = most significant bit of byte 0). The DBC text notation uses the
// classic per-byte 7..0 numbering; conversion happens at parse/generate time.
type SignalDef struct {
	Name      string
	StartBit  uint
	BitLength uint
	BigEndian bool
	Scale     float64 // must be > 0
	Offset    float64
	Min       float64 // advisory range, not enforced on encode
	Max       float64
	Unit      string
	Comment   string
}

// MessageDef describes one message: identifier, layout and transmission period.
type MessageDef struct {
	ID          uint32
	Name        string
	PeriodMs    uint
	Length      uint8 // payload length in bytes, always core.FrameLength here
	Transmitter string
	Comment     string
	Signals     []SignalDef
}

// Database is the immutable, validated signal dictionary with a precomputed
// identifier lookup table. Safe for concurrent readers.
type Database struct {
	messages []MessageDef
	byID     map[uint32]*MessageDef
}

// New validates the message definitions and builds the lookup table.
// Validation failures are configuration errors: fatal at load time.
func New(messages []MessageDef) (*Database, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("dictionary has no messages")
	}

	db := &Database{
		messages: messages,
		byID:     make(map[uint32]*MessageDef, len(messages)),
	}

	for i := range db.messages {
		msg := &db.messages[i]
		if msg.Length == 0 {
			msg.Length = core.FrameLength
		}
		if err := validateMessage(msg); err != nil {
			return nil, fmt.Errorf("message %s (0x%X): %w", msg.Name, msg.ID, err)
		}
		if _, dup := db.byID[msg.ID]; dup {
			return nil, fmt.Errorf("duplicate message id 0x%X", msg.ID)
		}
		db.byID[msg.ID] = msg
	}

	return db, nil
}

func validateMessage(msg *MessageDef) error {
	if msg.Name == "" {
		return fmt.Errorf("message has no name")
	}
	if msg.PeriodMs == 0 {
		return fmt.Errorf("transmission period must be positive")
	}

	totalBits := uint(msg.Length) * 8
	used := make([]bool, totalBits)

	for _, sig := range msg.Signals {
		if sig.Name == "" {
			return fmt.Errorf("signal has no name")
		}
		if sig.Scale <= 0 {
			return fmt.Errorf("signal %s: scale must be > 0, got %g", sig.Name, sig.Scale)
		}
		if sig.BitLength == 0 || sig.BitLength > 64 {
			return fmt.Errorf("signal %s: bit length %d out of range", sig.Name, sig.BitLength)
		}
		if sig.StartBit+sig.BitLength > totalBits {
			return fmt.Errorf("signal %s: bits %d..%d exceed %d-byte payload",
				sig.Name, sig.StartBit, sig.StartBit+sig.BitLength-1, msg.Length)
		}
		if !sig.BigEndian && (sig.StartBit%8 != 0 || sig.BitLength%8 != 0) {
			return fmt.Errorf("signal %s: little-endian signals must be byte aligned", sig.Name)
		}
		for b := sig.StartBit; b < sig.StartBit+sig.BitLength; b++ {
			if used[b] {
				return fmt.Errorf("signal %s: bit %d overlaps another signal", sig.Name, b)
			}
			used[b] = true
		}
	}

	return nil
}

// Lookup returns the message definition for an identifier.
func (db *Database) Lookup(id uint32) (*MessageDef, bool) {
	msg, ok := db.byID[id]
	return msg, ok
}

// Messages returns the message definitions in declaration order.
func (db *Database) Messages() []MessageDef {
	return db.messages
}

// PeriodMs returns the transmission period for an identifier, falling back to
// DefaultPeriodMs for unknown identifiers.
func (db *Database) PeriodMs(id uint32) uint {
	if msg, ok := db.byID[id]; ok {
		return msg.PeriodMs
	}
	return DefaultPeriodMs
}

// Standard returns the built-in vehicle dictionary: the four messages whose
// layouts form the wire contract shared by the encoder, decoder and quality
// evaluator.
func Standard() *Database {
	db, err := New([]MessageDef{
		{
			ID: 0x100, Name: "VehicleSpeed", PeriodMs: 20, Transmitter: "ECU1",
			Comment: "Vehicle speed message",
			Signals: []SignalDef{
				{Name: "speed_kmh", StartBit: 0, BitLength: 16, BigEndian: true,
					Scale: 0.01, Min: 0, Max: 655.35, Unit: "km/h",
					Comment: "Vehicle speed in km/h"},
			},
		},
		{
			ID: 0x101, Name: "EngineData", PeriodMs: 10, Transmitter: "ECU1",
			Comment: "Engine data message",
			Signals: []SignalDef{
				{Name: "rpm", StartBit: 0, BitLength: 16, BigEndian: true,
					Scale: 0.25, Min: 0, Max: 16383.75, Unit: "rpm",
					Comment: "Engine RPM"},
				{Name: "throttle", StartBit: 16, BitLength: 8, BigEndian: true,
					Scale: 0.4, Min: 0, Max: 102, Unit: "%",
					Comment: "Throttle position percentage"},
			},
		},
		{
			ID: 0x102, Name: "BrakeData", PeriodMs: 20, Transmitter: "ECU2",
			Comment: "Brake system data",
			Signals: []SignalDef{
				{Name: "pressure", StartBit: 0, BitLength: 8, BigEndian: true,
					Scale: 0.4, Min: 0, Max: 102, Unit: "%",
					Comment: "Brake pressure percentage"},
				{Name: "active", StartBit: 15, BitLength: 1, BigEndian: true,
					Scale: 1, Min: 0, Max: 1,
					Comment: "Brake pedal active flag"},
			},
		},
		{
			ID: 0x103, Name: "SteeringData", PeriodMs: 50, Transmitter: "ECU2",
			Comment: "Steering wheel angle",
			Signals: []SignalDef{
				{Name: "angle", StartBit: 0, BitLength: 16, BigEndian: true,
					Scale: 0.1, Offset: -1080, Min: -1080, Max: 1080, Unit: "deg",
					Comment: "Steering wheel angle in degrees"},
			},
		},
	})
	if err != nil {
		// The built-in dictionary is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return db
}
