package dbc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Line formats of the DBC subset we exchange. BO_ declares a message, SG_ a
// signal within the preceding message, CM_ comments, BA_ "TxPeriod" the
// transmission period attribute.
var (
	reMessage = regexp.MustCompile(`^BO_ (\d+) (\w+): (\d+) (\w+)$`)
	reSignal  = regexp.MustCompile(`^SG_ (\w+) : (\d+)\|(\d+)@([01])([+-]) \(([^,]+),([^)]+)\) \[([^|]+)\|([^\]]+)\] "([^"]*)" (\S+)$`)
	rePeriod  = regexp.MustCompile(`^BA_ "TxPeriod" BO_ (\d+) (\d+);$`)
	reMsgCmt  = regexp.MustCompile(`^CM_ BO_ (\d+) "([^"]*)";$`)
	reSigCmt  = regexp.MustCompile(`^CM_ SG_ (\d+) (\w+) "([^"]*)";$`)
)

// dbcStartBit converts the internal MSB-first bit offset to the DBC per-byte
// 7..0 numbering, and fromDBCStartBit is its inverse.
func dbcStartBit(internal uint) uint { return internal - internal%8 + (7 - internal%8) }

func fromDBCStartBit(notated uint) uint { return notated - notated%8 + (7 - notated%8) }

// ParseFile loads and parses a DBC file from disk.
func ParseFile(path string) (*Database, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening dictionary file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Parse(file)
}

// Parse reads the textual message/signal definition format and builds a
// validated Database. Any malformed content is a fatal configuration error.
func Parse(r io.Reader) (*Database, error) {
	var (
		messages []MessageDef
		periods  = map[uint32]uint{}
		msgCmts  = map[uint32]string{}
		sigCmts  = map[uint32]map[string]string{}
		current  *MessageDef
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			current = nil
			continue
		}

		switch {
		case reMessage.MatchString(line):
			m := reMessage.FindStringSubmatch(line)
			id, err := strconv.ParseUint(m[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad message id %q: %w", lineNo, m[1], err)
			}
			length, err := strconv.ParseUint(m[3], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad message length %q: %w", lineNo, m[3], err)
			}
			messages = append(messages, MessageDef{
				ID:          uint32(id),
				Name:        m[2],
				Length:      uint8(length),
				Transmitter: m[4],
			})
			current = &messages[len(messages)-1]

		case reSignal.MatchString(line):
			if current == nil {
				return nil, fmt.Errorf("line %d: signal outside message block", lineNo)
			}
			sig, err := parseSignal(reSignal.FindStringSubmatch(line))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Signals = append(current.Signals, sig)

		case rePeriod.MatchString(line):
			m := rePeriod.FindStringSubmatch(line)
			id, _ := strconv.ParseUint(m[1], 10, 32)
			period, err := strconv.ParseUint(m[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad TxPeriod %q: %w", lineNo, m[2], err)
			}
			periods[uint32(id)] = uint(period)

		case reMsgCmt.MatchString(line):
			m := reMsgCmt.FindStringSubmatch(line)
			id, _ := strconv.ParseUint(m[1], 10, 32)
			msgCmts[uint32(id)] = m[2]

		case reSigCmt.MatchString(line):
			m := reSigCmt.FindStringSubmatch(line)
			id, _ := strconv.ParseUint(m[1], 10, 32)
			if sigCmts[uint32(id)] == nil {
				sigCmts[uint32(id)] = map[string]string{}
			}
			sigCmts[uint32(id)][m[2]] = m[3]

		default:
			// VERSION, NS_ block, BS_, BU_, BA_DEF_ boilerplate is skipped.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dictionary: %w", err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no message definitions found")
	}

	for i := range messages {
		msg := &messages[i]
		period, ok := periods[msg.ID]
		if !ok {
			period = DefaultPeriodMs
		}
		msg.PeriodMs = period
		msg.Comment = msgCmts[msg.ID]
		for j := range msg.Signals {
			msg.Signals[j].Comment = sigCmts[msg.ID][msg.Signals[j].Name]
		}
	}

	return New(messages)
}

func parseSignal(m []string) (SignalDef, error) {
	var sig SignalDef
	sig.Name = m[1]

	start, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return sig, fmt.Errorf("signal %s: bad start bit: %w", sig.Name, err)
	}
	length, err := strconv.ParseUint(m[3], 10, 32)
	if err != nil {
		return sig, fmt.Errorf("signal %s: bad bit length: %w", sig.Name, err)
	}
	// @0 is Motorola (big-endian), @1 is Intel (little-endian).
	sig.BigEndian = m[4] == "0"
	if m[5] == "-" {
		return sig, fmt.Errorf("signal %s: signed signals are not supported", sig.Name)
	}

	sig.StartBit = fromDBCStartBit(uint(start))
	sig.BitLength = uint(length)

	if sig.Scale, err = strconv.ParseFloat(strings.TrimSpace(m[6]), 64); err != nil {
		return sig, fmt.Errorf("signal %s: bad scale: %w", sig.Name, err)
	}
	if sig.Offset, err = strconv.ParseFloat(strings.TrimSpace(m[7]), 64); err != nil {
		return sig, fmt.Errorf("signal %s: bad offset: %w", sig.Name, err)
	}
	if sig.Min, err = strconv.ParseFloat(strings.TrimSpace(m[8]), 64); err != nil {
		return sig, fmt.Errorf("signal %s: bad min: %w", sig.Name, err)
	}
	if sig.Max, err = strconv.ParseFloat(strings.TrimSpace(m[9]), 64); err != nil {
		return sig, fmt.Errorf("signal %s: bad max: %w", sig.Name, err)
	}
	sig.Unit = m[10]

	return sig, nil
}
