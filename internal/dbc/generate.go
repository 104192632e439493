package dbc

import (
	"fmt"
	"strconv"
	"strings"
)

var nsSymbols = []string{
	"NS_DESC_", "CM_", "BA_DEF_", "BA_", "VAL_", "CAT_DEF_", "CAT_", "FILTER",
	"BA_DEF_DEF_", "EV_DATA_", "ENVVAR_DATA_", "SGTYPE_", "SGTYPE_VAL_",
	"BA_DEF_SGTYPE_", "BA_SGTYPE_", "SIG_TYPE_REF_", "VAL_TABLE_", "SIG_GROUP_",
	"SIG_VALTYPE_", "SIGTYPE_VALTYPE_", "BO_TX_BU_", "BA_REL_", "BA_SGTYPE_REL_",
	"SG_MUL_VAL_",
}

// formatNum renders scale/offset/range numbers without a trailing ".0" so the
// generated text matches hand-written DBC files.
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Generate renders the dictionary back into the textual exchange format.
// Parse(Generate(db)) yields the identical dictionary; this round-trip is
// covered by tests.
func (db *Database) Generate() string {
	var b strings.Builder

	b.WriteString("VERSION \"\"\n\nNS_ :\n")
	for _, sym := range nsSymbols {
		b.WriteString("    " + sym + "\n")
	}
	b.WriteString("\nBS_:\n\n")

	// Transmitter node list, in first-seen order.
	var nodes []string
	seen := map[string]bool{}
	for _, msg := range db.messages {
		if msg.Transmitter != "" && !seen[msg.Transmitter] {
			seen[msg.Transmitter] = true
			nodes = append(nodes, msg.Transmitter)
		}
	}
	b.WriteString("BU_: " + strings.Join(nodes, " ") + "\n")

	for _, msg := range db.messages {
		fmt.Fprintf(&b, "\nBO_ %d %s: %d %s\n", msg.ID, msg.Name, msg.Length, msg.Transmitter)
		for _, sig := range msg.Signals {
			endian := "1"
			if sig.BigEndian {
				endian = "0"
			}
			fmt.Fprintf(&b, " SG_ %s : %d|%d@%s+ (%s,%s) [%s|%s] \"%s\" Vector__XXX\n",
				sig.Name, dbcStartBit(sig.StartBit), sig.BitLength, endian,
				formatNum(sig.Scale), formatNum(sig.Offset),
				formatNum(sig.Min), formatNum(sig.Max), sig.Unit)
		}
	}

	b.WriteString("\n")
	for _, msg := range db.messages {
		if msg.Comment != "" {
			fmt.Fprintf(&b, "CM_ BO_ %d \"%s\";\n", msg.ID, msg.Comment)
		}
	}
	for _, msg := range db.messages {
		for _, sig := range msg.Signals {
			if sig.Comment != "" {
				fmt.Fprintf(&b, "CM_ SG_ %d %s \"%s\";\n", msg.ID, sig.Name, sig.Comment)
			}
		}
	}

	fmt.Fprintf(&b, "\nBA_DEF_ BO_ \"TxPeriod\" INT 0 10000;\nBA_DEF_DEF_ \"TxPeriod\" %d;\n", DefaultPeriodMs)
	for _, msg := range db.messages {
		fmt.Fprintf(&b, "BA_ \"TxPeriod\" BO_ %d %d;\n", msg.ID, msg.PeriodMs)
	}

	return b.String()
}
