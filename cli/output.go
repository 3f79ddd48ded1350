package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
)

const (
	formatSummary = "summary"
	formatJSON    = "json"
	formatXML     = "xml"
	formatDump    = "dump"
)

var formats = []string{formatSummary, formatJSON, formatXML, formatDump}

func checkFormat(format string) error {
	if !slices.Contains(formats, format) {
		return usageErrorf("invalid format %q: want one of %s", format, strings.Join(formats, ", "))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func writeDump(w io.Writer, v any) {
	dumpConfig.Fdump(w, v)
}

// field is one label/value line of summary output.
type field struct {
	label string
	value *string
}

func writeFields(w io.Writer, fields []field) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		fmt.Fprintf(tw, "%s:\t%s\n", f.label, *f.value)
	}
	return tw.Flush()
}

func str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
