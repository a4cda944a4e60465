package output

import (
	"io"

	"github.com/tidwall/pretty"

	"github.com/torosent/poi/internal/extractor"
)

var prettyOptions = &pretty.Options{
	Width:  80,
	Prefix: "",
	Indent: "  ",
}

// PrintRecord writes a single-query record as indented JSON, keeping field
// order. With color set the output uses terminal colors.
func PrintRecord(w io.Writer, rec extractor.Record, color bool) error {
	raw, err := rec.MarshalJSON()
	if err != nil {
		return err
	}
	out := pretty.PrettyOptions(raw, prettyOptions)
	if color {
		out = pretty.Color(out, pretty.TerminalStyle)
	}
	_, err = w.Write(out)
	return err
}
