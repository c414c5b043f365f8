package bmfont

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// Encode writes f as an XML font description that Parse reads back.
// Characters are written in ascending rune order.
func (f *Font) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, `<?xml version="1.0"?>`)
	fmt.Fprintln(bw, `<font>`)
	fmt.Fprintf(bw, "  <info face=%s size=\"%d\"/>\n", quote(f.Info.Face), f.Info.Size)
	fmt.Fprintf(bw, "  <common lineHeight=\"%d\" base=\"%d\" scaleW=\"%d\" scaleH=\"%d\" pages=\"1\"/>\n",
		f.Info.LineHeight, f.Info.Base, f.ScaleW, f.ScaleH)
	if f.Info.Page != "" {
		fmt.Fprintln(bw, `  <pages>`)
		fmt.Fprintf(bw, "    <page id=\"0\" file=%s/>\n", quote(f.Info.Page))
		fmt.Fprintln(bw, `  </pages>`)
	}
	fmt.Fprintf(bw, "  <chars count=\"%d\">\n", len(f.Chars))
	for _, r := range slices.Sorted(maps.Keys(f.Chars)) {
		g := f.Chars[r]
		fmt.Fprintf(bw, "    <char id=\"%d\" x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" xoffset=\"%d\" yoffset=\"%d\" xadvance=\"%d\" page=\"0\" chnl=\"15\"/>\n",
			r, g.X, g.Y, g.Width, g.Height, g.XOffset, g.YOffset, g.XAdvance)
	}
	fmt.Fprintln(bw, `  </chars>`)
	fmt.Fprintln(bw, `</font>`)

	return bw.Flush()
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	_ = xml.EscapeText(&b, []byte(s))
	b.WriteByte('"')
	return b.String()
}
