package eyelink

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultEncoding is the IANA name of the encoding EyeLink hosts write.
const DefaultEncoding = "ISO-8859-1"

var defaultEncoding encoding.Encoding = charmap.ISO8859_1

// LookupEncoding resolves an IANA or MIME encoding name such as
// "ISO-8859-1", "latin1", "windows-1252" or "UTF-8".
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultEncoding, nil
	}
	switch strings.ToLower(name) {
	case "utf-8", "utf8":
		return encoding.Nop, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown asc encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported asc encoding %q", name)
	}
	return enc, nil
}
