// Package idcodec converts internal numeric article ids to the opaque form
// exposed by the API and back.
//
// The encoding hides sequential ids from casual inspection only. It is not
// an access control mechanism.
package idcodec

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// Codec encodes and decodes external identifiers.
type Codec interface {
	Encode(id int64) string
	// Decode reports ok=false for anything that is not a valid encoded id.
	Decode(encoded string) (id int64, ok bool)
}

// V1 is base64 over the decimal representation of the id.
var V1 Codec = base64Decimal{}

// Encode encodes id with the current codec version.
func Encode(id int64) string { return V1.Encode(id) }

// Decode decodes with the current codec version.
func Decode(encoded string) (int64, bool) { return V1.Decode(encoded) }

type base64Decimal struct{}

func (base64Decimal) Encode(id int64) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

var decodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

func (base64Decimal) Decode(encoded string) (int64, bool) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return 0, false
	}

	for _, enc := range decodings {
		raw, err := enc.DecodeString(encoded)
		if err != nil {
			continue
		}
		return parseID(string(raw))
	}
	return 0, false
}

// parseID accepts only plain positive decimal numbers: no sign, no spaces.
func parseID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
