package gitfs

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	platformerrors "github.com/jmgilman/go/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding selects how ReadFileEncoded turns file bytes into a string.
type Encoding string

const (
	// EncodingUTF8 decodes UTF-8, replacing invalid bytes with U+FFFD.
	EncodingUTF8 Encoding = "utf8"
	// EncodingLatin1 decodes ISO-8859-1.
	EncodingLatin1 Encoding = "latin1"
	// EncodingHex renders lowercase hexadecimal.
	EncodingHex Encoding = "hex"
	// EncodingBase64 renders standard padded base64.
	EncodingBase64 Encoding = "base64"
)

// ParseEncoding parses an encoding name. Common aliases such as "utf-8"
// and "binary" are accepted.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(name) {
	case "utf8", "utf-8":
		return EncodingUTF8, nil
	case "latin1", "binary", "iso-8859-1":
		return EncodingLatin1, nil
	case "hex":
		return EncodingHex, nil
	case "base64":
		return EncodingBase64, nil
	}
	return "", platformerrors.Newf(platformerrors.CodeInvalidInput, "unknown encoding %q", name)
}

// Decode renders data as a string in encoding e.
func (e Encoding) Decode(data []byte) (string, error) {
	switch e {
	case EncodingUTF8, "":
		out, err := unicode.UTF8.NewDecoder().Bytes(data)
		if err != nil {
			return "", platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "failed to decode utf8")
		}
		return string(out), nil
	case EncodingLatin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "failed to decode latin1")
		}
		return string(out), nil
	case EncodingHex:
		return hex.EncodeToString(data), nil
	case EncodingBase64:
		return base64.StdEncoding.EncodeToString(data), nil
	}
	return "", platformerrors.Newf(platformerrors.CodeInvalidInput, "unknown encoding %q", string(e))
}
