package scan

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding describes a detected text encoding.
type Encoding struct {
	Name       string
	HasBOM     bool
	Confidence float64
}

const detectSample = 8192

// Detect guesses the encoding of raw file bytes: BOM first, then UTF-8
// validity, then a null-byte heuristic for UTF-16, with Windows-1252 as the
// fallback for remaining single-byte text.
func Detect(data []byte) Encoding {
	if len(data) == 0 {
		return Encoding{Name: "utf-8", Confidence: 1}
	}
	if enc, ok := detectBOM(data); ok {
		return enc
	}

	sample := data
	if len(sample) > detectSample {
		sample = trimPartialRune(sample[:detectSample])
	}

	// NUL bytes rule out plain text; they are the UTF-16 tell.
	if bytes.IndexByte(sample, 0) < 0 {
		if isASCII(sample) {
			return Encoding{Name: "ascii", Confidence: 1}
		}
		if utf8.Valid(sample) {
			return Encoding{Name: "utf-8", Confidence: 0.95}
		}
	}

	best := Encoding{Name: "utf-8", Confidence: 0.3}
	for _, cand := range []Encoding{
		{Name: "utf-16le", Confidence: scoreUTF16(sample, 1)},
		{Name: "utf-16be", Confidence: scoreUTF16(sample, 0)},
		{Name: "windows-1252", Confidence: scoreWindows1252(sample)},
	} {
		if cand.Confidence > best.Confidence {
			best = cand
		}
	}
	return best
}

// ToUTF8 decodes raw bytes to a UTF-8 string, stripping any BOM. Bytes that
// cannot be decoded become U+FFFD rather than disappearing, so downstream
// regex checks see stable offsets.
func ToUTF8(data []byte) (string, Encoding) {
	enc := Detect(data)
	data = stripBOM(data, enc)

	var dec *encoding.Decoder
	switch enc.Name {
	case "utf-16le":
		dec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case "utf-16be":
		dec = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case "windows-1252":
		dec = charmap.Windows1252.NewDecoder()
	default:
		return string(bytes.ToValidUTF8(data, []byte("�"))), enc
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), dec))
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("�"))), enc
	}
	return string(bytes.ToValidUTF8(decoded, []byte("�"))), enc
}

func detectBOM(data []byte) (Encoding, bool) {
	if len(data) >= 3 && bytes.Equal(data[:3], []byte{0xEF, 0xBB, 0xBF}) {
		return Encoding{Name: "utf-8", Confidence: 1, HasBOM: true}, true
	}
	if len(data) >= 2 {
		if bytes.Equal(data[:2], []byte{0xFF, 0xFE}) {
			return Encoding{Name: "utf-16le", Confidence: 1, HasBOM: true}, true
		}
		if bytes.Equal(data[:2], []byte{0xFE, 0xFF}) {
			return Encoding{Name: "utf-16be", Confidence: 1, HasBOM: true}, true
		}
	}
	return Encoding{}, false
}

func stripBOM(data []byte, enc Encoding) []byte {
	if !enc.HasBOM {
		return data
	}
	switch enc.Name {
	case "utf-8":
		return data[3:]
	case "utf-16le", "utf-16be":
		return data[2:]
	}
	return data
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b > 0x7F {
			return false
		}
	}
	return true
}

// trimPartialRune drops a trailing UTF-8 sequence cut by sampling, so
// truncation never flips a valid file to invalid.
func trimPartialRune(data []byte) []byte {
	for i := 0; i < 3 && len(data) > 0; i++ {
		last := data[len(data)-1]
		if last&0xC0 == 0x80 {
			data = data[:len(data)-1]
			continue
		}
		if last >= 0xC0 {
			data = data[:len(data)-1]
		}
		break
	}
	return data
}

func scoreUTF16(data []byte, nullOffset int) float64 {
	if len(data) < 2 {
		return 0
	}
	size := len(data) &^ 1
	nulls := 0
	for i := nullOffset; i < size; i += 2 {
		if data[i] == 0 {
			nulls++
		}
	}
	if float64(nulls)/float64(size/2) > 0.75 {
		return 0.8
	}
	return 0
}

// scoreWindows1252 is the single-byte fallback: anything with high bytes that
// is not valid UTF-8 decodes better through Windows-1252 than through
// replacement characters. Bytes in the 0x80..0x9F punctuation block raise
// confidence since they are distinctive for this code page.
func scoreWindows1252(data []byte) float64 {
	high, punct := 0, 0
	for _, b := range data {
		if b >= 0x80 {
			high++
			if b <= 0x9F {
				punct++
			}
		}
	}
	if high == 0 {
		return 0
	}
	if punct > 0 {
		return 0.7
	}
	return 0.5
}
