// Package sniff classifies decrypted content by magic-byte signature so a
// viewer can choose how to render it. Classification is advisory only: the
// storage layer never inspects plaintext, and Classify is a total function
// with no error outcomes.
package sniff

import "bytes"

// sniffLen is how many leading bytes signatures may inspect.
const sniffLen = 12

// Classification describes a recognized content type.
type Classification struct {
	Extension string
	MIMEType  string
	Label     string
}

// Binary is the generic fallback classification.
var Binary = Classification{
	Extension: "bin",
	MIMEType:  "application/octet-stream",
	Label:     "Binary data",
}

// part is one magic-byte match at a fixed offset.
type part struct {
	offset int
	magic  []byte
}

type signature struct {
	parts []part
	class Classification
}

// signatures is evaluated in order; first full match wins. Container
// formats sharing a leading tag (RIFF) are disambiguated by a second part
// at offset 8 and must precede any bare-prefix entry.
var signatures = []signature{
	// Images
	{[]part{{0, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}}}, Classification{"png", "image/png", "PNG image"}},
	{[]part{{0, []byte{0xFF, 0xD8, 0xFF}}}, Classification{"jpg", "image/jpeg", "JPEG image"}},
	{[]part{{0, []byte("GIF8")}}, Classification{"gif", "image/gif", "GIF image"}},
	{[]part{{0, []byte("RIFF")}, {8, []byte("WEBP")}}, Classification{"webp", "image/webp", "WebP image"}},
	{[]part{{0, []byte("BM")}}, Classification{"bmp", "image/bmp", "Bitmap image"}},

	// Video
	{[]part{{4, []byte("ftypqt")}}, Classification{"mov", "video/quicktime", "QuickTime video"}},
	{[]part{{4, []byte("ftyp")}}, Classification{"mp4", "video/mp4", "MPEG-4 video"}},
	{[]part{{0, []byte{0x1A, 0x45, 0xDF, 0xA3}}}, Classification{"webm", "video/webm", "WebM video"}},
	{[]part{{0, []byte("RIFF")}, {8, []byte("AVI ")}}, Classification{"avi", "video/x-msvideo", "AVI video"}},

	// Audio
	{[]part{{0, []byte("ID3")}}, Classification{"mp3", "audio/mpeg", "MP3 audio"}},
	{[]part{{0, []byte{0xFF, 0xFB}}}, Classification{"mp3", "audio/mpeg", "MP3 audio"}},
	{[]part{{0, []byte("OggS")}}, Classification{"ogg", "audio/ogg", "Ogg audio"}},
	{[]part{{0, []byte("RIFF")}, {8, []byte("WAVE")}}, Classification{"wav", "audio/wav", "WAV audio"}},
	{[]part{{0, []byte("fLaC")}}, Classification{"flac", "audio/flac", "FLAC audio"}},

	// Documents
	{[]part{{0, []byte("%PDF")}}, Classification{"pdf", "application/pdf", "PDF document"}},

	// Archives
	{[]part{{0, []byte{'P', 'K', 0x03, 0x04}}}, Classification{"zip", "application/zip", "ZIP archive"}},
	{[]part{{0, []byte{0x1F, 0x8B}}}, Classification{"gz", "application/gzip", "Gzip archive"}},
	{[]part{{0, []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}}}, Classification{"7z", "application/x-7z-compressed", "7-Zip archive"}},
	{[]part{{0, []byte{'R', 'a', 'r', '!', 0x1A, 0x07}}}, Classification{"rar", "application/vnd.rar", "RAR archive"}},
}

// Classify inspects up to the first 12 bytes of data. Inputs shorter than
// 12 bytes, and inputs matching no signature, classify as Binary.
func Classify(data []byte) Classification {
	if len(data) < sniffLen {
		return Binary
	}
	head := data[:sniffLen]
	for _, sig := range signatures {
		if matches(head, sig.parts) {
			return sig.class
		}
	}
	return Binary
}

func matches(head []byte, parts []part) bool {
	for _, p := range parts {
		end := p.offset + len(p.magic)
		if end > len(head) || !bytes.Equal(head[p.offset:end], p.magic) {
			return false
		}
	}
	return true
}
