package services

import "encoding/binary"

// ImageFormat is a container format identified from magic bytes.
type ImageFormat string

const (
	FormatPNG     ImageFormat = "png"
	FormatJPEG    ImageFormat = "jpeg"
	FormatWEBP    ImageFormat = "webp"
	FormatUnknown ImageFormat = "unknown"
)

// ContentType returns the MIME type for a sniffed format, or an empty
// string for unknown.
func (f ImageFormat) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatWEBP:
		return "image/webp"
	}
	return ""
}

// Ext returns the file extension (with dot) for a sniffed format.
func (f ImageFormat) Ext() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatJPEG:
		return ".jpg"
	case FormatWEBP:
		return ".webp"
	}
	return ""
}

// ImageProbe is what Sniff learns from a buffer's header bytes.
// Width and Height are 0 when the dimensions could not be read; they are
// only ever extracted for PNG and JPEG.
type ImageProbe struct {
	Format ImageFormat
	Width  int
	Height int
}

// HasDimensions reports whether both pixel dimensions were extracted.
func (p ImageProbe) HasDimensions() bool {
	return p.Width > 0 && p.Height > 0
}

// Sniff identifies the container format of an image buffer from its magic
// bytes and, for PNG and JPEG, extracts pixel dimensions from the header
// without decoding any image data. Malformed, truncated, or unrecognized
// buffers degrade to FormatUnknown or to a valid format with absent
// dimensions; Sniff never fails.
func Sniff(data []byte) ImageProbe {
	if len(data) < 12 {
		return ImageProbe{Format: FormatUnknown}
	}

	switch {
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		probe := ImageProbe{Format: FormatPNG}
		// IHDR is the first chunk: width and height are BE32 at fixed
		// offsets 16 and 20.
		if len(data) > 24 {
			probe.Width = int(binary.BigEndian.Uint32(data[16:20]))
			probe.Height = int(binary.BigEndian.Uint32(data[20:24]))
		}
		return probe

	case data[0] == 0xFF && data[1] == 0xD8:
		probe := ImageProbe{Format: FormatJPEG}
		probe.Width, probe.Height = jpegDimensions(data)
		return probe

	case data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 && // "RIFF"
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50: // "WEBP"
		return ImageProbe{Format: FormatWEBP}
	}

	return ImageProbe{Format: FormatUnknown}
}

// jpegDimensions walks the segment stream after SOI looking for the first
// Start-Of-Frame marker (baseline 0xC0 or progressive 0xC2). The SOF
// payload is: 2-byte length, 1-byte precision, BE16 height, BE16 width.
// Returns zeros if no SOF is found or the stream is truncated; segment
// lengths are bounds-checked so a corrupt length can never read past the
// buffer.
func jpegDimensions(data []byte) (width, height int) {
	i := 2
	for i+1 < len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		// Skip fill bytes and standalone markers (RSTn, SOI, TEM) that
		// carry no length field.
		if marker == 0xFF {
			i++
			continue
		}
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD9) {
			i += 2
			continue
		}
		if i+3 >= len(data) {
			return 0, 0
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if marker == 0xC0 || marker == 0xC2 {
			// Need precision + height + width past the length field.
			if i+9 > len(data) {
				return 0, 0
			}
			height = int(binary.BigEndian.Uint16(data[i+5 : i+7]))
			width = int(binary.BigEndian.Uint16(data[i+7 : i+9]))
			return width, height
		}
		// Length includes its own two bytes per the JPEG spec; a length
		// below 2 is corrupt and would loop in place.
		if segLen < 2 {
			return 0, 0
		}
		i += 2 + segLen
	}
	return 0, 0
}
