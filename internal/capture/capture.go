// Package capture provides audio sources for the capture client.
package capture

import (
	"encoding/binary"
)

// Format describes the samples a Source yields. Samples are always signed
// 16-bit; multi-channel input is downmixed to mono by the source.
type Format struct {
	SampleRate int
	Channels   int
}

// Source is a blocking reader of mono int16 samples. Read returns io.EOF when
// the source is exhausted; Close unblocks a pending Read where the backend
// allows it.
type Source interface {
	Format() Format
	Read(buf []int16) (int, error)
	Close() error
}

// PCM16LE encodes samples as little-endian LINEAR16 bytes.
func PCM16LE(samples []int16) []byte {
	out := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}
