package models

// AudioChunk is one frame of captured audio. The relay never looks inside it.
type AudioChunk []byte

// ChunkBuffer holds the chunks received on one connection in arrival order.
// It is not safe for concurrent use; the owning session serialises access.
type ChunkBuffer struct {
	chunks []AudioChunk
	size   int
}

func NewChunkBuffer() *ChunkBuffer {
	return &ChunkBuffer{}
}

// Append stores a copy of data, so callers may reuse their read buffers.
func (b *ChunkBuffer) Append(data []byte) {
	c := make(AudioChunk, len(data))
	copy(c, data)
	b.chunks = append(b.chunks, c)
	b.size += len(c)
}

// Len is the number of chunks held.
func (b *ChunkBuffer) Len() int { return len(b.chunks) }

// Size is the total byte length of the held chunks.
func (b *ChunkBuffer) Size() int { return b.size }

// Drain concatenates every held chunk into one payload and empties the buffer.
// It returns the payload and the number of chunks it was built from.
func (b *ChunkBuffer) Drain() ([]byte, int) {
	n := len(b.chunks)
	if n == 0 {
		return nil, 0
	}

	payload := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		payload = append(payload, c...)
	}
	b.Reset()
	return payload, n
}

// Reset discards every held chunk.
func (b *ChunkBuffer) Reset() {
	b.chunks = nil
	b.size = 0
}
