package tags

// MemoryTag is a WritableTag held in memory. It describes desired tag
// contents for Index.SetTags.
type MemoryTag struct {
	taggerID string
	data     []byte
}

var _ WritableTag = (*MemoryTag)(nil)

// NewMemoryTag creates a tag with a zeroed payload of dataLen bytes.
func NewMemoryTag(taggerID string, dataLen int) *MemoryTag {
	if dataLen < 0 {
		dataLen = 0
	}
	return &MemoryTag{taggerID: taggerID, data: make([]byte, dataLen)}
}

// NewMemoryTagWithData creates a tag holding a copy of data.
func NewMemoryTagWithData(taggerID string, data []byte) *MemoryTag {
	return &MemoryTag{taggerID: taggerID, data: append([]byte{}, data...)}
}

func (t *MemoryTag) TaggerID() string { return t.taggerID }

func (t *MemoryTag) DataLen() int { return len(t.data) }

func (t *MemoryTag) Byte(offset int) (byte, bool) {
	if !isInBounds(offset, 1, len(t.data)) {
		return 0, false
	}
	return t.data[offset], true
}

func (t *MemoryTag) Bytes(offset, length int) []byte {
	if length < 0 {
		length = len(t.data) - offset
	}
	if !isInBounds(offset, length, len(t.data)) {
		return nil
	}
	return append([]byte{}, t.data[offset:offset+length]...)
}

func (t *MemoryTag) PutByte(offset int, b byte) bool {
	if !isInBounds(offset, 1, len(t.data)) {
		return false
	}
	t.data[offset] = b
	return true
}

func (t *MemoryTag) PutBytes(offset int, data []byte, length int) bool {
	length, full := writeLength(offset, data, length)
	if length > len(data) || !isInBounds(offset, length, len(t.data)) {
		return false
	}
	copy(t.data[offset:], data[:length])
	if full && length < len(t.data) {
		t.data = t.data[:length]
	}
	return true
}
