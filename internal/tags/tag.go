package tags

// Tag is read access to a tag: a byte payload contributed by one tagger to
// one node. Out-of-range reads return the zero value and false (or nil)
// rather than failing.
type Tag interface {
	// TaggerID returns the identity of the tag's contributor.
	TaggerID() string
	// DataLen returns the payload length in bytes.
	DataLen() int
	// Byte returns the payload byte at offset.
	Byte(offset int) (byte, bool)
	// Bytes returns length payload bytes starting at offset. A length of
	// -1 reads to the end of the payload.
	Bytes(offset, length int) []byte
}

// WritableTag is a Tag whose payload can be changed in place.
type WritableTag interface {
	Tag
	// PutByte overwrites the payload byte at offset.
	PutByte(offset int, b byte) bool
	// PutBytes writes the first length bytes of data at offset. A length
	// of -1 writes all of data. Writing all of data at offset 0 when data
	// is shorter than the payload shrinks the payload to len(data).
	PutBytes(offset int, data []byte, length int) bool
}

// isInBounds reports whether [offset, offset+length) lies inside a payload
// of dataLen bytes.
func isInBounds(offset, length, dataLen int) bool {
	return offset >= 0 && offset < dataLen && length >= 0 && offset+length <= dataLen
}

// writeLength resolves the length argument of PutBytes and reports whether
// the call is a full write of data.
func writeLength(offset int, data []byte, length int) (int, bool) {
	if length < 0 {
		length = len(data)
	}
	return length, offset == 0 && length == len(data)
}
