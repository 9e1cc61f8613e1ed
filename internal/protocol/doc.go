// Package protocol implements the wire codec for the race protocol.
//
// Frames are length-delimited binary records: a single leading tag byte
// followed by a tag-specific payload. Strings are a 16-bit big-endian
// length followed by UTF-8 bytes; integers are big-endian fixed-width.
// Cursor positions count Unicode scalar values, not bytes.
//
// The codec is stateless. A malformed frame fails that frame only, never
// the connection.
package protocol
