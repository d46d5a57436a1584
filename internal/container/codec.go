package container

import (
	"encoding/binary"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
)

// MarshalBinary encodes the header and payload.
// Reserved bytes and the flags byte are always written as zero.
func (c *Container) MarshalBinary() ([]byte, error) {
	if int(c.Header.PayloadLength) != len(c.Payload) {
		return nil, romerr.Formatf(c.Source, "container is not sealed, header declares %d payload bytes but %d are present",
			c.Header.PayloadLength, len(c.Payload))
	}

	data := make([]byte, HeaderSize+len(c.Payload))
	encodeHeader(data[:HeaderSize], c.Header)
	copy(data[HeaderSize:], c.Payload)
	return data, nil
}

func encodeHeader(dst []byte, h Header) {
	copy(dst[0x00:0x04], h.Magic[:])
	dst[0x04] = h.VersionMajor
	dst[0x05] = h.VersionMinor
	dst[0x06] = uint8(h.DataType)
	dst[0x07] = 0
	binary.LittleEndian.PutUint32(dst[0x08:0x0C], h.PayloadLength)
	binary.LittleEndian.PutUint32(dst[0x0C:0x10], h.SourceOffset)
	binary.LittleEndian.PutUint32(dst[0x10:0x14], h.Checksum)
	binary.LittleEndian.PutUint32(dst[0x14:0x18], h.CreatedAt)
	clear(dst[0x18:HeaderSize])
}

func decodeHeader(src []byte) Header {
	var h Header
	copy(h.Magic[:], src[0x00:0x04])
	h.VersionMajor = src[0x04]
	h.VersionMinor = src[0x05]
	h.DataType = schema.DataType(src[0x06])
	h.Flags = src[0x07]
	h.PayloadLength = binary.LittleEndian.Uint32(src[0x08:0x0C])
	h.SourceOffset = binary.LittleEndian.Uint32(src[0x0C:0x10])
	h.Checksum = binary.LittleEndian.Uint32(src[0x10:0x14])
	h.CreatedAt = binary.LittleEndian.Uint32(src[0x14:0x18])
	return h
}

// Unmarshal decodes and verifies a container. The payload is copied so the
// returned container does not alias data. source names the container in errors.
func Unmarshal(data []byte, source string) (*Container, error) {
	if len(data) < HeaderSize {
		return nil, romerr.Formatf(source, "%d bytes are too short for a %d byte header", len(data), HeaderSize)
	}

	h := decodeHeader(data[:HeaderSize])
	if string(h.Magic[:]) != Magic {
		return nil, romerr.Formatf(source, "invalid magic %q", h.Magic[:])
	}
	if h.VersionMajor != VersionMajor {
		return nil, romerr.Formatf(source, "unsupported major version %d", h.VersionMajor)
	}

	body := data[HeaderSize:]
	if uint64(h.PayloadLength) != uint64(len(body)) {
		return nil, romerr.Formatf(source, "header declares %d payload bytes but %d follow",
			h.PayloadLength, len(body))
	}

	c := &Container{
		Header:  h,
		Payload: append([]byte(nil), body...),
		Source:  source,
	}
	if err := c.VerifyChecksum(); err != nil {
		return nil, err
	}
	return c, nil
}
