package loader

import (
	"strings"

	"github.com/pkg/errors"
)

// Cartridge header layout.
const (
	HeaderSize       = 0xC0
	headerTitle      = 0xA0
	headerGameCode   = 0xAC
	headerMakerCode  = 0xB0
	headerFixed      = 0xB2
	headerVersion    = 0xBC
	headerChecksum   = 0xBD
	headerFixedValue = 0x96
	checksumBias     = 0x19
)

// Header errors. Use errors.Cause to match them.
var (
	ErrShortImage = errors.New("image shorter than the cartridge header")
	ErrChecksum   = errors.New("header checksum mismatch")
)

// Header holds the identification fields of a cartridge header.
type Header struct {
	Title     string
	GameCode  string
	MakerCode string
	Version   uint8
	Checksum  uint8
	// FixedOK reports whether the fixed byte at 0xB2 holds 0x96.
	FixedOK bool
}

// HeaderChecksum computes the complement check over bytes 0xA0-0xBC.
func HeaderChecksum(rom []byte) uint8 {
	var sum uint8
	for _, b := range rom[headerTitle:headerChecksum] {
		sum += b
	}
	return -sum - checksumBias
}

// ParseHeader decodes the cartridge header. A checksum mismatch returns the
// decoded header together with an error wrapping ErrChecksum.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < HeaderSize {
		return nil, errors.Wrapf(ErrShortImage, "%d bytes", len(rom))
	}

	h := &Header{
		Title:     field(rom[headerTitle:headerGameCode]),
		GameCode:  field(rom[headerGameCode:headerMakerCode]),
		MakerCode: field(rom[headerMakerCode:headerFixed]),
		Version:   rom[headerVersion],
		Checksum:  rom[headerChecksum],
		FixedOK:   rom[headerFixed] == headerFixedValue,
	}

	if want := HeaderChecksum(rom); want != h.Checksum {
		return h, errors.Wrapf(ErrChecksum, "stored 0x%02X, computed 0x%02X", h.Checksum, want)
	}
	return h, nil
}

// FixHeader rewrites the fixed byte and the checksum of rom in place.
func FixHeader(rom []byte) error {
	if len(rom) < HeaderSize {
		return errors.Wrapf(ErrShortImage, "%d bytes", len(rom))
	}
	rom[headerFixed] = headerFixedValue
	rom[headerChecksum] = HeaderChecksum(rom)
	return nil
}

func field(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}
