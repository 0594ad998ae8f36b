package ebitenaudio

import (
	"bytes"
	"fmt"
)

// repairOggHeader rebuilds a mangled ogg capture pattern. Streams
// extracted from game archives sometimes carry junk bytes between the
// "OggS" magic and the first page body; this strips them and prepends a
// known-good first-page header.
func repairOggHeader(data []byte) ([]byte, error) {
	const (
		sizeOfValidOggHeader = 16
		oggMagic             = "OggS"
	)

	if len(data) < sizeOfValidOggHeader {
		return nil, fmt.Errorf("not enough data, cannot fix ogg header")
	}

	validHeader := []byte{
		byte(oggMagic[0]), byte(oggMagic[1]), byte(oggMagic[2]), byte(oggMagic[3]),
		0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	// already a valid first page
	if bytes.Equal(data[:len(validHeader)], validHeader) {
		return data, nil
	}

	headerFirstPart := data[:sizeOfValidOggHeader]
	indexToCut, numberOfZeros := 0, 0

	for i := range headerFirstPart {
		isMagicChar := false
		for _, char := range oggMagic {
			if data[i] == byte(char) {
				isMagicChar = true
				break
			}
		}
		if isMagicChar {
			continue
		}

		if data[i] == 0x00 {
			numberOfZeros++
			if numberOfZeros > 9 {
				return nil, fmt.Errorf("too many zeros in the ogg header, cannot fix")
			}
			continue
		}

		// first non-zero payload byte after the zero run
		if i > 0 {
			if data[i-1] != 0x00 {
				if i > 2 && data[i-2] == 0x00 {
					indexToCut = i - 1
					break
				}
			}
		}
	}

	repaired := make([]byte, 0, len(validHeader)+len(data)-indexToCut)
	repaired = append(repaired, validHeader...)
	repaired = append(repaired, data[indexToCut:]...)
	return repaired, nil
}
