package vba

import "fmt"

// decompress expands an MS-OVBA compressed container (the encoding used
// for the dir stream and for module source text inside vbaProject.bin).
// The container is a 0x01 signature byte followed by 4096-byte chunks,
// each either stored raw or compressed with a run-length copy-token
// scheme.
func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] != 0x01 {
		return nil, fmt.Errorf("not a compressed container (missing 0x01 signature)")
	}

	var out []byte
	i := 1
	for i+2 <= len(data) {
		header := uint16(data[i]) | uint16(data[i+1])<<8
		i += 2
		if (header>>12)&0x7 != 0x3 {
			return nil, fmt.Errorf("bad chunk header signature at offset %d", i-2)
		}
		// The size field counts the whole chunk minus 3, header included.
		chunkLen := int(header&0x0FFF) + 1
		compressed := header&0x8000 != 0
		end := i + chunkLen
		if end > len(data) {
			end = len(data)
		}

		if !compressed {
			out = append(out, data[i:end]...)
			i = end
			continue
		}

		chunkStart := len(out)
		for i < end {
			flags := data[i]
			i++
			for bit := 0; bit < 8 && i < end; bit++ {
				if flags&(1<<bit) == 0 {
					out = append(out, data[i])
					i++
					continue
				}
				if i+2 > end {
					return nil, fmt.Errorf("truncated copy token at offset %d", i)
				}
				token := uint16(data[i]) | uint16(data[i+1])<<8
				i += 2

				// Offset width grows with the current position in the
				// decompressed chunk, minimum 4 bits.
				pos := len(out) - chunkStart
				bitCount := 4
				for 1<<bitCount < pos {
					bitCount++
				}
				lengthMask := uint16(0xFFFF) >> bitCount
				length := int(token&lengthMask) + 3
				offset := int(token>>(16-bitCount)) + 1
				if offset > pos {
					return nil, fmt.Errorf("copy token offset %d exceeds window %d", offset, pos)
				}
				for j := 0; j < length; j++ {
					out = append(out, out[len(out)-offset])
				}
			}
		}
		i = end
	}
	return out, nil
}
