package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// WAVInfo holds the format metadata of a RIFF/WAVE container.
type WAVInfo struct {
	Format
	BitsPerSample int

	// DataOffset and DataLen locate the PCM payload inside the container.
	DataOffset int
	DataLen    int
}

// IsWAV reports whether b starts with a RIFF/WAVE header.
func IsWAV(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}

// ParseWAV walks the RIFF chunks of wav and returns the "fmt " metadata and
// the location of the "data" chunk. The fmt chunk size may vary, so no fixed
// 44-byte header is assumed.
func ParseWAV(wav []byte) (WAVInfo, error) {
	if len(wav) < 12 {
		return WAVInfo{}, errors.New("audio: WAV too short to be a RIFF file")
	}
	if !IsWAV(wav) {
		return WAVInfo{}, errors.New("audio: missing RIFF/WAVE header")
	}

	var info WAVInfo
	foundFmt := false
	offset := 12
	for offset+8 <= len(wav) {
		id := string(wav[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch id {
		case "fmt ":
			if size >= 16 && offset+8+16 <= len(wav) {
				f := wav[offset+8:]
				info.Channels = int(binary.LittleEndian.Uint16(f[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(f[4:8]))
				info.BitsPerSample = int(binary.LittleEndian.Uint16(f[14:16]))
				foundFmt = true
			}
		case "data":
			if !foundFmt {
				return WAVInfo{}, errors.New("audio: WAV data chunk before fmt chunk")
			}
			info.DataOffset = offset + 8
			info.DataLen = min(size, len(wav)-info.DataOffset)
			return info, nil
		}

		// Chunks are word-aligned.
		offset += 8 + size
		if size%2 != 0 {
			offset++
		}
	}
	return WAVInfo{}, errors.New("audio: WAV missing data chunk")
}

// EncodeWAV wraps raw little-endian PCM in a canonical 44-byte-header
// RIFF/WAVE container.
func EncodeWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)
	return buf
}

// Concat joins synthesized audio segments in order.
//
// When every segment is a WAV container the PCM payloads are merged under a
// single header using the first segment's format; 16-bit segments in another
// format are converted with [Convert] first. Anything else (MP3 and
// other frame-based formats) is concatenated byte for byte. Empty segments
// are skipped.
func Concat(parts [][]byte) []byte {
	var nonEmpty [][]byte
	for _, p := range parts {
		if len(p) > 0 {
			nonEmpty = append(nonEmpty, p)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return nil
	case 1:
		return nonEmpty[0]
	}

	if merged, ok := concatWAV(nonEmpty); ok {
		return merged
	}
	return bytes.Join(nonEmpty, nil)
}

func concatWAV(parts [][]byte) ([]byte, bool) {
	infos := make([]WAVInfo, len(parts))
	for i, p := range parts {
		info, err := ParseWAV(p)
		if err != nil {
			return nil, false
		}
		infos[i] = info
	}

	target := infos[0]
	var pcm []byte
	for i, p := range parts {
		info := infos[i]
		data := p[info.DataOffset : info.DataOffset+info.DataLen]
		if info.Format != target.Format || info.BitsPerSample != target.BitsPerSample {
			if info.BitsPerSample != 16 || target.BitsPerSample != 16 {
				return nil, false
			}
			data = Convert(data, info.Format, target.Format)
		}
		pcm = append(pcm, data...)
	}
	return EncodeWAV(pcm, target.SampleRate, target.Channels, target.BitsPerSample), true
}
