package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// wavWithExtraChunk builds a WAV whose fmt chunk is followed by a LIST chunk,
// so the data chunk does not start at byte 44.
func wavWithExtraChunk(pcm []byte, rate, channels int) []byte {
	base := EncodeWAV(pcm, rate, channels, 16)
	list := []byte("LIST")
	list = binary.LittleEndian.AppendUint32(list, 3)
	list = append(list, 'a', 'b', 'c', 0) // odd size plus pad byte

	out := append([]byte{}, base[:36]...)
	out = append(out, list...)
	out = append(out, base[36:]...)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out
}

func TestParseWAV(t *testing.T) {
	t.Parallel()
	pcm := []byte{1, 0, 2, 0, 3, 0}

	info, err := ParseWAV(EncodeWAV(pcm, 22050, 1, 16))
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if info.SampleRate != 22050 || info.Channels != 1 || info.BitsPerSample != 16 {
		t.Errorf("info = %+v", info)
	}
	if info.DataOffset != 44 || info.DataLen != len(pcm) {
		t.Errorf("DataOffset = %d, DataLen = %d, want 44, %d", info.DataOffset, info.DataLen, len(pcm))
	}

	wav := wavWithExtraChunk(pcm, 16000, 1)
	info, err = ParseWAV(wav)
	if err != nil {
		t.Fatalf("ParseWAV(extra chunk): %v", err)
	}
	if info.DataOffset != 44+12 {
		t.Errorf("DataOffset = %d, want 56", info.DataOffset)
	}
	if got := wav[info.DataOffset : info.DataOffset+info.DataLen]; !bytes.Equal(got, pcm) {
		t.Errorf("payload = %v, want %v", got, pcm)
	}
}

func TestParseWAV_Invalid(t *testing.T) {
	t.Parallel()
	tests := map[string][]byte{
		"short":   []byte("RIFF"),
		"not wav": []byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"),
		"no data": EncodeWAV(nil, 8000, 1, 16)[:36],
	}
	for name, b := range tests {
		if _, err := ParseWAV(b); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestConcat_WAVMergesPayloads(t *testing.T) {
	t.Parallel()
	a := EncodeWAV([]byte{1, 0, 2, 0}, 16000, 1, 16)
	b := wavWithExtraChunk([]byte{3, 0}, 16000, 1)

	out := Concat([][]byte{a, nil, b})
	info, err := ParseWAV(out)
	if err != nil {
		t.Fatalf("ParseWAV(Concat): %v", err)
	}
	got := out[info.DataOffset : info.DataOffset+info.DataLen]
	if want := []byte{1, 0, 2, 0, 3, 0}; !bytes.Equal(got, want) {
		t.Errorf("merged PCM = %v, want %v", got, want)
	}
	if info.SampleRate != 16000 || info.Channels != 1 {
		t.Errorf("format = %+v", info.Format)
	}
}

func TestConcat_WAVConvertsChannels(t *testing.T) {
	t.Parallel()
	mono := EncodeWAV([]byte{1, 0}, 8000, 1, 16)
	stereo := EncodeWAV([]byte{4, 0, 6, 0}, 8000, 2, 16)

	out := Concat([][]byte{mono, stereo})
	info, err := ParseWAV(out)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	got := out[info.DataOffset : info.DataOffset+info.DataLen]
	if want := []byte{1, 0, 5, 0}; !bytes.Equal(got, want) {
		t.Errorf("merged PCM = %v, want %v", got, want)
	}
}

func TestConcat_NonWAVIsByteJoined(t *testing.T) {
	t.Parallel()
	a := []byte("\xff\xfbframe1")
	b := []byte("\xff\xfbframe2")
	if got := Concat([][]byte{a, b}); !bytes.Equal(got, append(append([]byte{}, a...), b...)) {
		t.Errorf("Concat = %q", got)
	}
	if got := Concat(nil); got != nil {
		t.Errorf("Concat(nil) = %v, want nil", got)
	}
	if got := Concat([][]byte{nil, a}); !bytes.Equal(got, a) {
		t.Errorf("Concat single = %q", got)
	}
}
