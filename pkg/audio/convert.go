// Package audio holds the WAV container and 16-bit PCM helpers used when
// synthesized speech is stitched together or resampled.
package audio

import "encoding/binary"

// Format describes the layout of little-endian 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Convert re-encodes 16-bit PCM from one format to another. Frames are
// resampled per channel with linear interpolation, then mixed to the target
// channel count. A trailing partial frame is dropped. Non-positive rates skip
// resampling and non-positive channel counts return pcm unchanged.
func Convert(pcm []byte, from, to Format) []byte {
	if from == to || from.Channels <= 0 || to.Channels <= 0 {
		return pcm
	}
	samples := decode16(pcm, from.Channels)
	samples = resample(samples, from.Channels, from.SampleRate, to.SampleRate)
	samples = remix(samples, from.Channels, to.Channels)
	return encode16(samples)
}

func decode16(pcm []byte, channels int) []int16 {
	n := len(pcm) / 2
	n -= n % channels
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return out
}

func encode16(samples []int16) []byte {
	out := make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

// resample maps interleaved frames from src to dst Hz.
func resample(samples []int16, channels, src, dst int) []int16 {
	if src <= 0 || dst <= 0 || src == dst || len(samples) == 0 {
		return samples
	}
	frames := len(samples) / channels
	outFrames := int(int64(frames) * int64(dst) / int64(src))
	out := make([]int16, outFrames*channels)
	ratio := float64(src) / float64(dst)
	for i := range outFrames {
		pos := float64(i) * ratio
		j := int(pos)
		frac := pos - float64(j)
		next := min(j+1, frames-1)
		for c := range channels {
			s0 := float64(samples[j*channels+c])
			s1 := float64(samples[next*channels+c])
			out[i*channels+c] = int16(s0 + (s1-s0)*frac)
		}
	}
	return out
}

// remix changes the channel count. Mono fans out to every channel; any other
// layout is averaged down to mono first.
func remix(samples []int16, from, to int) []int16 {
	if from == to {
		return samples
	}
	frames := len(samples) / from
	mono := samples
	if from != 1 {
		mono = make([]int16, frames)
		for f := range frames {
			var sum int32
			for c := range from {
				sum += int32(samples[f*from+c])
			}
			mono[f] = int16(sum / int32(from))
		}
	}
	if to == 1 {
		return mono
	}
	out := make([]int16, frames*to)
	for f, s := range mono {
		for c := range to {
			out[f*to+c] = s
		}
	}
	return out
}
