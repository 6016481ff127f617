package audio

import (
	"encoding/binary"
	"fmt"
	"os"
)

// PCM holds decoded mono samples scaled to [-1, 1].
type PCM struct {
	Samples    []float64
	SampleRate int
}

func (p *PCM) Duration() float64 {
	if p.SampleRate == 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate)
}

// Window returns the samples covering [start, end) seconds, clamped to
// the available range.
func (p *PCM) Window(start, end float64) []float64 {
	if p.SampleRate == 0 || start >= end {
		return nil
	}

	lo := int(start * float64(p.SampleRate))
	hi := int(end * float64(p.SampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(p.Samples) {
		hi = len(p.Samples)
	}
	if lo >= hi {
		return nil
	}

	return p.Samples[lo:hi]
}

func ReadWAV(path string) (*PCM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wav file: %w", err)
	}
	return DecodeWAV(data)
}

// DecodeWAV decodes a 16-bit PCM RIFF/WAVE stream. Multi-channel input
// is averaged down to mono.
func DecodeWAV(data []byte) (*PCM, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		channels   int
		sampleRate int
		bitDepth   int
		haveFmt    bool
		raw        []byte
	)

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		off += 8
		if size < 0 || off+size > len(data) {
			return nil, fmt.Errorf("truncated %q chunk", id)
		}
		body := data[off : off+size]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(body[0:2]); format != 1 {
				return nil, fmt.Errorf("unsupported wav encoding %d, want PCM", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			raw = body
		}

		// chunks are word aligned
		off += size + size%2
	}

	if !haveFmt {
		return nil, fmt.Errorf("missing fmt chunk")
	}
	if raw == nil {
		return nil, fmt.Errorf("missing data chunk")
	}
	if bitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d, want 16", bitDepth)
	}
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	frameSize := 2 * channels
	frames := len(raw) / frameSize
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		base := i * frameSize
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(int16(binary.LittleEndian.Uint16(raw[base+2*c : base+2*c+2])))
		}
		samples[i] = sum / float64(channels) / 32768.0
	}

	return &PCM{Samples: samples, SampleRate: sampleRate}, nil
}
