package stream

import (
	"fmt"

	"layeh.com/gopus"
)

const (
	sampleRate = 48000
	channels   = 2
	frameSize  = 960 // samples per channel, 20 ms at 48 kHz
	// one s16le frame: 960 samples * 2 channels * 2 bytes
	FrameBytes = frameSize * channels * 2

	maxOpusBytes = 4000
)

// OpusEncoder encodes 20 ms s16le frames to Opus packets, applying a
// volume coefficient on the way through.
type OpusEncoder struct {
	enc    *gopus.Encoder
	shorts []int16
}

func NewOpusEncoder() (*OpusEncoder, error) {
	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	enc.SetBitrate(160000)
	return &OpusEncoder{
		enc:    enc,
		shorts: make([]int16, frameSize*channels),
	}, nil
}

// Encode converts one interleaved s16le frame, scaled by volume, into an
// Opus packet. The returned slice is owned by the encoder until the next
// call.
func (e *OpusEncoder) Encode(pcm []byte, volume float64) ([]byte, error) {
	if len(pcm) != FrameBytes {
		return nil, fmt.Errorf("bad frame size %d", len(pcm))
	}
	for i := range e.shorts {
		j := i * 2
		v := int16(uint16(pcm[j]) | uint16(pcm[j+1])<<8)
		e.shorts[i] = scaleSample(v, volume)
	}
	pkt, err := e.enc.Encode(e.shorts, frameSize, maxOpusBytes)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return pkt, nil
}

// scaleSample multiplies a sample by the volume coefficient with clipping.
func scaleSample(v int16, volume float64) int16 {
	if volume == 1.0 {
		return v
	}
	f := float64(v) * volume
	if f > 32767 {
		return 32767
	}
	if f < -32768 {
		return -32768
	}
	return int16(f)
}
