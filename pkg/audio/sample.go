// ABOUTME: Sample conversion helpers
// ABOUTME: Converts between 8-bit unsigned, 16-bit signed and 24-bit samples
package audio

import "encoding/binary"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// SampleToInt16 converts a 24-bit sample held in an int32 to int16
func SampleToInt16(sample int32) int16 {
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleFromUint8 converts an unsigned 8-bit PCM sample to int16
func SampleFromUint8(sample byte) int16 {
	return int16(int(sample)-128) << 8
}

// SampleToUint8 converts an int16 sample to unsigned 8-bit PCM
func SampleToUint8(sample int16) byte {
	return byte((int(sample) >> 8) + 128)
}

// ClampInt16 saturates a mixed sample to the int16 range
func ClampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// ReadSample decodes one little-endian sample of the given bit depth as int16
func ReadSample(data []byte, bitDepth int) int16 {
	if bitDepth == 8 {
		return SampleFromUint8(data[0])
	}
	return int16(binary.LittleEndian.Uint16(data))
}

// PutSample encodes s into data with the given bit depth
func PutSample(data []byte, bitDepth int, s int16) {
	if bitDepth == 8 {
		data[0] = SampleToUint8(s)
		return
	}
	binary.LittleEndian.PutUint16(data, uint16(s))
}
