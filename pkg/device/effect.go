// ABOUTME: Effect catalog
// ABOUTME: Names the effects a buffer created with effects can chain
package device

import (
	"fmt"
	"strings"
)

// EffectKind identifies one effect in a buffer's chain
type EffectKind int

const (
	EffectGargle EffectKind = iota
	EffectChorus
	EffectFlanger
	EffectEcho
	EffectDistortion
	EffectCompressor
	EffectParamEq
	EffectI3DL2Reverb
	EffectWavesReverb
)

var effectNames = []string{
	"gargle",
	"chorus",
	"flanger",
	"echo",
	"distortion",
	"compressor",
	"parameq",
	"i3dl2reverb",
	"wavesreverb",
}

func (k EffectKind) String() string {
	if k < 0 || int(k) >= len(effectNames) {
		return fmt.Sprintf("effect(%d)", int(k))
	}
	return effectNames[k]
}

// Valid reports whether k is part of the catalog
func (k EffectKind) Valid() bool {
	return k >= 0 && int(k) < len(effectNames)
}

// ParseEffectKind maps a case-insensitive effect name to its kind
func ParseEffectKind(name string) (EffectKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range effectNames {
		if n == name {
			return EffectKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown effect %q", name)
}
