package sky

import (
	"encoding/binary"
	"envlight/libgpu"
	"errors"
	"fmt"
	"hash"
	"hash/fnv"
	"math"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

var (
	ErrUnsupportedResolution = errors.New("unsupported resolution")
	ErrInvalidUpdatePeriod   = errors.New("update period must be positive in realtime mode")
	ErrNoSettings            = errors.New("no environment settings")
	ErrNoRenderer            = errors.New("no environment renderer")
	ErrInsufficientMips      = errors.New("not enough mip levels for GGX convolution")
	ErrAutoMipTarget         = errors.New("render target has automatic mip generation enabled")
)

// Resolution is the edge length of the environment cube maps.
type Resolution int

const (
	Resolution128  = Resolution(128)
	Resolution256  = Resolution(256)
	Resolution512  = Resolution(512)
	Resolution1024 = Resolution(1024)
)

const DefaultResolution = Resolution256

// SupportedResolutions lists the accepted resolutions. Larger cube maps are rejected.
var SupportedResolutions = []Resolution{Resolution128, Resolution256, Resolution512, Resolution1024}

func (r Resolution) Valid() bool {
	return slices.Contains(SupportedResolutions, r)
}

type UpdateMode int

const (
	// UpdateOnChanged recomputes when the configuration hash changes.
	UpdateOnChanged = UpdateMode(iota)
	// UpdateOnDemand recomputes only after RequestEnvironmentUpdate.
	UpdateOnDemand
	// UpdateRealtime recomputes every UpdatePeriod seconds.
	UpdateRealtime
)

var updateModeNames = []string{"OnChanged", "OnDemand", "Realtime"}

func (m UpdateMode) String() string {
	if m >= 0 && int(m) < len(updateModeNames) {
		return updateModeNames[m]
	}
	return fmt.Sprintf("UpdateMode(%d)", int(m))
}

func (m UpdateMode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(updateModeNames) {
		return nil, fmt.Errorf("invalid update mode %d", int(m))
	}
	return []byte(updateModeNames[m]), nil
}

func (m *UpdateMode) UnmarshalText(text []byte) error {
	for i, name := range updateModeNames {
		if strings.EqualFold(name, string(text)) {
			*m = UpdateMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown update mode %q, expected one of %s", text, strings.Join(updateModeNames, ", "))
}

// EnvironmentConfig describes what the environment is and when it is recomputed.
// The caller owns it; the manager only reads it.
type EnvironmentConfig struct {
	Resolution Resolution `json:"resolution"`
	UpdateMode UpdateMode `json:"updateMode"`
	// seconds, realtime mode only
	UpdatePeriod float32 `json:"updatePeriod"`
	UseMIS       bool    `json:"useMIS"`
	// Override is a pre-baked cube map used instead of Source when set.
	Override libgpu.Texture    `json:"-"`
	Source   EnvironmentSource `json:"-"`
}

func DefaultConfig() *EnvironmentConfig {
	return &EnvironmentConfig{
		Resolution: DefaultResolution,
		UpdateMode: UpdateOnChanged,
	}
}

func (cfg *EnvironmentConfig) Validate() error {
	if !cfg.Resolution.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedResolution, cfg.Resolution)
	}
	if cfg.UpdateMode < UpdateOnChanged || cfg.UpdateMode > UpdateRealtime {
		return fmt.Errorf("invalid update mode %d", int(cfg.UpdateMode))
	}
	if cfg.UpdateMode == UpdateRealtime && !(cfg.UpdatePeriod > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidUpdatePeriod, cfg.UpdatePeriod)
	}
	if cfg.Override != nil && cfg.Override.Desc().Dimension != libgpu.DimensionCube {
		return fmt.Errorf("override %q is not a cube map", cfg.Override.Desc().Label)
	}
	return nil
}

// Hash values with a special meaning. Hash never returns either of them.
const (
	// HashNone marks that the last applied environment was "nothing".
	HashNone = uint64(0)
	// HashUnset marks that no environment was applied since the last settings swap.
	HashUnset = uint64(math.MaxUint64)
)

// Hash is a 64 bit FNV-1a digest of everything that changes the rendered environment.
// Update mode and period only change when it is rendered and are not part of it.
func (cfg *EnvironmentConfig) Hash() uint64 {
	h := newHasher()
	h.u64(uint64(cfg.Resolution))
	h.bool(cfg.UseMIS)
	if cfg.Override != nil {
		h.id(cfg.Override.ID())
	} else {
		h.id(uuid.Nil)
	}
	if cfg.Source != nil {
		h.u64(cfg.Source.Hash())
	}
	return h.sum()
}

type hasher struct {
	h   hash.Hash64
	buf [8]byte
}

func newHasher() *hasher {
	return &hasher{h: fnv.New64a()}
}

func (h *hasher) u64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	h.h.Write(h.buf[:])
}

func (h *hasher) f32(v float32) {
	binary.LittleEndian.PutUint32(h.buf[:4], math.Float32bits(v))
	h.h.Write(h.buf[:4])
}

func (h *hasher) bool(v bool) {
	h.buf[0] = 0
	if v {
		h.buf[0] = 1
	}
	h.h.Write(h.buf[:1])
}

func (h *hasher) id(id uuid.UUID) {
	h.h.Write(id[:])
}

// sum folds the sentinel values onto their neighbours.
func (h *hasher) sum() uint64 {
	switch v := h.h.Sum64(); v {
	case HashNone:
		return 1
	case HashUnset:
		return HashUnset - 1
	default:
		return v
	}
}
