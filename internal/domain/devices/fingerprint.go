package devices

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"tiertrainer-backend/internal/infra/kvstore"
)

// StorageKey is the persistent-storage key holding the cached fingerprint.
const StorageKey = "device_fingerprint"

// Signals are the browser/device properties folded into a fingerprint.
type Signals struct {
	ScreenResolution    string `json:"screenResolution"`
	Timezone            string `json:"timezone"`
	Language            string `json:"language"`
	Platform            string `json:"platform"`
	UserAgent           string `json:"userAgent"`
	HardwareConcurrency int    `json:"hardwareConcurrency"`
	DeviceMemory        int    `json:"deviceMemory"`
	MaxTouchPoints      int    `json:"maxTouchPoints"`
	Canvas              string `json:"canvas"`
	WebGLRenderer       string `json:"webglRenderer"`
}

// Fingerprint is the hex SHA-256 of the "|"-joined signals. It is a stable
// pseudo-identifier, not a security control: browser updates change it.
func (s Signals) Fingerprint() string {
	joined := strings.Join([]string{
		s.ScreenResolution,
		s.Timezone,
		s.Language,
		s.Platform,
		s.UserAgent,
		strconv.Itoa(s.HardwareConcurrency),
		strconv.Itoa(s.DeviceMemory),
		strconv.Itoa(s.MaxTouchPoints),
		s.Canvas,
		s.WebGLRenderer,
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// CanvasHash is the multiply-and-add (x31) string hash of a rendered canvas
// data URL, wrapped to int32 and printed in base 36 without sign. Only
// stability matters.
func CanvasHash(dataURL string) string {
	var h int32
	for _, r := range dataURL {
		h = (h << 5) - h + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}

// GetOrCreateFingerprint returns the cached fingerprint when present, else
// computes it from signals and caches it.
func GetOrCreateFingerprint(store kvstore.Store, signals Signals) string {
	if cached, ok := store.Get(StorageKey); ok && cached != "" {
		return cached
	}
	fp := signals.Fingerprint()
	store.Set(StorageKey, fp)
	return fp
}

// ValidFingerprint accepts lowercase/uppercase hex SHA-256 digests only.
func ValidFingerprint(fp string) bool {
	if len(fp) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(fp)
	return err == nil
}
