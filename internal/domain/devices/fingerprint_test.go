package devices

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tiertrainer-backend/internal/infra/kvstore"
)

func sampleSignals() Signals {
	return Signals{
		ScreenResolution:    "1920x1080",
		Timezone:            "Europe/Berlin",
		Language:            "de-DE",
		Platform:            "MacIntel",
		UserAgent:           "Mozilla/5.0",
		HardwareConcurrency: 8,
		DeviceMemory:        16,
		MaxTouchPoints:      0,
		Canvas:              CanvasHash("data:image/png;base64,iVBORw0KGgo="),
		WebGLRenderer:       "Apple M1",
	}
}

func TestFingerprintStableAndHex(t *testing.T) {
	a := sampleSignals().Fingerprint()
	b := sampleSignals().Fingerprint()

	assert.Equal(t, a, b)
	assert.True(t, ValidFingerprint(a))

	other := sampleSignals()
	other.Timezone = "Europe/Vienna"
	assert.NotEqual(t, a, other.Fingerprint())
}

func TestCanvasHash(t *testing.T) {
	assert.Equal(t, "0", CanvasHash(""))
	assert.Equal(t, "2p", CanvasHash("a"))
	assert.Equal(t, "2e9", CanvasHash("ab"))
	assert.NotContains(t, CanvasHash("data:image/png;base64,"+string(make([]byte, 512))), "-")
}

func TestGetOrCreateFingerprint(t *testing.T) {
	store := kvstore.NewMapStore()

	first := GetOrCreateFingerprint(store, sampleSignals())
	cached, ok := store.Get(StorageKey)
	assert.True(t, ok)
	assert.Equal(t, first, cached)

	changed := sampleSignals()
	changed.UserAgent = "Mozilla/6.0"
	assert.Equal(t, first, GetOrCreateFingerprint(store, changed), "cached value wins")

	store.Remove(StorageKey)
	assert.NotEqual(t, first, GetOrCreateFingerprint(store, changed))
}

func TestValidFingerprint(t *testing.T) {
	assert.False(t, ValidFingerprint(""))
	assert.False(t, ValidFingerprint("abc"))
	assert.False(t, ValidFingerprint(string(make([]byte, 64))))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", MaskEmail("anna@example.com"))
	assert.Equal(t, "***", MaskEmail("broken"))
}
