package checkout

import (
	"strconv"
	"time"

	"tiertrainer-backend/internal/infra/kvstore"
)

// Keys written to every source, kept identical to the web client's storage keys.
const (
	KeyPending   = "pendingCheckout"
	KeyPriceType = "pendingCheckoutPriceType"
	KeyTimestamp = "pendingCheckoutTimestamp"
	KeySessionID = "pendingCheckoutSessionId"
	KeyOrigin    = "pendingCheckoutOrigin"
)

var allKeys = []string{KeyPending, KeyPriceType, KeyTimestamp, KeySessionID, KeyOrigin}

// ExpiryWindow is how long a pending checkout survives without confirmation.
const ExpiryWindow = 30 * time.Minute

type Flags struct {
	HasPendingCheckout bool      `json:"hasPendingCheckout"`
	PriceType          string    `json:"priceType,omitempty"`
	Timestamp          time.Time `json:"timestamp,omitempty"`
	SessionID          string    `json:"sessionId,omitempty"`
	Origin             string    `json:"origin,omitempty"`
	Source             string    `json:"source,omitempty"`
}

type Source struct {
	Name  string
	Store kvstore.Store
}

// Persistence writes the same flags redundantly to every source and reads them
// back in priority order, so losing one storage area does not lose the checkout.
type Persistence struct {
	sources []Source
	now     func() time.Time
}

func NewPersistence(sources ...Source) *Persistence {
	return &Persistence{sources: sources, now: time.Now}
}

func (p *Persistence) WithClock(now func() time.Time) *Persistence {
	p.now = now
	return p
}

func (p *Persistence) Set(priceType, sessionID, origin string) Flags {
	ts := p.now()
	values := map[string]string{
		KeyPending:   "true",
		KeyPriceType: priceType,
		KeyTimestamp: strconv.FormatInt(ts.UnixMilli(), 10),
		KeySessionID: sessionID,
		KeyOrigin:    origin,
	}
	for _, src := range p.sources {
		for _, k := range allKeys {
			src.Store.Set(k, values[k])
		}
	}
	return Flags{
		HasPendingCheckout: true,
		PriceType:          priceType,
		Timestamp:          time.UnixMilli(ts.UnixMilli()),
		SessionID:          sessionID,
		Origin:             origin,
	}
}

// Get returns the first source holding the pending flag. An expired or
// unreadable timestamp clears every source.
func (p *Persistence) Get() Flags {
	for _, src := range p.sources {
		pending, ok := src.Store.Get(KeyPending)
		if !ok || pending != "true" {
			continue
		}

		rawTS, _ := src.Store.Get(KeyTimestamp)
		ms, err := strconv.ParseInt(rawTS, 10, 64)
		if err != nil {
			p.Clear()
			return Flags{}
		}
		ts := time.UnixMilli(ms)
		if p.now().Sub(ts) > ExpiryWindow {
			p.Clear()
			return Flags{}
		}

		priceType, _ := src.Store.Get(KeyPriceType)
		sessionID, _ := src.Store.Get(KeySessionID)
		origin, _ := src.Store.Get(KeyOrigin)
		return Flags{
			HasPendingCheckout: true,
			PriceType:          priceType,
			Timestamp:          ts,
			SessionID:          sessionID,
			Origin:             origin,
			Source:             src.Name,
		}
	}
	return Flags{}
}

func (p *Persistence) Clear() {
	for _, src := range p.sources {
		for _, k := range allKeys {
			src.Store.Remove(k)
		}
	}
}
