package stores

import (
	"bytes"
	"context"
	"fmt"

	"DailyReleases/internal/infrastructure/httpcache"
)

// Provider searches one storefront catalog for a game title.
type Provider interface {
	Name() string
	// Search returns the store page of the closest catalog match. found is false
	// when the catalog has nothing close enough.
	Search(ctx context.Context, title string) (url string, found bool, err error)
}

// Details is what a storefront knows about a linked product.
type Details struct {
	Title     string
	Score     float64
	Reviews   int
	IsDLC     bool
	DRMNotice string
}

// Detailer looks up product details behind a store link.
type Detailer interface {
	Name() string
	// Details returns ok=false for links the store exposes no details for.
	Details(ctx context.Context, link string) (details Details, ok bool, err error)
}

func getJSON(ctx context.Context, getter httpcache.Getter, req httpcache.Request, v any) error {
	resp, err := getter.Get(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("unexpected status %d from %s", resp.Status, req.URL)
	}
	return resp.JSON(v)
}

// flexibleID accepts ids encoded as JSON numbers or strings.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	*f = flexibleID(bytes.Trim(data, `"`))
	return nil
}
