package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"DailyReleases/internal/infrastructure/httpcache"
)

// getJSON fetches req through the cache and decodes a 2xx body into v.
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

// epochSeconds decodes a unix timestamp given either as a JSON number or a string.
type epochSeconds struct {
	time.Time
}

func (e *epochSeconds) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if raw == "" || raw == "null" {
		e.Time = time.Time{}
		return nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		var text string
		if jsonErr := json.Unmarshal(data, &text); jsonErr == nil {
			if parsed, parseErr := time.Parse(time.RFC3339, text); parseErr == nil {
				e.Time = parsed
				return nil
			}
		}
		return fmt.Errorf("parse timestamp %s: %w", data, err)
	}
	whole := int64(seconds)
	e.Time = time.Unix(whole, int64((seconds-float64(whole))*float64(time.Second)))
	return nil
}
