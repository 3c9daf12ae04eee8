package feed

import (
	"context"
	"net/http"
	"os"

	"github.com/pkg/errors"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
)

// Fetch retrieves and decodes the alert feed at url.
func Fetch(ctx context.Context, client *http.Client, url string) ([]aggregate.Alert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request alert feed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("unexpected status %s", resp.Status)
	}

	alerts, err := Decode(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "decode alert feed")
	}
	return alerts, nil
}

// LoadFile decodes a bundled alert file.
func LoadFile(path string) ([]aggregate.Alert, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	alerts, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return alerts, nil
}
