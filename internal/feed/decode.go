// Package feed is the ingestion boundary for alert data. It accepts the loose
// JSON emitted by the mobile app and the public feed, where field names vary in
// case ("LOCATION" vs "location", "Description" vs "description"), and turns it
// into validated aggregate.Alert values with stable IDs.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/02loveslollipop/hazard-alert-map/internal/aggregate"
)

// alertNamespace seeds deterministic IDs for alerts that arrive without one.
var alertNamespace = uuid.MustParse("6f1c2c3e-4f57-4d1e-9a51-3b8f0f6a9d21")

// Decode reads either a JSON array of alerts or an object with an "alerts"
// array. The whole batch is rejected on the first malformed alert.
func Decode(r io.Reader) ([]aggregate.Alert, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read alerts")
	}

	items, err := splitItems(body)
	if err != nil {
		return nil, err
	}

	alerts := make([]aggregate.Alert, 0, len(items))
	for i, item := range items {
		a, err := decodeItem(i, item)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	if err := aggregate.Validate(alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// DecodeOne decodes and validates a single alert object.
func DecodeOne(r io.Reader) (aggregate.Alert, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return aggregate.Alert{}, errors.Wrap(err, "read alert")
	}
	a, err := decodeItem(0, body)
	if err != nil {
		return aggregate.Alert{}, err
	}
	if err := aggregate.Validate([]aggregate.Alert{a}); err != nil {
		return aggregate.Alert{}, err
	}
	return a, nil
}

// AssignID fills in a deterministic ID derived from the alert's content when
// the source did not provide one.
func AssignID(a aggregate.Alert) aggregate.Alert {
	if a.ID != "" {
		return a
	}
	var b strings.Builder
	b.WriteString(a.Type)
	b.WriteByte('|')
	b.WriteString(a.Name)
	if a.Location != nil {
		fmt.Fprintf(&b, "|%.6f,%.6f", a.Location.Latitude, a.Location.Longitude)
	}
	if a.Timestamp != nil {
		b.WriteString("|" + a.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	a.ID = uuid.NewSHA1(alertNamespace, []byte(b.String())).String()
	return a
}

func splitItems(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errors.Wrap(err, "decode alert list")
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, errors.Wrap(err, "decode alert envelope")
	}
	for k, v := range envelope {
		if strings.EqualFold(k, "alerts") {
			var items []json.RawMessage
			if err := json.Unmarshal(v, &items); err != nil {
				return nil, errors.Wrap(err, "decode alert list")
			}
			return items, nil
		}
	}
	return nil, errors.New("decode alert envelope: missing \"alerts\" array")
}

// decodeItem normalizes one raw object. Keys are matched case-insensitively.
func decodeItem(i int, raw json.RawMessage) (aggregate.Alert, error) {
	fail := func(field, reason string) error {
		return &aggregate.ValidationError{Index: i, Field: field, Reason: reason}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return aggregate.Alert{}, fail("alert", "must be a JSON object")
	}
	fields := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		fields[strings.ToLower(k)] = v
	}

	var a aggregate.Alert
	a.ID = stringField(fields, "id")
	a.Name = stringField(fields, "name")
	a.Description = stringField(fields, "description")
	a.Type = stringField(fields, "type")
	a.OtherInfo = stringField(fields, "otherinfo")

	loc, err := decodeLocation(fields["location"])
	if err != nil {
		return aggregate.Alert{}, fail("location", err.Error())
	}
	a.Location = loc

	if v, ok := fields["severityindex"]; ok && !isNull(v) {
		sev, err := number(v)
		if err != nil {
			return aggregate.Alert{}, fail("severityIndex", err.Error())
		}
		a.SeverityIndex = &sev
	}

	if v, ok := fields["timestamp"]; ok && !isNull(v) {
		ts, err := timestamp(v)
		if err != nil {
			return aggregate.Alert{}, fail("timestamp", err.Error())
		}
		a.Timestamp = &ts
	}

	return a, nil
}

func decodeLocation(raw json.RawMessage) (*aggregate.Location, error) {
	if raw == nil || isNull(raw) {
		return nil, errors.New("is required")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.New("must be an object with latitude and longitude")
	}

	var lat, lon json.RawMessage
	for k, v := range obj {
		switch strings.ToLower(k) {
		case "latitude", "lat":
			lat = v
		case "longitude", "lng", "lon":
			lon = v
		}
	}
	if lat == nil || lon == nil {
		return nil, errors.New("must include latitude and longitude")
	}

	latV, err := number(lat)
	if err != nil {
		return nil, errors.Wrap(err, "latitude")
	}
	lonV, err := number(lon)
	if err != nil {
		return nil, errors.Wrap(err, "longitude")
	}
	return &aggregate.Location{Latitude: latV, Longitude: lonV}, nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Non-string display values are passed through as their JSON text.
	return string(bytes.TrimSpace(raw))
}

// number accepts a JSON number or a numeric string.
func number(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, errors.New("must be a number")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Errorf("must be a number, got %q", s)
	}
	return f, nil
}

// timestamp accepts RFC 3339 strings or epoch milliseconds.
func timestamp(raw json.RawMessage) (time.Time, error) {
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, errors.New("must be a string or epoch milliseconds")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("is empty")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid RFC 3339 time %q", s)
	}
	return t.UTC(), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
