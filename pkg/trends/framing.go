package trends

import (
	"encoding/json"
	"fmt"
)

// The provider prepends a fixed non-JSON guard to every API body so that the
// response cannot be evaluated as a script by a cross-site page. The guard
// differs per endpoint and is always present; it is cut by length, never
// searched for.
const (
	ExploreGuard    = ")]}'"
	WidgetDataGuard = ")]}',"
)

var (
	explorePrefixLen    = len(ExploreGuard)
	widgetDataPrefixLen = len(WidgetDataGuard)
)

func stripPrefix(body []byte, n int) ([]byte, error) {
	if len(body) < n {
		return nil, fmt.Errorf("%w: %d < %d bytes", errShortBody, len(body), n)
	}
	return body[n:], nil
}

// decodeGuarded strips n guard bytes and unmarshals the rest into v.
func decodeGuarded(body []byte, n int, v interface{}) error {
	payload, err := stripPrefix(body, n)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
