package wttr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var errNotObject = errors.New("body is not a JSON object")

// render converts a raw upstream body into the payload for format. Text and
// png are native upstream representations and pass through unchanged.
func render(body []byte, format Format) (Payload, error) {
	switch format {
	case FormatJSON:
		return decodeWeather(body)
	case FormatRawJSON:
		var raw RawData
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, errNotObject
		}
		return raw, nil
	case FormatText:
		return Text(body), nil
	case FormatPNG:
		return Image(bytes.Clone(body)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
}

func decodeWeather(body []byte) (*WeatherResponse, error) {
	var w WeatherResponse
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}
