package wttr

import (
	"encoding/json"
	"fmt"
)

// Payload is one of *WeatherResponse, RawData, Text or Image. The variant
// depends only on the requested Format, never on where the data came from.
type Payload interface {
	Format() Format
	isPayload()
}

// RawData is the decoded j1 document without schema validation
type RawData map[string]any

// Text is a plain-text weather report
type Text string

// Image is a PNG weather report
type Image []byte

func (*WeatherResponse) Format() Format { return FormatJSON }
func (RawData) Format() Format          { return FormatRawJSON }
func (Text) Format() Format             { return FormatText }
func (Image) Format() Format            { return FormatPNG }

func (*WeatherResponse) isPayload() {}
func (RawData) isPayload()          {}
func (Text) isPayload()             {}
func (Image) isPayload()            {}

// Result is what GetWeather returns. Metadata is nil unless the request
// asked for it.
type Result struct {
	Payload  Payload
	Metadata *ResponseMetadata
}

// Format returns the format of the payload
func (r *Result) Format() Format {
	return r.Payload.Format()
}

// Weather returns the structured record for FormatJSON results
func (r *Result) Weather() (*WeatherResponse, bool) {
	w, ok := r.Payload.(*WeatherResponse)
	return w, ok
}

// Raw returns the untyped document for FormatRawJSON results
func (r *Result) Raw() (RawData, bool) {
	raw, ok := r.Payload.(RawData)
	return raw, ok
}

// Text returns the report for FormatText results
func (r *Result) Text() (string, bool) {
	t, ok := r.Payload.(Text)
	return string(t), ok
}

// Image returns the PNG bytes for FormatPNG results
func (r *Result) Image() ([]byte, bool) {
	img, ok := r.Payload.(Image)
	return []byte(img), ok
}

// MarshalPayload serializes a payload in its natural wire form: JSON for
// the structured formats, the raw bytes otherwise.
func MarshalPayload(p Payload) ([]byte, error) {
	switch v := p.(type) {
	case *WeatherResponse, RawData:
		return json.Marshal(v)
	case Text:
		return []byte(v), nil
	case Image:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unknown payload type %T", p)
	}
}
