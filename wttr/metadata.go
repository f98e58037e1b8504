package wttr

import "time"

// Source is the primary provenance of a payload
type Source string

const (
	SourceLive   Source = "live"
	SourceCached Source = "cached"
	SourceMock   Source = "mock"
)

// ResponseMetadata describes where a payload came from. IsRealData stays
// true on a cache hit because the cached body came from a live fetch.
type ResponseMetadata struct {
	IsRealData bool `json:"is_real_data"`
	IsCached   bool `json:"is_cached"`
	IsMock     bool `json:"is_mock"`

	StatusCode   int    `json:"status_code,omitempty"` // 0 when no response was received
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// Source reports which of live, cached or mock the payload is
func (m *ResponseMetadata) Source() Source {
	switch {
	case m.IsMock:
		return SourceMock
	case m.IsCached:
		return SourceCached
	default:
		return SourceLive
	}
}

// HasError reports whether an upstream failure caused a fallback
func (m *ResponseMetadata) HasError() bool {
	return m.ErrorType != ""
}
