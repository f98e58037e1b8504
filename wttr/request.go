package wttr

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/briangreenhill/fetchweather/cache"
)

// Format selects the representation returned by GetWeather
type Format string

const (
	FormatJSON    Format = "json"     // validated *WeatherResponse
	FormatRawJSON Format = "raw_json" // untyped RawData
	FormatText    Format = "text"     // plain-text report
	FormatPNG     Format = "png"      // image bytes
)

// Formats lists every supported format
var Formats = []Format{FormatJSON, FormatRawJSON, FormatText, FormatPNG}

// ParseFormat maps a user supplied name to a Format. Empty means FormatJSON.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatJSON, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// structured reports whether the format is decoded from the upstream j1 JSON
func (f Format) structured() bool {
	return f == FormatJSON || f == FormatRawJSON
}

// family is the unit of cache sharing: both JSON formats render from the
// same upstream body, text and png are native upstream representations.
func (f Format) family() string {
	if f.structured() {
		return string(FormatJSON)
	}
	return string(f)
}

// ContentType is the MIME type of the rendered payload
func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatPNG:
		return "image/png"
	default:
		return "application/json"
	}
}

// Units selects the unit system used by the upstream
type Units string

const (
	UnitsDefault  Units = ""  // decided by the location
	UnitsMetric   Units = "m" // SI
	UnitsUSCS     Units = "u" // United States customary
	UnitsMetricMS Units = "M" // SI with wind speed in m/s
)

// ParseUnits accepts the upstream letters or their long names
func ParseUnits(s string) (Units, error) {
	switch strings.TrimSpace(s) {
	case "":
		return UnitsDefault, nil
	case "m", "metric":
		return UnitsMetric, nil
	case "u", "uscs", "imperial":
		return UnitsUSCS, nil
	case "M", "metric-ms":
		return UnitsMetricMS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUnits, s)
}

// moonDateLayout is the date format accepted for moon phase requests
const moonDateLayout = "2006-01-02"

// Request holds every parameter of a weather lookup. The zero value asks
// for the caller's location as a structured record.
type Request struct {
	Location     string
	Format       Format
	ViewOptions  string
	Units        Units
	Lang         string
	IsMoon       bool
	MoonDate     string
	WithMetadata bool
}

// RequestOption configures a Request
type RequestOption func(*Request)

// NewRequest builds a Request from a location and options. Options set
// independent fields, so the order they are given in does not matter.
func NewRequest(location string, opts ...RequestOption) Request {
	r := Request{Location: location}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func WithFormat(f Format) RequestOption {
	return func(r *Request) { r.Format = f }
}

func WithViewOptions(v string) RequestOption {
	return func(r *Request) { r.ViewOptions = v }
}

func WithUnits(u Units) RequestOption {
	return func(r *Request) { r.Units = u }
}

func WithLang(lang string) RequestOption {
	return func(r *Request) { r.Lang = lang }
}

// WithMoon requests the moon phase; date may be empty for today
func WithMoon(date string) RequestOption {
	return func(r *Request) { r.IsMoon, r.MoonDate = true, date }
}

func WithMetadata() RequestOption {
	return func(r *Request) { r.WithMetadata = true }
}

// normalize validates the request and puts every field in canonical form.
// Moon requests default to text and have no structured representation.
func (r Request) normalize() (Request, error) {
	format := r.Format
	if r.IsMoon && strings.TrimSpace(string(format)) == "" {
		format = FormatText
	}
	f, err := ParseFormat(string(format))
	if err != nil {
		return r, err
	}
	if r.IsMoon && f.structured() {
		return r, fmt.Errorf("%w: %q is not available for moon phases", ErrInvalidFormat, f)
	}
	u, err := ParseUnits(string(r.Units))
	if err != nil {
		return r, err
	}
	view, err := canonicalViewOptions(r.ViewOptions)
	if err != nil {
		return r, err
	}

	n := r
	n.Format = f
	n.Units = u
	n.Location = canonicalLocation(r.Location)
	n.Lang = strings.ToLower(strings.TrimSpace(r.Lang))
	n.ViewOptions = view
	n.MoonDate = strings.TrimSpace(r.MoonDate)

	if !n.IsMoon {
		n.MoonDate = ""
	} else if n.MoonDate != "" {
		if _, err := time.Parse(moonDateLayout, n.MoonDate); err != nil {
			return r, fmt.Errorf("%w: %q", ErrInvalidMoonDate, r.MoonDate)
		}
	}
	return n, nil
}

// canonicalLocation treats "+" as a space, the way the location is sent
// upstream, so "New York" and "New+York" are one location.
func canonicalLocation(loc string) string {
	return strings.TrimSpace(strings.ReplaceAll(loc, "+", " "))
}

// canonicalViewOptions drops whitespace and duplicates and sorts the flags,
// so "q0", "0q" and "0 q q" are the same view. Flags are single ASCII
// letters or digits since they are sent unescaped in the query.
func canonicalViewOptions(v string) (string, error) {
	seen := make(map[rune]bool)
	var flags []rune
	for _, ch := range v {
		if ch == ' ' || ch == '\t' || seen[ch] {
			continue
		}
		if !isFlag(ch) {
			return "", fmt.Errorf("%w: %q", ErrInvalidViewOptions, v)
		}
		seen[ch] = true
		flags = append(flags, ch)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
	return string(flags), nil
}

func isFlag(ch rune) bool {
	return ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

// Fingerprint returns the cache key for the request. WithMetadata is not
// part of it because it does not change the underlying data.
func (r Request) Fingerprint() (string, error) {
	n, err := r.normalize()
	if err != nil {
		return "", err
	}
	return n.fingerprint(), nil
}

func (r Request) fingerprint() string {
	params := map[string]string{
		"format": r.Format.family(),
		"view":   r.ViewOptions,
		"units":  string(r.Units),
		"lang":   r.Lang,
	}
	if r.IsMoon {
		params["moon"] = r.moonSegment()
	} else {
		params["location"] = r.Location
	}
	return cache.KeyFor("weather", params)
}

func (r Request) moonSegment() string {
	if r.MoonDate != "" {
		return "moon@" + r.MoonDate
	}
	return "moon"
}

// pathSegment is the first path element sent upstream
func (r Request) pathSegment() string {
	var seg string
	if r.IsMoon {
		seg = r.moonSegment()
	} else {
		seg = strings.ReplaceAll(r.Location, " ", "+")
	}
	if r.Format == FormatPNG {
		seg += ".png"
	}
	return seg
}

// buildURL renders the upstream address: location segment, then the units
// and view flags, then format and lang as key=value parameters.
func (r Request) buildURL(base *url.URL) string {
	u := *base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + r.pathSegment()
	u.RawPath = ""

	q := url.Values{}
	if r.Format.structured() {
		q.Set("format", "j1")
	}
	if r.Lang != "" {
		q.Set("lang", r.Lang)
	}

	raw := string(r.Units) + r.ViewOptions
	if encoded := q.Encode(); encoded != "" {
		if raw != "" {
			raw += "&"
		}
		raw += encoded
	}
	u.RawQuery = raw
	u.Fragment = ""
	return u.String()
}
