package wttr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// MockNotice is attached to mock raw JSON so consumers can spot it
const MockNotice = "This is mock data. The weather service was not contacted or did not answer."

const mockDefaultLocation = "Mock City"

type mockCondition struct {
	desc string
	code string
}

var mockConditions = []mockCondition{
	{"Sunny", "113"},
	{"Partly cloudy", "116"},
	{"Cloudy", "119"},
	{"Overcast", "122"},
	{"Mist", "143"},
	{"Light rain", "296"},
	{"Moderate rain", "302"},
	{"Light snow", "326"},
	{"Thundery outbreaks possible", "200"},
}

var mockCompass = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

var mockMoonPhases = []string{"New Moon", "Waxing Crescent", "First Quarter", "Waxing Gibbous", "Full Moon", "Waning Gibbous", "Last Quarter", "Waning Crescent"}

// mockSeed derives the values of a mock from the request, so the same
// request always produces the same data.
type mockSeed uint64

func newMockSeed(req Request) mockSeed {
	key := strings.ToLower(req.Location)
	if req.IsMoon {
		key = req.moonSegment()
	}
	return mockSeed(xxhash.Sum64String(key))
}

// pick returns a value in [0, n) taken from a different slice of the hash per slot
func (s mockSeed) pick(slot uint, n int) int {
	v := uint64(s)>>(slot*5%59) ^ uint64(s)*uint64(slot+1)
	return int(v % uint64(n))
}

func mockPayload(req Request, now time.Time) Payload {
	switch req.Format {
	case FormatRawJSON:
		return mockRawData(req, now)
	case FormatText:
		return Text(mockText(req, now))
	case FormatPNG:
		return Image(mockImage(req))
	default:
		return mockWeather(req, now)
	}
}

func mockLocationName(req Request) string {
	if req.Location == "" {
		return mockDefaultLocation
	}
	return strings.ReplaceAll(req.Location, "+", " ")
}

func celsiusToF(c int) string {
	return strconv.Itoa(c*9/5 + 32)
}

func mockWeather(req Request, now time.Time) *WeatherResponse {
	seed := newMockSeed(req)
	cond := mockConditions[seed.pick(1, len(mockConditions))]
	tempC := seed.pick(2, 35) - 5
	humidity := 30 + seed.pick(3, 60)
	windKmph := 2 + seed.pick(4, 38)
	dirDeg := seed.pick(5, 360)
	name := mockLocationName(req)

	current := CurrentCondition{
		FeelsLikeC:       strconv.Itoa(tempC - 2),
		FeelsLikeF:       celsiusToF(tempC - 2),
		CloudCover:       strconv.Itoa(seed.pick(6, 101)),
		Humidity:         strconv.Itoa(humidity),
		LocalObsDateTime: now.Format("2006-01-02 03:04 PM"),
		ObservationTime:  now.UTC().Format("03:04 PM"),
		PrecipInches:     "0.0",
		PrecipMM:         "0.0",
		Pressure:         strconv.Itoa(995 + seed.pick(7, 30)),
		PressureInches:   "30",
		TempC:            strconv.Itoa(tempC),
		TempF:            celsiusToF(tempC),
		UVIndex:          strconv.Itoa(seed.pick(8, 11)),
		Visibility:       "10",
		VisibilityMiles:  "6",
		WeatherCode:      cond.code,
		WeatherDesc:      []Value{{cond.desc}},
		WeatherIconURL:   []Value{{""}},
		Winddir16Point:   mockCompass[dirDeg*16/360],
		WinddirDegree:    strconv.Itoa(dirDeg),
		WindspeedKmph:    strconv.Itoa(windKmph),
		WindspeedMiles:   strconv.Itoa(windKmph * 5 / 8),
	}

	days := make([]DailyForecast, 3)
	for i := range days {
		days[i] = mockDay(seed, i, tempC, now.AddDate(0, 0, i))
	}

	return &WeatherResponse{
		CurrentCondition: []CurrentCondition{current},
		NearestArea: []NearestArea{{
			AreaName:   []Value{{name}},
			Country:    []Value{{"Mockland"}},
			Latitude:   fmt.Sprintf("%.3f", float64(seed.pick(9, 18000))/100-90),
			Longitude:  fmt.Sprintf("%.3f", float64(seed.pick(10, 36000))/100-180),
			Population: strconv.Itoa(1000 * (1 + seed.pick(11, 5000))),
			Region:     []Value{{"Mock Region"}},
			WeatherURL: []Value{{""}},
		}},
		Request: []RequestInfo{{Query: name, Type: "City"}},
		Weather: days,
	}
}

func mockDay(seed mockSeed, day, baseC int, date time.Time) DailyForecast {
	slot := uint(12 + day*8)
	maxC := baseC + 2 + seed.pick(slot, 5)
	minC := baseC - 3 - seed.pick(slot+1, 5)
	avgC := (maxC + minC) / 2

	hourly := make([]HourlyForecast, 8)
	for h := range hourly {
		hourly[h] = mockHour(seed, slot+2+uint(h), h, minC, maxC)
	}

	phase := seed.pick(slot+3, len(mockMoonPhases))
	return DailyForecast{
		Astronomy: []Astronomy{{
			MoonIllumination: strconv.Itoa(seed.pick(slot+4, 101)),
			MoonPhase:        mockMoonPhases[phase],
			Moonrise:         "08:12 PM",
			Moonset:          "06:47 AM",
			Sunrise:          "06:30 AM",
			Sunset:           "07:45 PM",
		}},
		AvgTempC:    strconv.Itoa(avgC),
		AvgTempF:    celsiusToF(avgC),
		Date:        date.Format(moonDateLayout),
		Hourly:      hourly,
		MaxTempC:    strconv.Itoa(maxC),
		MaxTempF:    celsiusToF(maxC),
		MinTempC:    strconv.Itoa(minC),
		MinTempF:    celsiusToF(minC),
		SunHour:     strconv.Itoa(4+seed.pick(slot+5, 9)) + ".0",
		TotalSnowCM: "0.0",
		UVIndex:     strconv.Itoa(seed.pick(slot+6, 11)),
	}
}

func mockHour(seed mockSeed, slot uint, h, minC, maxC int) HourlyForecast {
	cond := mockConditions[seed.pick(slot, len(mockConditions))]
	tempC := minC + seed.pick(slot+1, maxC-minC+1)
	windKmph := 2 + seed.pick(slot+2, 30)
	dirDeg := seed.pick(slot+3, 360)
	rain := seed.pick(slot+4, 101)

	return HourlyForecast{
		DewPointC:        strconv.Itoa(tempC - 6),
		DewPointF:        celsiusToF(tempC - 6),
		FeelsLikeC:       strconv.Itoa(tempC - 1),
		FeelsLikeF:       celsiusToF(tempC - 1),
		HeatIndexC:       strconv.Itoa(tempC),
		HeatIndexF:       celsiusToF(tempC),
		WindChillC:       strconv.Itoa(tempC - 2),
		WindChillF:       celsiusToF(tempC - 2),
		WindGustKmph:     strconv.Itoa(windKmph + 8),
		WindGustMiles:    strconv.Itoa((windKmph + 8) * 5 / 8),
		ChanceOfFog:      "0",
		ChanceOfFrost:    "0",
		ChanceOfHighTemp: "0",
		ChanceOfOvercast: strconv.Itoa(seed.pick(slot+5, 101)),
		ChanceOfRain:     strconv.Itoa(rain),
		ChanceOfRemDry:   strconv.Itoa(100 - rain),
		ChanceOfSnow:     "0",
		ChanceOfSunshine: strconv.Itoa(100 - rain),
		ChanceOfThunder:  "0",
		ChanceOfWindy:    "0",
		CloudCover:       strconv.Itoa(seed.pick(slot+6, 101)),
		Humidity:         strconv.Itoa(30 + seed.pick(slot+7, 60)),
		PrecipInches:     "0.0",
		PrecipMM:         "0.0",
		Pressure:         "1015",
		PressureInches:   "30",
		TempC:            strconv.Itoa(tempC),
		TempF:            celsiusToF(tempC),
		Time:             strconv.Itoa(h * 300),
		UVIndex:          strconv.Itoa(seed.pick(slot+8, 11)),
		Visibility:       "10",
		VisibilityMiles:  "6",
		WeatherCode:      cond.code,
		WeatherDesc:      []Value{{cond.desc}},
		WeatherIconURL:   []Value{{""}},
		Winddir16Point:   mockCompass[dirDeg*16/360],
		WinddirDegree:    strconv.Itoa(dirDeg),
		WindspeedKmph:    strconv.Itoa(windKmph),
		WindspeedMiles:   strconv.Itoa(windKmph * 5 / 8),
	}
}

func mockRawData(req Request, now time.Time) RawData {
	raw := RawData{}
	// the mock record always marshals; keep the notice even if it did not
	if b, err := json.Marshal(mockWeather(req, now)); err == nil {
		_ = json.Unmarshal(b, &raw)
	}
	raw["mock_data_notice"] = MockNotice
	return raw
}

func mockText(req Request, now time.Time) string {
	if req.IsMoon {
		return mockMoonText(req, now)
	}

	w := mockWeather(req, now)
	cur := w.CurrentCondition[0]
	temp, feels, speed := cur.TempC+" °C", cur.FeelsLikeC+" °C", cur.WindspeedKmph+" km/h"
	switch req.Units {
	case UnitsUSCS:
		temp, feels, speed = cur.TempF+" °F", cur.FeelsLikeF+" °F", cur.WindspeedMiles+" mph"
	case UnitsMetricMS:
		kmph, _ := strconv.Atoi(cur.WindspeedKmph)
		speed = strconv.Itoa(kmph*10/36) + " m/s"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weather report: %s (mock data)\n\n", mockLocationName(req))
	fmt.Fprintf(&b, "  %s\n", cur.Description())
	fmt.Fprintf(&b, "  %s (feels like %s)\n", temp, feels)
	fmt.Fprintf(&b, "  %s %s\n", cur.Winddir16Point, speed)
	fmt.Fprintf(&b, "  Humidity %s%%\n", cur.Humidity)
	fmt.Fprintf(&b, "  %s mm\n\n", cur.PrecipMM)
	for _, day := range w.Weather {
		fmt.Fprintf(&b, "  %s  %s..%s °C  %s\n", day.Date, day.MinTempC, day.MaxTempC, firstValue(day.Hourly[4].WeatherDesc))
	}
	b.WriteString("\n" + MockNotice + "\n")
	return b.String()
}

func mockMoonText(req Request, now time.Time) string {
	seed := newMockSeed(req)
	date := req.MoonDate
	if date == "" {
		date = now.Format(moonDateLayout)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Moon phase for %s (mock data)\n\n", date)
	fmt.Fprintf(&b, "  %s\n", mockMoonPhases[seed.pick(1, len(mockMoonPhases))])
	fmt.Fprintf(&b, "  Illumination %d%%\n", seed.pick(2, 101))
	b.WriteString("\n" + MockNotice + "\n")
	return b.String()
}

const (
	mockImageWidth  = 120
	mockImageHeight = 60
)

// fallbackPNG is a 1x1 transparent PNG used if encoding ever fails
var fallbackPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// mockImage draws a sky gradient tinted by the request seed
func mockImage(req Request) []byte {
	seed := newMockSeed(req)
	top := color.RGBA{R: uint8(40 + seed.pick(1, 60)), G: uint8(90 + seed.pick(2, 80)), B: uint8(160 + seed.pick(3, 95)), A: 255}
	bottom := color.RGBA{R: 230, G: 230, B: uint8(200 + seed.pick(4, 55)), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, mockImageWidth, mockImageHeight))
	for y := 0; y < mockImageHeight; y++ {
		c := color.RGBA{
			R: blend(top.R, bottom.R, y, mockImageHeight),
			G: blend(top.G, bottom.G, y, mockImageHeight),
			B: blend(top.B, bottom.B, y, mockImageHeight),
			A: 255,
		}
		for x := 0; x < mockImageWidth; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return bytes.Clone(fallbackPNG)
	}
	return buf.Bytes()
}

func blend(a, b uint8, step, steps int) uint8 {
	return uint8((int(a)*(steps-step) + int(b)*step) / steps)
}
