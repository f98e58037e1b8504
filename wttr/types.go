package wttr

import "errors"

// The upstream j1 JSON encodes every scalar as a string and omits fields
// inconsistently between locations; an empty string means the field was absent.

// WeatherResponse is the complete j1 document
type WeatherResponse struct {
	CurrentCondition []CurrentCondition `json:"current_condition"`
	NearestArea      []NearestArea      `json:"nearest_area"`
	Request          []RequestInfo      `json:"request"`
	Weather          []DailyForecast    `json:"weather"`
}

// Value wraps the single-field objects wttr uses for descriptions and names
type Value struct {
	Value string `json:"value"`
}

type CurrentCondition struct {
	FeelsLikeC       string  `json:"FeelsLikeC,omitempty"`
	FeelsLikeF       string  `json:"FeelsLikeF,omitempty"`
	CloudCover       string  `json:"cloudcover,omitempty"`
	Humidity         string  `json:"humidity,omitempty"`
	LocalObsDateTime string  `json:"localObsDateTime,omitempty"`
	ObservationTime  string  `json:"observation_time,omitempty"`
	PrecipInches     string  `json:"precipInches,omitempty"`
	PrecipMM         string  `json:"precipMM,omitempty"`
	Pressure         string  `json:"pressure,omitempty"`
	PressureInches   string  `json:"pressureInches,omitempty"`
	TempC            string  `json:"temp_C,omitempty"`
	TempF            string  `json:"temp_F,omitempty"`
	UVIndex          string  `json:"uvIndex,omitempty"`
	Visibility       string  `json:"visibility,omitempty"`
	VisibilityMiles  string  `json:"visibilityMiles,omitempty"`
	WeatherCode      string  `json:"weatherCode,omitempty"`
	WeatherDesc      []Value `json:"weatherDesc"`
	WeatherIconURL   []Value `json:"weatherIconUrl"`
	Winddir16Point   string  `json:"winddir16Point,omitempty"`
	WinddirDegree    string  `json:"winddirDegree,omitempty"`
	WindspeedKmph    string  `json:"windspeedKmph,omitempty"`
	WindspeedMiles   string  `json:"windspeedMiles,omitempty"`
}

type HourlyForecast struct {
	DewPointC        string  `json:"DewPointC,omitempty"`
	DewPointF        string  `json:"DewPointF,omitempty"`
	FeelsLikeC       string  `json:"FeelsLikeC,omitempty"`
	FeelsLikeF       string  `json:"FeelsLikeF,omitempty"`
	HeatIndexC       string  `json:"HeatIndexC,omitempty"`
	HeatIndexF       string  `json:"HeatIndexF,omitempty"`
	WindChillC       string  `json:"WindChillC,omitempty"`
	WindChillF       string  `json:"WindChillF,omitempty"`
	WindGustKmph     string  `json:"WindGustKmph,omitempty"`
	WindGustMiles    string  `json:"WindGustMiles,omitempty"`
	ChanceOfFog      string  `json:"chanceoffog,omitempty"`
	ChanceOfFrost    string  `json:"chanceoffrost,omitempty"`
	ChanceOfHighTemp string  `json:"chanceofhightemp,omitempty"`
	ChanceOfOvercast string  `json:"chanceofovercast,omitempty"`
	ChanceOfRain     string  `json:"chanceofrain,omitempty"`
	ChanceOfRemDry   string  `json:"chanceofremdry,omitempty"`
	ChanceOfSnow     string  `json:"chanceofsnow,omitempty"`
	ChanceOfSunshine string  `json:"chanceofsunshine,omitempty"`
	ChanceOfThunder  string  `json:"chanceofthunder,omitempty"`
	ChanceOfWindy    string  `json:"chanceofwindy,omitempty"`
	CloudCover       string  `json:"cloudcover,omitempty"`
	Humidity         string  `json:"humidity,omitempty"`
	PrecipInches     string  `json:"precipInches,omitempty"`
	PrecipMM         string  `json:"precipMM,omitempty"`
	Pressure         string  `json:"pressure,omitempty"`
	PressureInches   string  `json:"pressureInches,omitempty"`
	TempC            string  `json:"tempC,omitempty"`
	TempF            string  `json:"tempF,omitempty"`
	Time             string  `json:"time,omitempty"` // "0", "300", ... "2100"
	UVIndex          string  `json:"uvIndex,omitempty"`
	Visibility       string  `json:"visibility,omitempty"`
	VisibilityMiles  string  `json:"visibilityMiles,omitempty"`
	WeatherCode      string  `json:"weatherCode,omitempty"`
	WeatherDesc      []Value `json:"weatherDesc"`
	WeatherIconURL   []Value `json:"weatherIconUrl"`
	Winddir16Point   string  `json:"winddir16Point,omitempty"`
	WinddirDegree    string  `json:"winddirDegree,omitempty"`
	WindspeedKmph    string  `json:"windspeedKmph,omitempty"`
	WindspeedMiles   string  `json:"windspeedMiles,omitempty"`
}

type Astronomy struct {
	MoonIllumination string `json:"moon_illumination,omitempty"`
	MoonPhase        string `json:"moon_phase,omitempty"`
	Moonrise         string `json:"moonrise,omitempty"`
	Moonset          string `json:"moonset,omitempty"`
	Sunrise          string `json:"sunrise,omitempty"`
	Sunset           string `json:"sunset,omitempty"`
}

type DailyForecast struct {
	Astronomy   []Astronomy      `json:"astronomy"`
	AvgTempC    string           `json:"avgtempC,omitempty"`
	AvgTempF    string           `json:"avgtempF,omitempty"`
	Date        string           `json:"date,omitempty"` // YYYY-MM-DD
	Hourly      []HourlyForecast `json:"hourly"`
	MaxTempC    string           `json:"maxtempC,omitempty"`
	MaxTempF    string           `json:"maxtempF,omitempty"`
	MinTempC    string           `json:"mintempC,omitempty"`
	MinTempF    string           `json:"mintempF,omitempty"`
	SunHour     string           `json:"sunHour,omitempty"`
	TotalSnowCM string           `json:"totalSnow_cm,omitempty"`
	UVIndex     string           `json:"uvIndex,omitempty"`
}

type NearestArea struct {
	AreaName   []Value `json:"areaName"`
	Country    []Value `json:"country"`
	Latitude   string  `json:"latitude,omitempty"`
	Longitude  string  `json:"longitude,omitempty"`
	Population string  `json:"population,omitempty"`
	Region     []Value `json:"region"`
	WeatherURL []Value `json:"weatherUrl"`
}

// RequestInfo echoes the query the upstream resolved
type RequestInfo struct {
	Query string `json:"query,omitempty"`
	Type  string `json:"type,omitempty"`
}

var errNoCurrentCondition = errors.New("missing current_condition")

// Validate checks the parts of the document every consumer relies on
func (w *WeatherResponse) Validate() error {
	if len(w.CurrentCondition) == 0 {
		return errNoCurrentCondition
	}
	return nil
}

// Current returns the current observation, if any
func (w *WeatherResponse) Current() (*CurrentCondition, bool) {
	if len(w.CurrentCondition) == 0 {
		return nil, false
	}
	return &w.CurrentCondition[0], true
}

// AreaName returns "<area>, <country>" of the nearest area, or "" when unknown
func (w *WeatherResponse) AreaName() string {
	if len(w.NearestArea) == 0 {
		return ""
	}
	area := firstValue(w.NearestArea[0].AreaName)
	if country := firstValue(w.NearestArea[0].Country); country != "" {
		if area == "" {
			return country
		}
		return area + ", " + country
	}
	return area
}

// Description returns the first weather description of the observation
func (c *CurrentCondition) Description() string {
	return firstValue(c.WeatherDesc)
}

func firstValue(vs []Value) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0].Value
}
