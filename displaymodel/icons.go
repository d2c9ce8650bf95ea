package displaymodel

// Icon names returned by IconFor.
const (
	IconStorm       = "storm"
	IconLightRain   = "light_rain"
	IconRain        = "rain"
	IconSnow        = "snow"
	IconFog         = "fog"
	IconClear       = "clear"
	IconLightClouds = "light_clouds"
	IconClouds      = "clouds"
	IconUnknown     = "unknown"
)

// IconFor maps an OpenWeatherMap condition id to an icon name.
// See https://openweathermap.org/weather-conditions.
func IconFor(id int) string {
	switch {
	case id >= 200 && id <= 232:
		return IconStorm
	case id >= 300 && id <= 321:
		return IconLightRain
	case id >= 500 && id <= 504:
		return IconRain
	case id == 511:
		return IconSnow
	case id >= 520 && id <= 531:
		return IconRain
	case id >= 600 && id <= 622:
		return IconSnow
	case id == 761 || id == 781:
		return IconStorm
	case id >= 701 && id <= 761:
		return IconFog
	case id == 800:
		return IconClear
	case id == 801:
		return IconLightClouds
	case id >= 802 && id <= 804:
		return IconClouds
	}
	return IconUnknown
}

// SquareIcons hands out every icon at the same square size.
type SquareIcons struct {
	Size float64
}

func (s SquareIcons) Icon(conditionID int) Icon {
	return Icon{Name: IconFor(conditionID), Width: s.Size, Height: s.Size}
}
