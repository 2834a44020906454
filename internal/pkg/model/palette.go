package model

const DefaultColor = "#FFFFFF"

// Legacy firmware reports the neopixel color as an index 1-7 rather than a
// hex string.
var colorPalette = map[int]string{
	1: "#FF0000",
	2: "#00FF00",
	3: "#0000FF",
	4: "#FFFF00",
	5: "#FF00FF",
	6: "#00FFFF",
	7: "#FFFFFF",
}

// ColorFromIndex maps a legacy color index to its hex color. Out-of-range
// indexes fall back to white.
func ColorFromIndex(index int) string {
	if color, ok := colorPalette[index]; ok {
		return color
	}
	return DefaultColor
}
