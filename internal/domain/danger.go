package domain

// Danger scale labels and colors, indexed by level 1..5.
var (
	dangerLabels = [...]string{"Low", "Moderate", "Considerable", "High", "Extreme"}
	dangerColors = [...]string{"#4CAF50", "#FFEB3B", "#FF9800", "#F44336", "#000000"}
)

const (
	unknownDangerLabel = "Unknown"
	unknownDangerColor = "#999999"
)

// IsRated reports whether level is a valid rating on the 1..5 scale.
func IsRated(level *int) bool {
	return level != nil && *level >= 1 && *level <= len(dangerLabels)
}

// DangerLabel maps a rating to its scale name; unrated or out-of-range values are "Unknown".
func DangerLabel(level *int) string {
	if !IsRated(level) {
		return unknownDangerLabel
	}
	return dangerLabels[*level-1]
}

// DangerColor maps a rating to its scale color (green, yellow, orange, red, black);
// unrated or out-of-range values are neutral gray.
func DangerColor(level *int) string {
	if !IsRated(level) {
		return unknownDangerColor
	}
	return dangerColors[*level-1]
}
