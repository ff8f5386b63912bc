package health

import "strings"

// MetricLevel is the color class of a metric's free-text status
type MetricLevel int

const (
	MetricUnknown MetricLevel = iota
	MetricNormal
	MetricElevated
	MetricLow
)

// String returns a short label for the level
func (l MetricLevel) String() string {
	switch l {
	case MetricNormal:
		return "normal"
	case MetricElevated:
		return "elevated"
	case MetricLow:
		return "low"
	default:
		return "unknown"
	}
}

// Classify maps a server status to a level. The order of checks matters:
// "normal"/"controlled" win over "high"/"elevated", which win over "low".
func Classify(status string) MetricLevel {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "normal") || strings.Contains(s, "controlled"):
		return MetricNormal
	case strings.Contains(s, "high") || strings.Contains(s, "elevated"):
		return MetricElevated
	case strings.Contains(s, "low"):
		return MetricLow
	default:
		return MetricUnknown
	}
}

// Level classifies the metric's status
func (m Metric) Level() MetricLevel {
	return Classify(m.Status)
}
