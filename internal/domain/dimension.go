package domain

// Dimension is one named axis of evaluation, distinct from the overall score.
type Dimension struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// dimensions is fixed at process start; insertion order is display order.
var dimensions = []Dimension{
	{Key: "completeness", Label: "Completeness"},
	{Key: "accuracy", Label: "Accuracy"},
	{Key: "relevance", Label: "Relevance"},
	{Key: "readability", Label: "Readability"},
	{Key: "credibility", Label: "Source credibility"},
}

// Dimensions returns the rating dimensions in display order. The returned
// slice is a copy; callers may not mutate the registry.
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// KnownDimension reports whether key names a registered dimension.
func KnownDimension(key string) bool {
	for _, d := range dimensions {
		if d.Key == key {
			return true
		}
	}
	return false
}
