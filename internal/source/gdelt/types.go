package gdelt

// docTimelineResponse is the DOC 2.0 timeline payload.
type docTimelineResponse struct {
	Timeline []docTimelineSeries `json:"timeline"`
}

type docTimelineSeries struct {
	Series string             `json:"series"`
	Data   []docTimelinePoint `json:"data"`
}

type docTimelinePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}
