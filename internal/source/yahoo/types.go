package yahoo

// --- Chart API response types ---

// chartResponse wraps the v8 chart API response.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol       string `json:"symbol"`
	Currency     string `json:"currency"`
	ExchangeName string `json:"exchangeName"`
}

type indicators struct {
	Quote    []quoteBars    `json:"quote"`
	AdjClose []adjCloseBars `json:"adjclose"`
}

type quoteBars struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type adjCloseBars struct {
	AdjClose []*float64 `json:"adjclose"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
