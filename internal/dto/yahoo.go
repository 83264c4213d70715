package dto

type GetChartParam struct {
	Symbol   string
	Interval string
	Range    string
}

type ChartData struct {
	Symbol      string   `json:"symbol"`
	MarketPrice float64  `json:"market_price"`
	Interval    string   `json:"interval"`
	Candles     []Candle `json:"candles"`
}

type YahooFinanceResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}
