// Package analysis computes technical indicator reports over candle
// windows. All math runs on already-fetched candles; the package never
// talks to the exchange.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	goiforest "github.com/narumiruna/go-iforest/pkg/iforest"

	"tradegate/internal/domain"
)

const (
	DefaultRSIPeriod       = 14
	DefaultShortMAPeriod   = 20
	DefaultLongMAPeriod    = 50
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0

	anomalyThreshold = 0.6
	anomalyTrees     = 100
	anomalySampleMin = 32
)

// ErrNotEnoughCandles is returned when a window is too short for the
// requested indicator.
type ErrNotEnoughCandles struct {
	Need int
	Have int
}

func (e *ErrNotEnoughCandles) Error() string {
	return fmt.Sprintf("need at least %d candles, have %d", e.Need, e.Have)
}

type RSIReport struct {
	Symbol   string  `json:"symbol"`
	Interval string  `json:"interval"`
	Period   int     `json:"period"`
	RSI      float64 `json:"rsi"`
	PrevRSI  float64 `json:"prev_rsi"`
	Price    float64 `json:"price"`
	Signal   string  `json:"signal"`
	Trend    string  `json:"trend"`
}

type MAReport struct {
	Symbol      string  `json:"symbol"`
	Interval    string  `json:"interval"`
	ShortPeriod int     `json:"short_period"`
	LongPeriod  int     `json:"long_period"`
	ShortMA     float64 `json:"short_ma"`
	LongMA      float64 `json:"long_ma"`
	Price       float64 `json:"price"`
	Cross       string  `json:"cross"`
	Trend       string  `json:"trend"`
}

type BollingerReport struct {
	Symbol   string  `json:"symbol"`
	Interval string  `json:"interval"`
	Period   int     `json:"period"`
	StdDev   float64 `json:"std_dev"`
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	Price    float64 `json:"price"`
	PercentB float64 `json:"percent_b"`
	Signal   string  `json:"signal"`
}

type ComprehensiveReport struct {
	Symbol    string           `json:"symbol"`
	Interval  string           `json:"interval"`
	Price     float64          `json:"price"`
	RSI       *RSIReport       `json:"rsi,omitempty"`
	MAs       *MAReport        `json:"moving_averages,omitempty"`
	Bollinger *BollingerReport `json:"bollinger,omitempty"`
	Signals   []string         `json:"signals"`
	Overall   string           `json:"overall_signal"`
}

type VolumeAnomaly struct {
	OpenTime time.Time `json:"open_time"`
	Volume   float64   `json:"volume"`
	Score    float64   `json:"score"`
}

type VolumeAnomalyReport struct {
	Symbol        string          `json:"symbol"`
	Interval      string          `json:"interval"`
	Candles       int             `json:"candles"`
	Anomalies     []VolumeAnomaly `json:"anomalies"`
	LatestIsSpike bool            `json:"latest_is_spike"`
}

// Engine is stateless; one instance serves all symbols concurrently.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func sortCandles(in []domain.Candle) []domain.Candle {
	out := make([]domain.Candle, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool {
		return out[i].OpenTime.Before(out[j].OpenTime)
	})
	return out
}

func closes(candles []domain.Candle) []float64 {
	values := make([]float64, len(candles))
	for i := range candles {
		values[i] = candles[i].Close
	}
	return values
}

// RSI computes the Wilder-smoothed relative strength index and an
// overbought/oversold reading for the latest candle.
func (e *Engine) RSI(candles []domain.Candle, period int) (RSIReport, error) {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	candles = sortCandles(candles)
	if len(candles) < period+2 {
		return RSIReport{}, &ErrNotEnoughCandles{Need: period + 2, Have: len(candles)}
	}

	series := rsiSeries(closes(candles), period)
	curr := series[len(series)-1]
	prev := series[len(series)-2]
	if math.IsNaN(curr) || math.IsNaN(prev) {
		return RSIReport{}, &ErrNotEnoughCandles{Need: period + 2, Have: len(candles)}
	}

	latest := candles[len(candles)-1]
	report := RSIReport{
		Symbol:   latest.Symbol,
		Interval: latest.Interval,
		Period:   period,
		RSI:      round2(curr),
		PrevRSI:  round2(prev),
		Price:    latest.Close,
	}
	switch {
	case curr >= 70:
		report.Signal = "overbought - consider selling"
	case curr <= 30:
		report.Signal = "oversold - consider buying"
	default:
		report.Signal = "neutral"
	}
	if curr > prev {
		report.Trend = "rising"
	} else {
		report.Trend = "falling"
	}
	return report, nil
}

// MovingAverages compares a short and a long simple moving average and
// flags golden/dead crosses on the latest candle.
func (e *Engine) MovingAverages(candles []domain.Candle, shortPeriod, longPeriod int) (MAReport, error) {
	if shortPeriod <= 0 {
		shortPeriod = DefaultShortMAPeriod
	}
	if longPeriod <= 0 {
		longPeriod = DefaultLongMAPeriod
	}
	if shortPeriod >= longPeriod {
		shortPeriod, longPeriod = DefaultShortMAPeriod, DefaultLongMAPeriod
	}
	candles = sortCandles(candles)
	if len(candles) < longPeriod+1 {
		return MAReport{}, &ErrNotEnoughCandles{Need: longPeriod + 1, Have: len(candles)}
	}

	values := closes(candles)
	currIdx := len(values) - 1
	prevIdx := currIdx - 1

	currShort := mean(values[currIdx-shortPeriod+1 : currIdx+1])
	currLong := mean(values[currIdx-longPeriod+1 : currIdx+1])
	prevShort := mean(values[prevIdx-shortPeriod+1 : prevIdx+1])
	prevLong := mean(values[prevIdx-longPeriod+1 : prevIdx+1])

	latest := candles[currIdx]
	report := MAReport{
		Symbol:      latest.Symbol,
		Interval:    latest.Interval,
		ShortPeriod: shortPeriod,
		LongPeriod:  longPeriod,
		ShortMA:     round2(currShort),
		LongMA:      round2(currLong),
		Price:       latest.Close,
		Cross:       "none",
	}
	if prevShort <= prevLong && currShort > currLong {
		report.Cross = "golden cross - strong buy signal"
	} else if prevShort >= prevLong && currShort < currLong {
		report.Cross = "dead cross - strong sell signal"
	}
	switch {
	case latest.Close > currShort && currShort > currLong:
		report.Trend = "bullish alignment"
	case latest.Close < currShort && currShort < currLong:
		report.Trend = "bearish alignment"
	default:
		report.Trend = "mixed"
	}
	return report, nil
}

// Bollinger computes the bands for the latest candle and locates the
// price within them.
func (e *Engine) Bollinger(candles []domain.Candle, period int, stdDev float64) (BollingerReport, error) {
	if period <= 0 {
		period = DefaultBollingerPeriod
	}
	if stdDev <= 0 {
		stdDev = DefaultBollingerStdDev
	}
	candles = sortCandles(candles)
	if len(candles) < period {
		return BollingerReport{}, &ErrNotEnoughCandles{Need: period, Have: len(candles)}
	}

	values := closes(candles)
	window := values[len(values)-period:]
	middle, std := meanStd(window)
	upper := middle + stdDev*std
	lower := middle - stdDev*std

	latest := candles[len(candles)-1]
	report := BollingerReport{
		Symbol:   latest.Symbol,
		Interval: latest.Interval,
		Period:   period,
		StdDev:   stdDev,
		Upper:    round2(upper),
		Middle:   round2(middle),
		Lower:    round2(lower),
		Price:    latest.Close,
	}
	if upper != lower {
		report.PercentB = round2((latest.Close - lower) / (upper - lower))
	}
	switch {
	case latest.Close >= upper:
		report.Signal = "touching upper band - overbought, consider selling"
	case latest.Close <= lower:
		report.Signal = "touching lower band - oversold, consider buying"
	case latest.Close > middle:
		report.Signal = "above midline - uptrend"
	default:
		report.Signal = "below midline - downtrend"
	}
	return report, nil
}

// Comprehensive runs RSI, moving averages and Bollinger together and
// votes them into an overall recommendation. Indicators that cannot be
// computed from the window are skipped, not fatal.
func (e *Engine) Comprehensive(candles []domain.Candle) (ComprehensiveReport, error) {
	candles = sortCandles(candles)
	if len(candles) < 2 {
		return ComprehensiveReport{}, &ErrNotEnoughCandles{Need: 2, Have: len(candles)}
	}
	latest := candles[len(candles)-1]

	report := ComprehensiveReport{
		Symbol:   latest.Symbol,
		Interval: latest.Interval,
		Price:    latest.Close,
	}
	buyVotes, sellVotes := 0, 0

	if rsi, err := e.RSI(candles, DefaultRSIPeriod); err == nil {
		report.RSI = &rsi
		switch {
		case rsi.RSI <= 30:
			buyVotes++
			report.Signals = append(report.Signals, "RSI: oversold - buy signal")
		case rsi.RSI >= 70:
			sellVotes++
			report.Signals = append(report.Signals, "RSI: overbought - sell signal")
		default:
			report.Signals = append(report.Signals, "RSI: neutral")
		}
	}

	if mas, err := e.MovingAverages(candles, DefaultShortMAPeriod, DefaultLongMAPeriod); err == nil {
		report.MAs = &mas
		switch {
		case mas.Cross == "golden cross - strong buy signal":
			buyVotes += 2
			report.Signals = append(report.Signals, "MA: golden cross - strong buy")
		case mas.Cross == "dead cross - strong sell signal":
			sellVotes += 2
			report.Signals = append(report.Signals, "MA: dead cross - strong sell")
		case mas.Trend == "bullish alignment":
			buyVotes++
			report.Signals = append(report.Signals, "MA: bullish alignment")
		case mas.Trend == "bearish alignment":
			sellVotes++
			report.Signals = append(report.Signals, "MA: bearish alignment")
		default:
			report.Signals = append(report.Signals, "MA: mixed")
		}
	}

	if bb, err := e.Bollinger(candles, DefaultBollingerPeriod, DefaultBollingerStdDev); err == nil {
		report.Bollinger = &bb
		switch {
		case bb.Price >= bb.Upper:
			sellVotes++
			report.Signals = append(report.Signals, "Bollinger: upper band touch - consider selling")
		case bb.Price <= bb.Lower:
			buyVotes++
			report.Signals = append(report.Signals, "Bollinger: lower band touch - consider buying")
		default:
			report.Signals = append(report.Signals, "Bollinger: neutral")
		}
	}

	switch {
	case buyVotes >= 3:
		report.Overall = "strong buy"
	case buyVotes > sellVotes:
		report.Overall = "buy"
	case sellVotes >= 3:
		report.Overall = "strong sell"
	case sellVotes > buyVotes:
		report.Overall = "sell"
	default:
		report.Overall = "neutral - wait"
	}
	return report, nil
}

// VolumeAnomalies fits an isolation forest over per-candle volume
// features and reports the outliers. The latest candle being an outlier
// usually means a volume spike is in progress.
func (e *Engine) VolumeAnomalies(candles []domain.Candle) (VolumeAnomalyReport, error) {
	candles = sortCandles(candles)
	if len(candles) < anomalySampleMin {
		return VolumeAnomalyReport{}, &ErrNotEnoughCandles{Need: anomalySampleMin, Have: len(candles)}
	}

	samples := make([][]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		samples = append(samples, anomalyFeatures(candles[i-1], candles[i]))
	}

	forest := goiforest.NewWithOptions(goiforest.Options{
		DetectionType: goiforest.DetectionTypeThreshold,
		Threshold:     anomalyThreshold,
		NumTrees:      anomalyTrees,
		SampleSize:    min(256, len(samples)),
	})
	forest.Fit(samples)
	scores := forest.Score(samples)

	latest := candles[len(candles)-1]
	report := VolumeAnomalyReport{
		Symbol:   latest.Symbol,
		Interval: latest.Interval,
		Candles:  len(candles),
	}
	for i, score := range scores {
		if math.IsNaN(score) || score < anomalyThreshold {
			continue
		}
		candle := candles[i+1]
		report.Anomalies = append(report.Anomalies, VolumeAnomaly{
			OpenTime: candle.OpenTime,
			Volume:   candle.Volume,
			Score:    round2(score),
		})
		if i == len(scores)-1 {
			report.LatestIsSpike = true
		}
	}
	return report, nil
}

func anomalyFeatures(prev, curr domain.Candle) []float64 {
	volumeRatio := 0.0
	if prev.Volume > 0 {
		volumeRatio = curr.Volume / prev.Volume
	}
	priceMove := 0.0
	if prev.Close > 0 {
		priceMove = (curr.Close - prev.Close) / prev.Close
	}
	candleRange := 0.0
	if curr.Low > 0 {
		candleRange = (curr.High - curr.Low) / curr.Low
	}
	return []float64{curr.Volume, volumeRatio, priceMove, candleRange}
}

func rsiSeries(values []float64, period int) []float64 {
	series := make([]float64, len(values))
	for i := range series {
		series[i] = math.NaN()
	}
	if len(values) <= period {
		return series
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func meanStd(values []float64) (m, std float64) {
	m = mean(values)
	if len(values) < 2 {
		return m, 0
	}
	for _, v := range values {
		d := v - m
		std += d * d
	}
	return m, math.Sqrt(std / float64(len(values)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
