// Package news aggregates crypto headlines from free RSS feeds and the
// CryptoCompare and CoinGecko public APIs, with a small keyword-based
// sentiment pass. Everything here is best-effort: a dead feed is skipped,
// never fatal.
package news

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultLimitPerSource = 5
	maxLimitPerSource     = 10

	cryptoCompareURL = "https://min-api.cryptocompare.com/data/v2/news/?lang=EN&limit=%d"
	trendingURL      = "https://api.coingecko.com/api/v3/search/trending"
)

// rssFeeds maps source names to feed URLs. Source selection in requests
// is by these names.
var rssFeeds = map[string]string{
	"coindesk":     "https://www.coindesk.com/arc/outboundfeeds/rss/",
	"bitcoinist":   "https://bitcoinist.com/feed/",
	"decrypt":      "https://decrypt.co/feed",
	"cryptoslate":  "https://cryptoslate.com/feed/",
	"cryptopotato": "https://cryptopotato.com/feed/",
	"cryptonews":   "https://cryptonews.com/news/feed/",
	"newsbtc":      "https://www.newsbtc.com/feed/",
}

var positiveWords = []string{
	"surge", "rally", "bullish", "gain", "rise", "pump", "moon", "breakout",
	"adoption", "partnership", "upgrade", "positive", "growth", "expansion",
	"bull", "up", "high", "strong", "buy", "long", "invest",
}

var negativeWords = []string{
	"drop", "fall", "bearish", "crash", "dump", "decline", "concern", "risk",
	"regulation", "ban", "hack", "scam", "negative", "warning", "threat",
	"bear", "down", "low", "weak", "sell", "short",
}

var coinPatterns = map[string]*regexp.Regexp{
	"BTC":   regexp.MustCompile(`(?i)\b(bitcoin|btc)\b`),
	"ETH":   regexp.MustCompile(`(?i)\b(ethereum|eth|ether)\b`),
	"BNB":   regexp.MustCompile(`(?i)\b(binance|bnb)\b`),
	"XRP":   regexp.MustCompile(`(?i)\b(ripple|xrp)\b`),
	"ADA":   regexp.MustCompile(`(?i)\b(cardano|ada)\b`),
	"SOL":   regexp.MustCompile(`(?i)\b(solana|sol)\b`),
	"DOT":   regexp.MustCompile(`(?i)\b(polkadot|dot)\b`),
	"AVAX":  regexp.MustCompile(`(?i)\b(avalanche|avax)\b`),
	"LINK":  regexp.MustCompile(`(?i)\b(chainlink|link)\b`),
	"MATIC": regexp.MustCompile(`(?i)\b(polygon|matic)\b`),
}

type Sentiment struct {
	Label    string `json:"label"`
	Score    int    `json:"score"`
	Positive int    `json:"positive_signals"`
	Negative int    `json:"negative_signals"`
}

type Article struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Sentiment   Sentiment `json:"sentiment"`
	Coins       []string  `json:"coins,omitempty"`
}

type Report struct {
	Articles         []Article      `json:"articles"`
	SentimentSummary map[string]int `json:"sentiment_summary"`
	Sources          []string       `json:"sources"`
	FetchedAt        time.Time      `json:"fetched_at"`
}

type TrendingCoin struct {
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	MarketCapRank int     `json:"market_cap_rank"`
	PriceBTC      float64 `json:"price_btc"`
	Score         int     `json:"score"`
}

type TrendingReport struct {
	Coins     []TrendingCoin `json:"trending_coins"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Aggregator fetches and scores news. Safe for concurrent use.
type Aggregator struct {
	http     *resty.Client
	parser   *gofeed.Parser
	tracer   trace.Tracer
	feeds    map[string]string
	newsURL  string
	trendURL string
	now      func() time.Time
}

type Option func(*Aggregator)

// WithFeeds overrides the RSS source map, mainly for tests.
func WithFeeds(feeds map[string]string) Option {
	return func(a *Aggregator) { a.feeds = feeds }
}

// WithCryptoCompareURL overrides the headline API endpoint.
func WithCryptoCompareURL(u string) Option {
	return func(a *Aggregator) { a.newsURL = u }
}

// WithTrendingURL overrides the CoinGecko trending endpoint.
func WithTrendingURL(u string) Option {
	return func(a *Aggregator) { a.trendURL = u }
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Aggregator) { a.tracer = t }
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		http:     resty.New().SetTimeout(10 * time.Second),
		parser:   gofeed.NewParser(),
		tracer:   trace.NewNoopTracerProvider().Tracer("news"),
		feeds:    rssFeeds,
		newsURL:  cryptoCompareURL,
		trendURL: trendingURL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LatestNews collects headlines from the named sources. "cryptocompare"
// hits the CryptoCompare API; every other name is looked up in the RSS
// feed map. Unknown or failing sources are skipped.
func (a *Aggregator) LatestNews(ctx context.Context, sources []string, limitPerSource int) (Report, error) {
	ctx, span := a.tracer.Start(ctx, "news.latest")
	defer span.End()

	if len(sources) == 0 {
		sources = []string{"cryptocompare", "coindesk"}
	}
	if limitPerSource <= 0 {
		limitPerSource = defaultLimitPerSource
	}
	if limitPerSource > maxLimitPerSource {
		limitPerSource = maxLimitPerSource
	}

	report := Report{
		SentimentSummary: map[string]int{"positive": 0, "negative": 0, "neutral": 0},
		FetchedAt:        a.now().UTC(),
	}

	for _, source := range sources {
		name := strings.ToLower(strings.TrimSpace(source))
		var (
			articles []Article
			err      error
		)
		switch {
		case name == "cryptocompare":
			articles, err = a.fetchCryptoCompare(ctx, limitPerSource)
		default:
			feedURL, ok := a.feeds[name]
			if !ok {
				log.Printf("unknown news source %q, skipping", name)
				continue
			}
			articles, err = a.fetchFeed(ctx, name, feedURL, limitPerSource)
		}
		if err != nil {
			log.Printf("news source %s failed: %v", name, err)
			continue
		}
		report.Articles = append(report.Articles, articles...)
		report.Sources = append(report.Sources, name)
	}

	for i := range report.Articles {
		art := &report.Articles[i]
		art.Sentiment = scoreSentiment(art.Title + " " + art.Summary)
		art.Coins = extractCoins(art.Title + " " + art.Summary)
		report.SentimentSummary[art.Sentiment.Label]++
	}

	sort.SliceStable(report.Articles, func(i, j int) bool {
		return report.Articles[i].PublishedAt.After(report.Articles[j].PublishedAt)
	})
	return report, nil
}

func (a *Aggregator) fetchFeed(ctx context.Context, name, url string, limit int) ([]Article, error) {
	feed, err := a.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}
	articles := make([]Article, 0, limit)
	for _, item := range feed.Items {
		if len(articles) >= limit {
			break
		}
		article := Article{
			Source:  name,
			Title:   item.Title,
			Summary: strings.TrimSpace(item.Description),
			URL:     item.Link,
		}
		if item.PublishedParsed != nil {
			article.PublishedAt = item.PublishedParsed.UTC()
		}
		articles = append(articles, article)
	}
	return articles, nil
}

type cryptoCompareItem struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	URL         string `json:"url"`
	PublishedOn int64  `json:"published_on"`
	Source      string `json:"source"`
}

type cryptoCompareResponse struct {
	Data []cryptoCompareItem `json:"Data"`
}

func (a *Aggregator) fetchCryptoCompare(ctx context.Context, limit int) ([]Article, error) {
	var out cryptoCompareResponse
	resp, err := a.http.R().SetContext(ctx).SetResult(&out).Get(fmt.Sprintf(a.newsURL, limit))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	articles := make([]Article, 0, limit)
	for _, item := range out.Data {
		if len(articles) >= limit {
			break
		}
		articles = append(articles, Article{
			Source:      "cryptocompare",
			Title:       item.Title,
			Summary:     item.Body,
			URL:         item.URL,
			PublishedAt: time.Unix(item.PublishedOn, 0).UTC(),
		})
	}
	return articles, nil
}

type trendingItem struct {
	Item struct {
		Name          string  `json:"name"`
		Symbol        string  `json:"symbol"`
		MarketCapRank int     `json:"market_cap_rank"`
		PriceBTC      float64 `json:"price_btc"`
		Score         int     `json:"score"`
	} `json:"item"`
}

type trendingResponse struct {
	Coins []trendingItem `json:"coins"`
}

// TrendingCoins returns CoinGecko's current trending search list.
func (a *Aggregator) TrendingCoins(ctx context.Context) (TrendingReport, error) {
	ctx, span := a.tracer.Start(ctx, "news.trending")
	defer span.End()

	var out trendingResponse
	resp, err := a.http.R().SetContext(ctx).SetResult(&out).Get(a.trendURL)
	if err != nil {
		return TrendingReport{}, err
	}
	if resp.IsError() {
		return TrendingReport{}, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	report := TrendingReport{FetchedAt: a.now().UTC()}
	for _, coin := range out.Coins {
		report.Coins = append(report.Coins, TrendingCoin{
			Name:          coin.Item.Name,
			Symbol:        strings.ToUpper(coin.Item.Symbol),
			MarketCapRank: coin.Item.MarketCapRank,
			PriceBTC:      coin.Item.PriceBTC,
			Score:         coin.Item.Score,
		})
	}
	return report, nil
}

// scoreSentiment counts positive and negative keywords. The score is
// clamped to [-3, 3] so a single wordy headline cannot dominate a
// summary.
func scoreSentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	positive, negative := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	s := Sentiment{Positive: positive, Negative: negative}
	switch {
	case positive > negative:
		s.Label = "positive"
		s.Score = clamp(positive-negative, 3)
	case negative > positive:
		s.Label = "negative"
		s.Score = -clamp(negative-positive, 3)
	default:
		s.Label = "neutral"
	}
	return s
}

func clamp(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

func extractCoins(text string) []string {
	var found []string
	for _, symbol := range []string{"BTC", "ETH", "BNB", "XRP", "ADA", "SOL", "DOT", "AVAX", "LINK", "MATIC"} {
		if coinPatterns[symbol].MatchString(text) {
			found = append(found, symbol)
		}
	}
	return found
}
