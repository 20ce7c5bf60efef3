package bitget

import "encoding/json"

const codeOK = "00000"

// envelope is the exchange's uniform response wrapper. A non-zero code with
// an HTTP 200 is still an exchange-level rejection.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Timestamp drift: the request never executed, re-signing with a fresh
// timestamp is safe for any method.
var timestampDriftCodes = map[string]struct{}{
	"40004": {},
	"40005": {},
	"40008": {},
}

// Codes the exchange returns when a cancel targets an order that already
// reached a terminal state (filled, cancelled, expired).
var orderFinalCodes = map[string]struct{}{
	"40768": {}, // order does not exist
	"43025": {}, // order has been filled
	"43026": {}, // order has been cancelled
}

// Codes indicating the position no longer matches the requested reduce-only
// size: another actor shrank it between read and submit.
var positionChangedCodes = map[string]struct{}{
	"40754": {},
	"40757": {},
	"22002": {}, // no position to close
}

// IsOrderFinalCode reports whether an exchange rejection means the order is
// already in a terminal state.
func IsOrderFinalCode(code string) bool {
	_, ok := orderFinalCodes[code]
	return ok
}

// IsPositionChangedCode reports whether a rejection means the held size no
// longer matches the submitted reduce-only quantity.
func IsPositionChangedCode(code string) bool {
	_, ok := positionChangedCodes[code]
	return ok
}

type rawServerTime struct {
	ServerTime string `json:"serverTime"`
}

type rawAccount struct {
	MarginCoin   string `json:"marginCoin"`
	Available    string `json:"available"`
	Equity       string `json:"accountEquity"`
	UnrealizedPL string `json:"unrealizedPL"`
	Locked       string `json:"locked"`
}

type rawSingleAccount struct {
	MarginMode             string `json:"marginMode"`
	CrossedMarginLeverage  string `json:"crossedMarginLeverage"`
	IsolatedLongLever      string `json:"isolatedLongLever"`
	IsolatedShortLever     string `json:"isolatedShortLever"`
	MarginCoin             string `json:"marginCoin"`
	Available              string `json:"available"`
	UnionTotalMargin       string `json:"unionTotalMargin"`
	UnionAvailable         string `json:"unionAvailable"`
	AccountUnrealizedPL    string `json:"unrealizedPL"`
	AccountEquityValue     string `json:"accountEquity"`
	IsolatedMarginLeverage string `json:"isolatedMarginLeverage"`
}

type rawPosition struct {
	Symbol       string `json:"symbol"`
	HoldSide     string `json:"holdSide"`
	Total        string `json:"total"`
	OpenPriceAvg string `json:"openPriceAvg"`
	MarkPrice    string `json:"markPrice"`
	UnrealizedPL string `json:"unrealizedPL"`
	Leverage     string `json:"leverage"`
	MarginMode   string `json:"marginMode"`
}

type rawTicker struct {
	Symbol     string `json:"symbol"`
	Price      string `json:"price"`
	IndexPrice string `json:"indexPrice"`
	MarkPrice  string `json:"markPrice"`
	Timestamp  string `json:"ts"`
}

type rawContract struct {
	Symbol      string `json:"symbol"`
	MaxLever    string `json:"maxLever"`
	MinTradeNum string `json:"minTradeNum"`
	PricePlace  string `json:"pricePlace"`
	VolumePlace string `json:"volumePlace"`
}

type rawOrder struct {
	Symbol     string `json:"symbol"`
	Size       string `json:"size"`
	Price      string `json:"price"`
	Side       string `json:"side"`
	OrderType  string `json:"orderType"`
	Status     string `json:"status"`
	OrderID    string `json:"orderId"`
	ClientOID  string `json:"clientOid"`
	BaseVolume string `json:"baseVolume"`
	PriceAvg   string `json:"priceAvg"`
	ReduceOnly string `json:"reduceOnly"`
	CTime      string `json:"cTime"`
}

type rawOrderList struct {
	EntrustedList []rawOrder `json:"entrustedList"`
}

type rawOrderAck struct {
	OrderID   string `json:"orderId"`
	ClientOID string `json:"clientOid"`
}
