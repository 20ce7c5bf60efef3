package bitget

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

// sign computes the ACCESS-SIGN header: base64(HMAC-SHA256(secret,
// timestamp + METHOD + path[?query] + body)). Query parameters are sorted
// by key so the signed string matches what the server reconstructs.
func sign(secret, timestamp, method, requestPath, queryString, body string) string {
	var b strings.Builder
	b.WriteString(timestamp)
	b.WriteString(strings.ToUpper(method))
	b.WriteString(requestPath)
	if queryString != "" {
		b.WriteString("?")
		b.WriteString(queryString)
	}
	b.WriteString(body)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// canonicalQuery renders params as k=v pairs joined by & in ascending key
// order, unescaped, matching the exchange's signing convention.
func canonicalQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

// encodedQuery is the URL-encoded form actually sent on the wire.
func encodedQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}
