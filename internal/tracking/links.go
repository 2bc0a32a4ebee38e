// Package tracking signs the click-through links embedded in outgoing email
// so the public redirect endpoint only follows targets this service wrote.
package tracking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Sign returns the signature binding target to one delivery.
func Sign(secret string, deliveryID int64, target string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(deliveryID, 10)))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(target))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig was produced by Sign for the same delivery and
// target. An empty secret verifies nothing.
func Verify(secret string, deliveryID int64, target, sig string) bool {
	if secret == "" || sig == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, deliveryID, target)), []byte(sig))
}

func ClickURL(baseURL, secret string, deliveryID int64, target string) string {
	q := url.Values{}
	q.Set("url", target)
	q.Set("sig", Sign(secret, deliveryID, target))
	return fmt.Sprintf("%s/t/click/%d?%s", strings.TrimRight(baseURL, "/"), deliveryID, q.Encode())
}

var hrefRe = regexp.MustCompile(`href="(https?://[^"]+)"`)

// RewriteLinks points every absolute http(s) href in html at the click
// endpoint.
func RewriteLinks(html, baseURL, secret string, deliveryID int64) string {
	return hrefRe.ReplaceAllStringFunc(html, func(m string) string {
		target := hrefRe.FindStringSubmatch(m)[1]
		return `href="` + strings.ReplaceAll(ClickURL(baseURL, secret, deliveryID, target), "&", "&amp;") + `"`
	})
}
