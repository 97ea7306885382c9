package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Compute returns the hex HMAC-SHA256 of "timestamp.body" under secret.
func Compute(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a hex HMAC-SHA256 signature over "timestamp.body" in constant time.
func Verify(secret, timestamp string, body []byte, signatureHex string) bool {
	if secret == "" || signatureHex == "" {
		return false
	}
	expected := Compute(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(signatureHex))
}

// Sign produces a signature and unix timestamp for an outbound or test payload.
func Sign(secret string, body []byte) (sig string, timestamp string, err error) {
	if secret == "" {
		return "", "", fmt.Errorf("secret key not provided")
	}
	timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	return Compute(secret, timestamp, body), timestamp, nil
}

// FreshWithin reports whether the claimed unix timestamp is within the window
// of now. A malformed timestamp is never fresh.
func FreshWithin(timestamp string, window time.Duration, now time.Time) bool {
	claimed, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	diff := now.Unix() - claimed
	if diff < 0 {
		diff = -diff
	}
	return time.Duration(diff)*time.Second <= window
}
