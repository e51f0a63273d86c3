package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const (
	HeaderSignature = "X-Swarmdock-Signature"
	HeaderTimestamp = "X-Swarmdock-Timestamp"
)

// Sign returns hex(HMAC-SHA256(secret, "<ts>.<payload>")).
func Sign(secret string, ts int64, payload []byte) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks a signature produced by Sign. A zero maxAge disables the
// timestamp window.
func Verify(secret string, ts int64, payload []byte, signature string, maxAge time.Duration) error {
	if maxAge > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > maxAge || age < -time.Minute {
			return fmt.Errorf("%w: age %s", ErrSignatureExpired, age)
		}
	}
	expected, err := Sign(secret, ts, payload)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureInvalid
	}
	return nil
}
