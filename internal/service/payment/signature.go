package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"order-fulfillment/internal/domain"
)

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "Signature"

// Verifier checks headers of the form "t=<unix>,v1=<hex>" where the hex is
// HMAC-SHA256(secret, "<t>.<payload>"). Several v1 entries may be present
// while the sender rotates secrets.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier returns a Verifier. A zero tolerance disables the timestamp check.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

func (v *Verifier) Verify(payload []byte, header string) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("%w: webhook secret is not configured", domain.ErrInvalidSignature)
	}
	ts, sigs, err := parseHeader(header)
	if err != nil {
		return err
	}
	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(ts, 0))
		if age < 0 {
			age = -age
		}
		if age > v.tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", domain.ErrInvalidSignature)
		}
	}

	expected := computeSignature(v.secret, ts, payload)
	for _, sig := range sigs {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", domain.ErrInvalidSignature)
}

// Sign produces a header value for payload at t. Used by tests and local
// tooling that replays webhooks.
func Sign(secret string, payload []byte, t time.Time) string {
	ts := t.Unix()
	return "t=" + strconv.FormatInt(ts, 10) + ",v1=" + hex.EncodeToString(computeSignature([]byte(secret), ts, payload))
}

func computeSignature(secret []byte, ts int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseHeader(header string) (int64, [][]byte, error) {
	if strings.TrimSpace(header) == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", domain.ErrInvalidSignature)
	}
	var (
		ts    int64
		hasTS bool
		sigs  [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: malformed timestamp", domain.ErrInvalidSignature)
			}
			ts, hasTS = n, true
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			sigs = append(sigs, sig)
		}
	}
	if !hasTS {
		return 0, nil, fmt.Errorf("%w: missing timestamp", domain.ErrInvalidSignature)
	}
	if len(sigs) == 0 {
		return 0, nil, fmt.Errorf("%w: missing v1 signature", domain.ErrInvalidSignature)
	}
	return ts, sigs, nil
}
