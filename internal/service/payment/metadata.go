package payment

import (
	"strconv"
	"strings"
)

// Metadata keys attached to a checkout session when it is created and
// returned unchanged on its webhooks.
const (
	MetadataCartID = "cartId"
	MetadataUserID = "userId"
)

// SessionMetadata builds the metadata for a new checkout session.
func SessionMetadata(cartID, userID int64) map[string]string {
	return map[string]string{
		MetadataCartID: strconv.FormatInt(cartID, 10),
		MetadataUserID: strconv.FormatInt(userID, 10),
	}
}

// ParseSessionMetadata reads the ids back. ok is false unless both are
// positive integers.
func ParseSessionMetadata(md map[string]string) (cartID, userID int64, ok bool) {
	cartID, cartOK := parseID(md[MetadataCartID])
	userID, userOK := parseID(md[MetadataUserID])
	if !cartOK || !userOK {
		return 0, 0, false
	}
	return cartID, userID, true
}

func parseID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
