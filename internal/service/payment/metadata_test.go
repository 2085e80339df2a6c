package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionMetadataRoundTrip(t *testing.T) {
	cartID, userID, ok := ParseSessionMetadata(SessionMetadata(7, 42))
	assert.True(t, ok)
	assert.Equal(t, int64(7), cartID)
	assert.Equal(t, int64(42), userID)
}

func TestParseSessionMetadataRejects(t *testing.T) {
	for _, md := range []map[string]string{
		nil,
		{"cartId": "7"},
		{"userId": "42"},
		{"cartId": "seven", "userId": "42"},
		{"cartId": "7", "userId": "-1"},
		{"cartId": "0", "userId": "42"},
	} {
		_, _, ok := ParseSessionMetadata(md)
		assert.False(t, ok, "%v", md)
	}
}
