package qrsign

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickethub/internal/status"
)

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := NewCodec("")
	require.Error(t, err)
	assert.Equal(t, status.Internal, status.CodeOf(err))

	codec, err := NewCodec("test-secret")
	require.NoError(t, err)
	assert.NotNil(t, codec)
}

func TestEncodeVerifyRoundTrip(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	raw, err := codec.Encode("tkt123", "evt456", "usr789", "TKT-123456-07-63")
	require.NoError(t, err)

	payload, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "ticket", payload.Type)
	assert.Equal(t, "tkt123", payload.TicketID)
	assert.Equal(t, "evt456", payload.EventID)
	assert.Equal(t, "usr789", payload.UserID)
	assert.Equal(t, "TKT-123456-07-63", payload.TicketNumber)
	assert.Equal(t, payloadVersion, payload.Version)
	assert.Len(t, payload.Signature, sigLen)
}

func TestEncodeRequiresIdentifiers(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	for _, tc := range [][3]string{
		{"", "evt", "usr"},
		{"tkt", "", "usr"},
		{"tkt", "evt", ""},
	} {
		_, err := codec.Encode(tc[0], tc[1], tc[2], "")
		require.Error(t, err)
		assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	raw, err := codec.Encode("tkt123", "evt456", "usr789", "")
	require.NoError(t, err)

	var payload Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	// Flip one character of the signature.
	sig := []byte(payload.Signature)
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}
	payload.Signature = string(sig)

	tampered, err := json.Marshal(payload)
	require.NoError(t, err)

	_, err = codec.Verify(string(tampered))
	require.Error(t, err)
	assert.Equal(t, status.FailedPrecondition, status.CodeOf(err))
	assert.Equal(t, "invalid signature", status.MessageOf(err))
}

func TestVerifyRejectsSwappedIdentifiers(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	raw, err := codec.Encode("tkt123", "evt456", "usr789", "")
	require.NoError(t, err)

	var payload Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	// The signature covers the ticket id, so pointing the payload at another
	// ticket must invalidate it.
	payload.TicketID = "tkt999"
	tampered, err := json.Marshal(payload)
	require.NoError(t, err)

	_, err = codec.Verify(string(tampered))
	require.Error(t, err)
	assert.Equal(t, "invalid signature", status.MessageOf(err))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	for _, raw := range []string{
		"",
		"not json",
		`{"type":"ticket"}`,
		`{"ticketId":"a","eventId":"b"}`,
	} {
		_, err := codec.Verify(raw)
		require.Error(t, err, "payload %q", raw)
		assert.Equal(t, "invalid signature", status.MessageOf(err))
	}
}

func TestVerifyNeedsMatchingSecret(t *testing.T) {
	issuer, err := NewCodec("secret-a")
	require.NoError(t, err)
	other, err := NewCodec("secret-b")
	require.NoError(t, err)

	raw, err := issuer.Encode("tkt123", "evt456", "usr789", "")
	require.NoError(t, err)

	_, err = issuer.Verify(raw)
	require.NoError(t, err)

	_, err = other.Verify(raw)
	require.Error(t, err)
}

func TestHmac256Deterministic(t *testing.T) {
	a := Hmac256([]byte("body"), []byte("key"))
	b := Hmac256([]byte("body"), []byte("key"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c := Hmac256([]byte("body"), []byte("other-key"))
	assert.NotEqual(t, a, c)
}
