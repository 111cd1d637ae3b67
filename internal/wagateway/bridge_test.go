package wagateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/brendondev/central-empresa/internal/vault"
	"github.com/brendondev/central-empresa/pkg/logger"
)

func newTestBridge(t *testing.T) (*Bridge, *vault.Namespace) {
	logger.Log = zaptest.NewLogger(t)
	v, err := vault.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return NewBridge(nil, BridgeConfig{}, logger.Log), v.Namespace("session-1")
}

func marshal(t *testing.T, v interface{}) []byte {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestBridgeTranslate_PairingChallenge(t *testing.T) {
	b, ns := newTestBridge(t)

	ev, forward, err := b.translate(marshal(t, wireEvent{
		Kind:      string(EventPairingChallenge),
		Challenge: "2@abc123",
	}), ns)
	require.NoError(t, err)
	require.True(t, forward)
	assert.Equal(t, EventPairingChallenge, ev.Kind)
	assert.Equal(t, "2@abc123", ev.Challenge)
}

func TestBridgeTranslate_Authenticated(t *testing.T) {
	b, ns := newTestBridge(t)

	ev, forward, err := b.translate(marshal(t, wireEvent{
		Kind:        string(EventAuthenticated),
		PhoneNumber: "5511999990000",
		ProfileName: "Loja Central",
	}), ns)
	require.NoError(t, err)
	require.True(t, forward)
	assert.Equal(t, "5511999990000", ev.PhoneNumber)
	assert.Equal(t, "Loja Central", ev.ProfileName)
}

func TestBridgeTranslate_LinkDropped(t *testing.T) {
	b, ns := newTestBridge(t)

	ev, forward, err := b.translate(marshal(t, wireEvent{
		Kind:             string(EventLinkDropped),
		Reason:           "logged out",
		IsExplicitLogout: true,
	}), ns)
	require.NoError(t, err)
	require.True(t, forward)
	assert.True(t, ev.IsExplicitLogout)
	assert.Equal(t, "logged out", ev.Reason)
}

func TestBridgeTranslate_InboundMessage(t *testing.T) {
	b, ns := newTestBridge(t)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ev, forward, err := b.translate(marshal(t, wireEvent{
		Kind: string(EventInboundMessage),
		Message: &wireMessage{
			MessageID: "msg-1",
			SenderJID: "5511988887777@s.whatsapp.net",
			PushName:  "Maria",
			Image:     &wireMedia{URL: "https://cdn.example.com/a.jpg", MimeType: "image/jpeg", Caption: "foto"},
			Timestamp: ts.Unix(),
		},
	}), ns)
	require.NoError(t, err)
	require.True(t, forward)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "msg-1", ev.Message.MessageID)
	require.NotNil(t, ev.Message.Image)
	assert.Equal(t, "foto", ev.Message.Image.Caption)
	assert.True(t, ev.Message.Timestamp.Equal(ts))
}

func TestBridgeTranslate_InboundMessageWithoutBody(t *testing.T) {
	b, ns := newTestBridge(t)

	_, forward, err := b.translate(marshal(t, wireEvent{Kind: string(EventInboundMessage)}), ns)
	assert.Error(t, err)
	assert.False(t, forward)
}

func TestBridgeTranslate_CredentialUpdateAbsorbed(t *testing.T) {
	b, ns := newTestBridge(t)

	_, forward, err := b.translate(marshal(t, wireEvent{
		Kind:        wireCredentialUpdate,
		Credentials: map[string][]byte{"noise-key": []byte("rotated")},
	}), ns)
	require.NoError(t, err)
	assert.False(t, forward, "credential updates must not reach the session runner")

	stored, err := ns.Get("noise-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("rotated"), stored)
}

func TestBridgeTranslate_UnknownKind(t *testing.T) {
	b, ns := newTestBridge(t)

	_, forward, err := b.translate(marshal(t, wireEvent{Kind: "carrier_pigeon"}), ns)
	assert.Error(t, err)
	assert.False(t, forward)
}

func TestBridgeTranslate_MalformedPayload(t *testing.T) {
	b, ns := newTestBridge(t)

	_, forward, err := b.translate([]byte("{not json"), ns)
	assert.Error(t, err)
	assert.False(t, forward)
}

func TestLoadCredentials(t *testing.T) {
	logger.Log = zaptest.NewLogger(t)
	v, err := vault.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })

	ns := v.Namespace("session-1")

	material, err := loadCredentials(ns)
	require.NoError(t, err)
	assert.Nil(t, material, "fresh namespace yields no material")

	require.NoError(t, ns.Put("noise-key", []byte("a")))
	require.NoError(t, ns.Put("identity-key", []byte("b")))

	material, err = loadCredentials(ns)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"noise-key":    []byte("a"),
		"identity-key": []byte("b"),
	}, material)
}
