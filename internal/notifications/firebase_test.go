package notifications

import (
	"testing"

	"github.com/richxcame/attendance-tracker/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulticastMessage(t *testing.T) {
	msg := multicastMessage([]string{"a", "b"}, "title", "body", map[string]string{"k": "v"}, true)
	assert.Equal(t, []string{"a", "b"}, msg.Tokens)
	assert.Equal(t, "title", msg.Notification.Title)
	assert.Equal(t, "high", msg.Android.Priority)
	assert.Equal(t, "10", msg.APNS.Headers["apns-priority"])

	msg = multicastMessage([]string{"a"}, "t", "b", nil, false)
	assert.Equal(t, "normal", msg.Android.Priority)
	assert.Equal(t, "5", msg.APNS.Headers["apns-priority"])
}

func TestNewTwilioClient_RequiresCredentials(t *testing.T) {
	_, err := NewTwilioClient(config.TwilioConfig{AccountSID: "AC1", AuthToken: "secret"})
	require.Error(t, err)

	client, err := NewTwilioClient(config.TwilioConfig{AccountSID: "AC1", AuthToken: "secret", FromNumber: "+10000000000"})
	require.NoError(t, err)
	assert.Equal(t, "+10000000000", client.fromNumber)
}
