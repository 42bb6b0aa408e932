package notifications

import (
	"testing"

	"github.com/richxcame/attendance-tracker/internal/fraud"
	"github.com/stretchr/testify/assert"
)

func TestPriorityForSeverity(t *testing.T) {
	assert.Equal(t, PriorityUrgent, PriorityForSeverity(fraud.SeverityHigh))
	assert.Equal(t, PriorityNormal, PriorityForSeverity(fraud.SeverityMedium))
	assert.Equal(t, PriorityNormal, PriorityForSeverity(fraud.SeverityLow))
	assert.Equal(t, PriorityNormal, PriorityForSeverity(""))
}

func TestDeliveryMethods(t *testing.T) {
	staff := &Recipient{Role: "employee"}
	staffWithPhone := &Recipient{Role: "employee", PhoneNumber: "+99365000000"}
	boss := &Recipient{Role: "manager"}
	admin := &Recipient{Role: "admin", PhoneNumber: "+99365000001"}

	tests := []struct {
		name      string
		priority  Priority
		recipient *Recipient
		want      []Channel
	}{
		{"normal employee", PriorityNormal, staff, []Channel{ChannelPush, ChannelInApp}},
		{"normal manager gets email", PriorityNormal, boss, []Channel{ChannelPush, ChannelInApp, ChannelEmail}},
		{"high employee gets email", PriorityHigh, staffWithPhone, []Channel{ChannelPush, ChannelInApp, ChannelEmail}},
		{"urgent without phone", PriorityUrgent, boss, []Channel{ChannelPush, ChannelInApp, ChannelEmail}},
		{"urgent with phone", PriorityUrgent, admin, []Channel{ChannelPush, ChannelInApp, ChannelEmail, ChannelSMS}},
		{"urgent employee with phone", PriorityUrgent, staffWithPhone, []Channel{ChannelPush, ChannelInApp, ChannelEmail, ChannelSMS}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeliveryMethods(tt.priority, tt.recipient))
		})
	}
}
