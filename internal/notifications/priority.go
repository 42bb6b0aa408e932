package notifications

import "github.com/richxcame/attendance-tracker/internal/fraud"

// PriorityForSeverity maps a fraud severity to a notification priority
func PriorityForSeverity(s fraud.Severity) Priority {
	if s == fraud.SeverityHigh {
		return PriorityUrgent
	}
	return PriorityNormal
}

// DeliveryMethods picks the channels for a recipient: push and in-app
// always, email for managers or urgent/high priority, SMS only when urgent
// and a phone number is on file.
func DeliveryMethods(p Priority, r *Recipient) []Channel {
	methods := []Channel{ChannelPush, ChannelInApp}

	if r.IsManager() || p == PriorityUrgent || p == PriorityHigh {
		methods = append(methods, ChannelEmail)
	}
	if p == PriorityUrgent && r.PhoneNumber != "" {
		methods = append(methods, ChannelSMS)
	}

	return methods
}
