package services

import (
	"log/slog"

	pubnub "github.com/pubnub/go"
)

// Notifier pushes payment status transitions to interested clients. The
// registration success page subscribes so it can react without polling.
type Notifier interface {
	NotifyPaymentStatus(registrationID, paymentStatus string)
}

// PubNubNotifier publishes to the per-registration channel.
type PubNubNotifier struct {
	pubnub *pubnub.PubNub
	log    *slog.Logger
}

func NewPubNubNotifier(pn *pubnub.PubNub, log *slog.Logger) *PubNubNotifier {
	return &PubNubNotifier{pubnub: pn, log: log}
}

func (n *PubNubNotifier) NotifyPaymentStatus(registrationID, paymentStatus string) {
	channel := "registration-" + registrationID
	_, _, err := n.pubnub.Publish().
		Channel(channel).
		Message(map[string]interface{}{
			"type":   "payment_status",
			"status": paymentStatus,
		}).
		Execute()
	if err != nil {
		n.log.Warn("pubnub publish failed",
			slog.String("channel", channel),
			slog.Any("error", err),
		)
	}
}

// NoopNotifier is used when no PubNub keys are configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyPaymentStatus(string, string) {}
