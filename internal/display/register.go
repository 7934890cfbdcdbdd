package display

import (
	"inkdisplay/pkg/display"
)

func init() {
	display.Register("mock", newMockFromOptions)
	display.Register("webhook", newWebhookFromOptions)
}
