// Package notify delivers completed scan reports to the configured
// channels. Senders are independent; one channel failing never blocks
// another.
package notify

import (
	"context"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// Sender delivers one rendered report to one channel.
type Sender interface {
	// Channel names the channel this sender serves.
	Channel() types.Channel

	// Send delivers the report. Errors are recorded per channel by the
	// fan-out; they never abort other senders.
	Send(ctx context.Context, report *types.ScanReport) error
}
