// Package alert delivers operator alerts to Telegram, an outbound webhook
// and Postmark email.
//
// A Notifier always writes the alert to its logger at error level, so a
// deployment without any channel still surfaces alerts in the logs:
//
//	n, err := alert.FromConfig(cfg, log)
//	n.SendAlert(ctx, "Failed to top up batch abc", err)
//
// Each channel has its own token bucket; alerts above the rate are logged
// and dropped.
package alert
