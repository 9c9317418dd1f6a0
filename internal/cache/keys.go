package cache

import "fmt"

// KeyTrackingResult addresses a normalized lookup result in Redis.
func KeyTrackingResult(identifier, trackingType string) string {
	return fmt.Sprintf("track:res:%s:%s", identifier, trackingType)
}

// KeyWebhookReplay addresses the replay guard for one webhook delivery.
func KeyWebhookReplay(provider, digest string) string {
	return fmt.Sprintf("webhook:seen:%s:%s", provider, digest)
}

// KeyShipmentStats addresses the cached registry stats snapshot.
func KeyShipmentStats() string {
	return "shipments:stats"
}
