package authcore

import "context"

type clientIPContextKey struct{}
type deviceMACContextKey struct{}
type venueIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. Used for optional
// per-IP throttling and audit records.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithDeviceMAC attaches the captive-portal client MAC address to ctx. It is
// recorded in the guest-access compliance event and scopes nothing else.
func WithDeviceMAC(ctx context.Context, mac string) context.Context {
	return context.WithValue(ctx, deviceMACContextKey{}, mac)
}

// WithVenueID attaches the business/venue identifier of a captive portal to
// ctx. Guest OTP keys are scoped by it so codes for different venues do not
// collide.
func WithVenueID(ctx context.Context, venueID string) context.Context {
	return context.WithValue(ctx, venueIDContextKey{}, venueID)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func deviceMACFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	mac, _ := ctx.Value(deviceMACContextKey{}).(string)
	return mac
}

func venueIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	venue, _ := ctx.Value(venueIDContextKey{}).(string)
	return venue
}
