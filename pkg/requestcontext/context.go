// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing
// net/http. Tests inject them directly:
//
//	ctx = requestcontext.WithPrincipalID(ctx, principalID)
//	ctx = requestcontext.WithDeviceIdentifier(ctx, "device-abc")
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "watchpost/pkg/domain"
)

type (
	principalIDKey      struct{}
	deviceIdentifierKey struct{}
	clientIPKey         struct{}
	userAgentKey        struct{}
	requestIDKey        struct{}
	requestTimeKey      struct{}
)

// PrincipalID retrieves the authenticated principal ID from the context.
// Returns the zero value for anonymous requests.
func PrincipalID(ctx context.Context) id.PrincipalID {
	if principalID, ok := ctx.Value(principalIDKey{}).(id.PrincipalID); ok {
		return principalID
	}
	return id.PrincipalID{}
}

// WithPrincipalID injects a principal ID into the context.
func WithPrincipalID(ctx context.Context, principalID id.PrincipalID) context.Context {
	return context.WithValue(ctx, principalIDKey{}, principalID)
}

// DeviceIdentifier retrieves the opaque device identifier computed by the
// device middleware. Empty when the middleware did not run.
func DeviceIdentifier(ctx context.Context) string {
	if device, ok := ctx.Value(deviceIdentifierKey{}).(string); ok {
		return device
	}
	return ""
}

// WithDeviceIdentifier injects a device identifier into a context. Useful
// for service unit tests that don't run the full HTTP middleware chain.
func WithDeviceIdentifier(ctx context.Context, identifier string) context.Context {
	return context.WithValue(ctx, deviceIdentifierKey{}, identifier)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context, falling back to
// time.Now for non-HTTP contexts such as workers and tests that don't set it.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context so a whole operation
// observes one consistent clock reading.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
