package middleware

import (
	"net/http"

	"watchpost/internal/device"
	"watchpost/pkg/requestcontext"
)

// DeviceIdentity resolves the request's device identifier. A client-minted
// opaque token in X-Device-ID wins when it satisfies the length contract;
// otherwise the server derives a fingerprint from coarse request signals.
// Requests yielding neither carry no identifier and fail admission later.
func DeviceIdentity(svc *device.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := r.Header.Get("X-Device-ID")
			if device.ValidateIdentifier(identifier) != nil {
				identifier = svc.ComputeFingerprint(device.Signals{
					UserAgent:      r.UserAgent(),
					AcceptLanguage: r.Header.Get("Accept-Language"),
					Platform:       r.Header.Get("Sec-CH-UA-Platform"),
				})
			}
			ctx := requestcontext.WithDeviceIdentifier(r.Context(), identifier)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
