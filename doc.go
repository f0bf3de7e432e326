// Package authcore implements the authentication core of the pagelink
// platform: one-time-passcode (OTP) issuing and verification backed by Redis,
// signup and login coordination against an external identity provider,
// username allocation with historical redirects, and JWT token issuing.
//
// Engine methods are safe for concurrent use after initialization through
// [Builder.Build]:
//
//	engine, err := authcore.New().
//		WithRedis(rdb).
//		WithUserStore(store).
//		WithIdentityProvider(idp).
//		WithMailSender(mailer).
//		Build()
//
// Durable user storage, the external identity provider, and email delivery
// are collaborator interfaces on this package; production adapters live under
// store/, provider/, and mail/.
package authcore
