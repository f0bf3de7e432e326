// Package jwt issues and verifies the access and refresh tokens used by the
// auth engine. Access tokens carry the identity claims a resource server
// needs; refresh tokens carry only the subject plus a random jti so rotation
// can be enforced upstream.
package jwt
