// Package access decides whether a request may reach a service operation.
//
// Every route declares a Sensitivity. The authentication middleware turns the
// optional bearer token into a Credential, and Policy.Authorize combines the
// two into a Decision. A denial keeps the underlying verifier error so callers
// can tell "no token" apart from "bad token".
package access
