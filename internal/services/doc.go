// Package services is the client for the artist management REST API.
//
// [Client] sends every authenticated call through an [auth.Pipeline], so expired access
// credentials are refreshed transparently. Login and registration bypass the pipeline since
// they run without a session.
//
// Endpoints:
//   - auth: register, login
//   - users: list, get, create, update, delete
//   - artists: list, get, create, update, delete
//   - music: list by artist, get, create, update, delete
//
// Non-2xx responses are returned as [*APIError], which unwraps to the sentinel errors in
// [shared] so callers can use [errors.Is].
package services
