// Package auth attaches API credentials to outgoing requests and keeps them fresh.
//
// [Pipeline] is an [http.RoundTripper] that adds the stored access credential as a bearer token.
// When the API answers 401 with a recoverable code, the pipeline refreshes the credential once
// and retries the request once. Requests that fail while a refresh is in flight wait in a FIFO
// queue for its outcome instead of starting their own refresh. Codes in the hard set end the
// session immediately: both credentials are cleared and the [Redirector] is sent to the entry point.
//
// Credentials live in a [CredentialStore]. Drivers:
//   - memory : process lifetime only
//   - file : JSON file keyed by profile (default)
//   - sqlite : credentials table via [repositories.CredentialRepository]
//   - redis : one key per profile with a TTL matching the refresh expiry
//
// A session started in the browser can be adopted with [ParseCurl]: the bearer token and the
// refresh cookie of a copied request become a new credential pair.
package auth
