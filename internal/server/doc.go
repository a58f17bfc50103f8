// Package server implements the local session gateway started by `amsctl proxy`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Gateway
//
// [NewGateway] serves every path by forwarding it to the API through the authenticated request
// pipeline, so local tools can call the API without handling credentials. The pipeline attaches
// the bearer credential and refreshes it when it expires; callers only ever see the retried
// response.
//
// The session gate answers 401 {"message":"NO_ACCESS_TOKEN"} with a Location header pointing at
// the login entry point while the credential store holds no session. /health stays open and
// reports whether a session is present.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
