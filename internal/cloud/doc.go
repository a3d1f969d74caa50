// Package cloud is the HTTP client for the Emporia Vue cloud API.
//
// It covers the four calls a run needs:
//
//   - Authenticate: Cognito InitiateAuth (USER_PASSWORD_AUTH) for an id token
//   - CustomerID: customer lookup by account email
//   - Devices: the device tree flattened into (device gid, channel) pairs
//   - Usage: one getChartUsage query, returned as the raw response body
//
// Every request is bearer-authenticated through the authtoken header except
// Authenticate. Non-2xx responses come back as *StatusError. When the logger
// is at debug level, each exchange is dumped with headers and body, with
// secrets redacted.
//
// The client holds no token itself; callers pass the current token to each
// call so credential lifetime stays with the caller.
package cloud
