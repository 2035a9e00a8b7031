// Package session issues, resumes and retires encrypted sessions.
//
// Manager checks the operating posture at construction and defends against
// session fixation in Open: an identifier presented by a client is trusted
// only when it names a record that exists and decrypts. Anything else is
// replaced by a freshly generated identifier.
//
// Collector runs the expiry sweep in the background.
package session
