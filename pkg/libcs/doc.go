// Package libcs is a client for the remote authentication endpoint of a Creative Space deployment.
//
// The endpoint receives form-encoded POST requests with an `action` field (signin or signup)
// and replies with a JSON envelope:
//
//	{"success": true, "data": {"name": "Alice"}}
//	{"success": false, "message": "Invalid email or password"}
package libcs
