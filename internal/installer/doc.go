// Package installer implements the install sequence: download the package
// archive, decode it, place plugin and snippet files under the host
// configuration directory, apply the best-effort appearance edit and record
// the installed state. One run is strictly sequential; the service layer
// guarantees only one run is active at a time.
package installer
