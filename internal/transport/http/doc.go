// Package http contains the chi HTTP handlers of the installer API. Handlers
// stay thin: decode/validate, call the service layer, render JSON or an
// RFC 7807 problem document.
package http
