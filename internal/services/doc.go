// Package services holds the business logic between the HTTP transport and
// the license/installer cores: license verification with persistence, and
// install orchestration with the single-run guard and progress fan-out.
package services
