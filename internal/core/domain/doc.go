// Package domain defines the error taxonomy shared by the shardkv service
// and its transports.
//
// Core storage never fails on a per-key basis: absence and duplication are
// reported as booleans. The service layer turns those outcomes into the
// DomainError values declared here, and the HTTP layer maps their codes to
// status codes.
package domain
