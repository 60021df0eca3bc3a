// Package enrich provides the business boundary for OpsSeer's incident
// enrichment system. It defines the Service (workflow orchestration per
// inbound alert), the Store interface (durable per-incident timeline), the
// alert category dispatch, and the domain models.
package enrich
