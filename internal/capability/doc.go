// Package capability maps discovered entities to the semantic capability
// types a composite device exposes.
//
// Classify is a pure function over discovery.EntityRecord. Every entity gets
// a type: an explicit device class wins over the unit of measurement, which
// wins over the discovery type, which wins over the generic-switch fallback.
package capability
