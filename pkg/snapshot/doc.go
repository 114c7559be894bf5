// Package snapshot persists the routings of an order.
//
// # Format
//
// Snapshots are BSON documents. Every document carries a schema version:
//
//   - V1: edges without overlap span or percent caps and without transfer points
//   - V2: adds the overlap span and percent complete caps
//   - V3: adds transfer start and end points (current)
//
// [Marshal] always writes the current version. [Unmarshal] reads any known
// version: the document is decoded once into optional fields, then passed
// through the ordered upgrade steps until it is current, and finally rebound
// to the order's operations with edges resolved by per-routing node id.
//
// Quantities are stored as decimal strings and durations as nanoseconds.
package snapshot
