// Package types defines the Resource and Datum records, the handler capability,
// the DocumentStore interface, and the error taxonomy shared by the filestore
// packages.
//
// A Resource names one physical data container (a path plus the fixed
// parameters needed to open it). A Datum names one logical slice inside a
// resource. Both are immutable once persisted.
package types
