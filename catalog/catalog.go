// Package catalog implements the projection store: reading and rewriting
// the two partition-projection value properties on the catalog table that
// describes the organization CloudTrail logs. The underlying catalog only
// supports whole-table replacement, so every write carries a full snapshot
// taken by a preceding read.
package catalog

import (
	"context"
	"errors"
	"fmt"
)

// Dimension identifies one partition-projection key on the catalog table.
type Dimension string

const (
	// DimensionAccountID projects the per-account folder level of the log path.
	DimensionAccountID Dimension = "accountid"
	// DimensionRegion projects the per-region folder level of the log path.
	DimensionRegion Dimension = "region"
)

// Dimensions lists every projection dimension the reconciler maintains.
var Dimensions = []Dimension{DimensionAccountID, DimensionRegion}

// PropertyKey returns the table property holding this dimension's enumerated
// projection values, e.g. "projection.accountid.values".
func (d Dimension) PropertyKey() string {
	return fmt.Sprintf("projection.%s.values", string(d))
}

// ErrNotFound is returned by Read when the catalog table does not exist.
// The reconciler never creates the table; a missing table means the static
// infrastructure was not provisioned.
var ErrNotFound = errors.New("catalog table not found")

// SchemaError reports a catalog table provisioned without one of the
// expected projection properties. It is a configuration precondition
// violation: fatal for the run and never repaired silently.
type SchemaError struct {
	Database string
	Table    string
	Key      string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s.%s is missing projection property %q", e.Database, e.Table, e.Key)
}

// Snapshot is a faithful read of the catalog table: its identity, its full
// definition as returned by the store, and a private copy of the property
// map that setters mutate. A Write must carry every field other than the
// substituted property forward verbatim.
type Snapshot struct {
	Database string
	Table    string

	parameters map[string]string
	source     *sourceTable
}

// NewSnapshot builds a snapshot from an explicit property map. It exists
// for alternate store implementations and tests; GlueStore produces its
// snapshots from GetTable. The map is copied.
func NewSnapshot(database, table string, parameters map[string]string) *Snapshot {
	params := make(map[string]string, len(parameters))
	for k, v := range parameters {
		params[k] = v
	}
	return &Snapshot{Database: database, Table: table, parameters: params}
}

// ProjectionValues returns the raw comma-separated value string currently
// held for the dimension's property.
func (s *Snapshot) ProjectionValues(d Dimension) string {
	return s.parameters[d.PropertyKey()]
}

// SetProjectionValues replaces exactly one projection property with the
// supplied joined value string. Every other property is left as read.
func (s *Snapshot) SetProjectionValues(d Dimension, joined string) {
	s.parameters[d.PropertyKey()] = joined
}

// Parameters returns a copy of the snapshot's property map.
func (s *Snapshot) Parameters() map[string]string {
	params := make(map[string]string, len(s.parameters))
	for k, v := range s.parameters {
		params[k] = v
	}
	return params
}

// ProjectionStore reads and conditionally rewrites the projection properties
// of a single catalog table. Implementations against other metadata services
// must keep the read-before-write discipline: Write accepts only a snapshot
// produced by Read with one property substituted.
type ProjectionStore interface {
	Read(ctx context.Context, database, table string) (*Snapshot, error)
	Write(ctx context.Context, snapshot *Snapshot) error
}
