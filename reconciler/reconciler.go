// Package reconciler implements the daily reconciliation of the catalog
// table's partition-projection properties against the account folders
// present in the log bucket and the regions enabled for the hosting
// account. Each run recomputes both desired sets from scratch and rewrites
// a property only when its current value differs as a set, so repeated and
// overlapping runs converge on the same result.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/catalog"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/config"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/listing"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/metrics"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/regions"
)

// Reconciler orchestrates one run: discover the desired value sets, then
// compare-and-update each projection dimension independently.
type Reconciler struct {
	cfg     *config.Config
	lister  listing.Lister
	regions regions.Enumerator
	store   catalog.ProjectionStore
	metrics *metrics.Metrics
	log     *zap.Logger
}

// New creates a Reconciler with all required collaborators.
func New(
	cfg *config.Config,
	lister listing.Lister,
	enumerator regions.Enumerator,
	store catalog.ProjectionStore,
	log *zap.Logger,
) *Reconciler {
	return &Reconciler{
		cfg:     cfg,
		lister:  lister,
		regions: enumerator,
		store:   store,
		metrics: metrics.NewMetrics(),
		log:     log,
	}
}

// Run executes one reconciliation pass. Both desired sets are discovered
// before any write is attempted; a discovery failure aborts the run with
// nothing written. The two dimensions are then evaluated independently: a
// failure on one does not prevent the other from being evaluated, and a
// write already committed for one is never rolled back. The returned report
// is valid even when an error is returned.
func (r *Reconciler) Run(ctx context.Context) (metrics.Report, error) {
	accounts, err := r.discoverAccounts(ctx)
	if err != nil {
		return r.metrics.GenerateReport(), fmt.Errorf("account discovery failed: %w", err)
	}

	regionSet, err := r.discoverRegions(ctx)
	if err != nil {
		return r.metrics.GenerateReport(), fmt.Errorf("region discovery failed: %w", err)
	}

	desired := map[catalog.Dimension]map[string]struct{}{
		catalog.DimensionAccountID: accounts,
		catalog.DimensionRegion:    regionSet,
	}

	var errs []error
	for _, dim := range catalog.Dimensions {
		if err := r.reconcileDimension(ctx, dim, desired[dim]); err != nil {
			errs = append(errs, fmt.Errorf("dimension %s: %w", dim, err))
		}
	}

	return r.metrics.GenerateReport(), errors.Join(errs...)
}

// discoverAccounts lists the first-level folders under the log prefix and
// keeps each name iff it is composed entirely of decimal digits. The
// organization ID folder (o-...) shares this level in an organization
// trail bucket and must not leak into the account projection. Rejected
// names are logged as warnings and excluded; they never fail the run.
func (r *Reconciler) discoverAccounts(ctx context.Context) (map[string]struct{}, error) {
	folders, err := r.lister.ListCommonPrefixes(ctx, r.cfg.Bucket, r.cfg.Prefix)
	if err != nil {
		return nil, err
	}

	accounts := make(map[string]struct{}, len(folders))
	for _, name := range folders {
		if !isAccountID(name) {
			r.log.Warn("discarding folder that is not an account id",
				zap.String("folder", name),
				zap.String("bucket", r.cfg.Bucket),
				zap.String("prefix", r.cfg.Prefix))
			r.metrics.RecordDiscarded()
			continue
		}
		accounts[name] = struct{}{}
	}

	r.metrics.RecordAccountsDiscovered(len(accounts))
	r.log.Info("discovered account ids",
		zap.Int("count", len(accounts)),
		zap.Strings("accounts", sortedValues(accounts)))

	return accounts, nil
}

// discoverRegions returns the set of regions enabled for the account.
func (r *Reconciler) discoverRegions(ctx context.Context) (map[string]struct{}, error) {
	names, err := r.regions.Enumerate(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}

	r.metrics.RecordRegionsDiscovered(len(set))
	r.log.Info("discovered regions",
		zap.Int("count", len(set)),
		zap.Strings("regions", sortedValues(set)))

	return set, nil
}

// reconcileDimension reads the current snapshot, compares the dimension's
// property against the desired set, and rewrites the table only on change.
// The snapshot is re-read per dimension so the second write carries forward
// the first write's result instead of a stale property map.
func (r *Reconciler) reconcileDimension(ctx context.Context, dim catalog.Dimension, desired map[string]struct{}) error {
	snapshot, err := r.store.Read(ctx, r.cfg.Database, r.cfg.Table)
	if err != nil {
		return err
	}

	current := splitValues(snapshot.ProjectionValues(dim))
	if equalSets(current, desired) {
		r.log.Info("projection values unchanged, skipping write",
			zap.String("property", dim.PropertyKey()),
			zap.Int("count", len(desired)))
		r.metrics.RecordSkip()
		return nil
	}

	// An empty desired set legally shrinks the property to the empty
	// string; the reconciler never special-cases "never shrink".
	joined := joinValues(desired)

	if r.cfg.DryRun {
		r.log.Info("dry run: would update projection values",
			zap.String("property", dim.PropertyKey()),
			zap.String("value", joined))
		r.metrics.RecordWrite()
		return nil
	}

	snapshot.SetProjectionValues(dim, joined)
	if err := r.store.Write(ctx, snapshot); err != nil {
		return err
	}

	r.metrics.RecordWrite()
	r.log.Info("updated projection values",
		zap.String("property", dim.PropertyKey()),
		zap.Int("previousCount", len(current)),
		zap.Int("count", len(desired)))

	return nil
}

// isAccountID reports whether the folder name is a plausible AWS account
// ID: non-empty and composed entirely of decimal digits.
func isAccountID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// splitValues splits a comma-separated property value into a set, trimming
// whitespace around entries and dropping empties so that formatting noise
// never forces a spurious write.
func splitValues(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		set[value] = struct{}{}
	}
	return set
}

// joinValues joins a set into a comma-separated string. Values are sorted
// for deterministic output; the property contract remains set-based and
// readers must not rely on order.
func joinValues(set map[string]struct{}) string {
	return strings.Join(sortedValues(set), ",")
}

// equalSets compares two sets of strings for equality.
func equalSets(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if _, ok := b[v]; !ok {
			return false
		}
	}
	return true
}

// sortedValues returns the set's members in sorted order.
func sortedValues(set map[string]struct{}) []string {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
