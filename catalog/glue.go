// Package catalog implements the projection store. This file contains the
// Glue Data Catalog implementation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/smithy-go"

	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/aws"
)

// sourceTable keeps the SDK table type out of the store contract while the
// snapshot still carries the full definition needed for a faithful rewrite.
type sourceTable = types.Table

// GlueStore implements ProjectionStore against the Glue Data Catalog.
// Example:
//
//	store := catalog.NewGlueStore(client)
//	snapshot, err := store.Read(ctx, "audit", "cloudtrail_logs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	snapshot.SetProjectionValues(catalog.DimensionRegion, "eu-west-1,us-east-1")
//	err = store.Write(ctx, snapshot)
type GlueStore struct {
	client aws.GlueClient
}

// NewGlueStore creates a new GlueStore instance.
func NewGlueStore(client aws.GlueClient) *GlueStore {
	return &GlueStore{client: client}
}

// Read returns a full snapshot of the table. It fails with ErrNotFound when
// the table does not exist and with a SchemaError when either expected
// projection property key is absent, since a table without them was not
// provisioned for partition projection at all.
func (g *GlueStore) Read(ctx context.Context, database, table string) (*Snapshot, error) {
	out, err := g.client.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: awssdk.String(database),
		Name:         awssdk.String(table),
	})
	if err != nil {
		var notFound *types.EntityNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s.%s", ErrNotFound, database, table)
		}
		return nil, fmt.Errorf("failed to get table %s.%s: %w", database, table, err)
	}
	if out.Table == nil {
		return nil, fmt.Errorf("get table %s.%s returned an empty response", database, table)
	}

	params := make(map[string]string, len(out.Table.Parameters))
	for k, v := range out.Table.Parameters {
		params[k] = v
	}

	for _, dim := range Dimensions {
		if _, ok := params[dim.PropertyKey()]; !ok {
			return nil, &SchemaError{Database: database, Table: table, Key: dim.PropertyKey()}
		}
	}

	return &Snapshot{
		Database:   database,
		Table:      table,
		parameters: params,
		source:     out.Table,
	}, nil
}

// Write replaces the full table definition with the snapshot's, carrying
// every field read from Glue forward unchanged except the parameter map.
// Retryable Glue failures back off with jitter for a bounded number of
// attempts; anything else fails immediately.
func (g *GlueStore) Write(ctx context.Context, snapshot *Snapshot) error {
	if snapshot.source == nil {
		return fmt.Errorf("snapshot for %s.%s was not produced by a read", snapshot.Database, snapshot.Table)
	}

	input := &glue.UpdateTableInput{
		DatabaseName: awssdk.String(snapshot.Database),
		TableInput:   tableInputFrom(snapshot.source, snapshot.parameters),
	}

	const maxRetries = 5
	attempt := 0
	for {
		_, err := g.client.UpdateTable(ctx, input)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt >= maxRetries {
			return fmt.Errorf("failed to update table %s.%s: %w", snapshot.Database, snapshot.Table, err)
		}
		if !backoffWait(ctx, attempt) {
			return ctx.Err()
		}
		attempt++
	}
}

// tableInputFrom rebuilds the mutable table definition from the table as
// read, substituting only the parameter map. Glue has no partial property
// patch; any field left out of the update would be erased.
func tableInputFrom(t *types.Table, parameters map[string]string) *types.TableInput {
	return &types.TableInput{
		Name:              t.Name,
		Description:       t.Description,
		Owner:             t.Owner,
		Retention:         t.Retention,
		StorageDescriptor: t.StorageDescriptor,
		PartitionKeys:     t.PartitionKeys,
		ViewOriginalText:  t.ViewOriginalText,
		ViewExpandedText:  t.ViewExpandedText,
		TableType:         t.TableType,
		Parameters:        parameters,
		TargetTable:       t.TargetTable,
	}
}

// isRetryable returns true for Glue failures that resolve by waiting:
// throttling, a concurrent writer holding the table, or transient service
// trouble. Validation and access errors are not retried.
func isRetryable(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ThrottlingException",
		"ConcurrentModificationException",
		"InternalServiceException",
		"OperationTimeoutException":
		return true
	}
	return false
}

// backoffWait sleeps before the next UpdateTable attempt, doubling the
// delay per attempt from 100ms up to 30s. Jitter spreads concurrent
// reconcilers contending on the same table. Returns false when the run
// context is cancelled during the wait.
func backoffWait(ctx context.Context, attempt int) bool {
	const (
		base     = 100 * time.Millisecond
		maxDelay = 30 * time.Second
	)

	delay := base * time.Duration(1<<uint(attempt))
	if delay > maxDelay {
		delay = maxDelay
	}
	delay += time.Duration(rand.Int63n(int64(delay)))

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}
