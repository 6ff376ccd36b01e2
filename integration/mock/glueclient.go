package mock

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
)

// GlueClient is an in-memory implementation of the aws.GlueClient interface
// for testing. It holds a single mutable table and records every update.
type GlueClient struct {
	// Table is the catalog table served by GetTable and replaced by
	// UpdateTable. Nil behaves like a missing table.
	Table *types.Table
	// Updates records the TableInput of every UpdateTable call in order.
	Updates []*types.TableInput
	// GetErr, when set, is returned by GetTable.
	GetErr error
	// UpdateErr, when set, is returned by UpdateTable.
	UpdateErr error
}

// GetTable implements the GlueClient interface. It returns a copy of the
// stored table so callers cannot mutate the catalog through the response.
func (m *GlueClient) GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Table == nil {
		return nil, &types.EntityNotFoundException{
			Message: awssdk.String("Entity Not Found"),
		}
	}

	table := *m.Table
	table.Parameters = make(map[string]string, len(m.Table.Parameters))
	for k, v := range m.Table.Parameters {
		table.Parameters[k] = v
	}

	return &glue.GetTableOutput{Table: &table}, nil
}

// UpdateTable implements the GlueClient interface. Like Glue itself it
// replaces the full mutable table definition with the supplied input.
func (m *GlueClient) UpdateTable(ctx context.Context, params *glue.UpdateTableInput, optFns ...func(*glue.Options)) (*glue.UpdateTableOutput, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}

	in := params.TableInput
	m.Updates = append(m.Updates, in)

	m.Table = &types.Table{
		Name:              in.Name,
		DatabaseName:      params.DatabaseName,
		Description:       in.Description,
		Owner:             in.Owner,
		Retention:         in.Retention,
		StorageDescriptor: in.StorageDescriptor,
		PartitionKeys:     in.PartitionKeys,
		ViewOriginalText:  in.ViewOriginalText,
		ViewExpandedText:  in.ViewExpandedText,
		TableType:         in.TableType,
		Parameters:        in.Parameters,
		TargetTable:       in.TargetTable,
	}

	return &glue.UpdateTableOutput{}, nil
}
