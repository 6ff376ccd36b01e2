// Package main implements the projection-reconciler command. It loads
// configuration from the environment with flag overrides, wires the AWS
// clients and runs a single reconciliation pass.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/aws"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/catalog"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/config"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/listing"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/logging"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/metrics"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/reconciler"
	"github.com/aws-samples/running-sql-on-org-audit-logs-using-partition-projection/regions"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run builds the command, binds flags over the environment configuration
// and executes it under a signal-aware context.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cmd := &cobra.Command{
		Use:          "projection-reconciler",
		Short:        "Reconcile Athena partition-projection values for the organization CloudTrail table",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reconcile(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&cfg.Bucket, "bucket", cfg.Bucket, "organization CloudTrail log bucket")
	fs.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "key prefix above the per-account folders, no trailing slash")
	fs.StringVar(&cfg.Database, "database", cfg.Database, "Glue database of the projected table")
	fs.StringVar(&cfg.Table, "table", cfg.Table, "Glue table carrying the projection properties")
	fs.StringVar(&cfg.Region, "region", cfg.Region, "AWS region (defaults to the SDK resolution chain)")
	fs.StringVar(&cfg.ReportS3URI, "report", cfg.ReportS3URI, "optional S3 URI for the run report")
	fs.DurationVar(&cfg.RunTimeout, "timeout", cfg.RunTimeout, "upper bound for the whole run")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "compute and log changes without writing")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (json|console)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd.ExecuteContext(ctx)
}

// reconcile wires the collaborators and runs one pass under the configured
// timeout.
func reconcile(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Transient I/O to all three collaborators retries with bounded
	// backoff inside the SDK; exhaustion surfaces as a fatal run error.
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMaxAttempts(5),
	}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := aws.NewS3Client(s3.NewFromConfig(awsCfg))
	ec2Client := aws.NewEC2Client(ec2.NewFromConfig(awsCfg))
	glueClient := aws.NewGlueClient(glue.NewFromConfig(awsCfg))

	rec := reconciler.New(
		cfg,
		listing.NewS3Lister(s3Client),
		regions.NewEC2Enumerator(ec2Client),
		catalog.NewGlueStore(glueClient),
		log,
	)

	runCtx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	log.Info("starting reconciliation",
		zap.String("bucket", cfg.Bucket),
		zap.String("prefix", cfg.Prefix),
		zap.String("table", cfg.Database+"."+cfg.Table),
		zap.Bool("dryRun", cfg.DryRun))

	report, runErr := rec.Run(runCtx)
	fmt.Println(report)

	if cfg.ReportS3URI != "" {
		uploader, err := metrics.NewS3Uploader(s3Client, cfg.ReportS3URI)
		if err != nil {
			return fmt.Errorf("failed to create report uploader: %w", err)
		}
		if err := uploader.Upload(ctx, report); err != nil {
			return fmt.Errorf("failed to upload report: %w", err)
		}
		log.Info("report uploaded", zap.String("uri", cfg.ReportS3URI))
	}

	if runErr != nil {
		return fmt.Errorf("reconciliation failed: %w", runErr)
	}

	log.Info("reconciliation completed")
	return nil
}
