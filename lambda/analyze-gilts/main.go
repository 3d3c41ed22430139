package main

import (
	"context"
	"fmt"
	"time"

	"benritz/bonds/internal/collect"
	"benritz/bonds/internal/config"
	"benritz/bonds/internal/logging"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func analyzeGilts(ctx context.Context) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	if cfg.Store.BucketName == "" {
		return fmt.Errorf("BONDS_DATA_BUCKET_NAME is not set")
	}

	path := &collect.S3Path{
		Bucket: cfg.Store.BucketName,
		Prefix: cfg.Store.BucketPrefix,
	}

	log := logging.New(cfg.Log)

	collector := collect.NewDMOCollector(log)

	collected, err := collector.Collect(ctx, time.Now())
	if err != nil {
		return err
	}

	batch := collect.Analyze(collected, cfg.Params(), 100, log)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	outPath, err := collect.StoreToS3(ctx, batch, s3.NewFromConfig(awsCfg), path)
	if err != nil {
		return err
	}

	log.WithField("path", outPath).Info("stored analysed gilts")

	return nil
}

func responseWithFailure(rec events.SQSMessage) events.SQSEventResponse {
	return events.SQSEventResponse{
		BatchItemFailures: []events.SQSBatchItemFailure{
			{
				ItemIdentifier: rec.MessageId,
			},
		},
	}
}

func handler(ctx context.Context, request events.SQSEvent) (events.SQSEventResponse, error) {
	err := analyzeGilts(ctx)

	if err != nil && len(request.Records) > 0 {
		// one trigger message per run
		rec := request.Records[0]
		return responseWithFailure(rec), fmt.Errorf("failed to analyse gilts: %w", err)
	}

	return events.SQSEventResponse{}, err
}

func main() {
	lambda.Start(handler)
}
