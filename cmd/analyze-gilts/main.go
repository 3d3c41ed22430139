package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"benritz/bonds/internal/collect"
	"benritz/bonds/internal/config"
	"benritz/bonds/internal/logging"
	"benritz/bonds/internal/report"
	"benritz/bonds/internal/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

func getAwsConfig(ctx context.Context, profile string) (aws.Config, error) {
	if profile == "" || profile == "default" {
		return awsconfig.LoadDefaultConfig(ctx)
	}
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithSharedConfigProfile(profile))
}

func newCollector(source string, log logrus.FieldLogger) (collect.Collector, error) {
	switch source {
	case "dmo":
		return collect.NewDMOCollector(log), nil
	case "dividenddata":
		return collect.NewDividendDataCollector(log), nil
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

func main() {
	ctx := context.Background()

	source := flag.String("source", "dmo", "the price source, dmo or dividenddata")
	amount := flag.Float64("amount", 100, "nominal amount valued per gilt")
	profile := flag.String("profile", "", "the AWS profile to use (overrides config)")
	configPath := flag.String("config", "", "path to a YAML config file")
	printTable := flag.Bool("print", false, "print the analysed gilts as a table")
	helpFlag := flag.Bool("help", false, "print this help message")
	flag.Parse()
	args := flag.Args()

	if len(args) != 1 || *helpFlag {
		fmt.Printf("Usage: %s <flags> <destination>\n", filepath.Base(os.Args[0]))
		fmt.Printf("  destination is a local directory or s3://bucket/prefix\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	dst := args[0]

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if *profile != "" {
		cfg.Store.AWSProfile = *profile
	}

	log := logging.New(cfg.Log)

	collector, err := newCollector(*source, log)
	if err != nil {
		log.WithError(err).Error("invalid source")
		os.Exit(1)
	}

	collected, err := collector.Collect(ctx, time.Now())
	if err != nil {
		if errors.Is(err, types.ErrDataUnavailable) {
			log.WithField("source", collector.Source()).Error("data unavailable")
		} else {
			log.WithError(err).Error("failed to collect data")
		}
		os.Exit(1)
	}

	batch := collect.Analyze(collected, cfg.Params(), *amount, log)

	if *printTable {
		report.WriteBatch(os.Stdout, batch.Records)
	}

	outPath, err := collect.Store(ctx, batch, dst, func() (collect.ObjectPutter, error) {
		awsCfg, err := getAwsConfig(ctx, cfg.Store.AWSProfile)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return s3.NewFromConfig(awsCfg), nil
	})
	if err != nil {
		log.WithError(err).Error("failed to store data")
		os.Exit(1)
	}

	log.WithField("path", outPath).Info("stored analysed gilts")
}
