package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"benritz/bonds/internal/collect"
	"benritz/bonds/internal/config"
	"benritz/bonds/internal/logging"
	"benritz/bonds/internal/report"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func getAwsConfig(ctx context.Context, profile string) (aws.Config, error) {
	if profile == "" || profile == "default" {
		return awsconfig.LoadDefaultConfig(ctx)
	}
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithSharedConfigProfile(profile))
}

func main() {
	ctx := context.Background()

	out := flag.String("out", "", "store the results to a local directory or s3://bucket/prefix")
	configPath := flag.String("config", "", "path to a YAML config file")
	helpFlag := flag.Bool("help", false, "print this help message")
	flag.Parse()
	args := flag.Args()

	if len(args) != 1 || *helpFlag {
		fmt.Printf("Usage: %s <flags> <sheet>\n", filepath.Base(os.Args[0]))
		fmt.Printf("  sheet is a csv, tsv, xls or xlsx file with the columns\n")
		fmt.Printf("  name, price, face, coupon, maturity, frequency, amount\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log)

	rows, err := collect.LoadSpecs(args[0])
	if err != nil {
		log.WithError(err).WithField("path", args[0]).Error("failed to load sheet")
		os.Exit(1)
	}

	source := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	batch := collect.AnalyzeSpecs(source, time.Now(), rows, cfg.Params(), log)

	report.WriteBatch(os.Stdout, batch.Records)

	if *out == "" {
		return
	}

	outPath, err := collect.Store(ctx, batch, *out, func() (collect.ObjectPutter, error) {
		awsCfg, err := getAwsConfig(ctx, cfg.Store.AWSProfile)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return s3.NewFromConfig(awsCfg), nil
	})
	if err != nil {
		log.WithError(err).Error("failed to store results")
		os.Exit(1)
	}

	log.WithField("path", outPath).Info("stored results")
}
