package clients

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

const defaultAWSRegion = "us-west-2"

var (
	awsCfg   aws.Config
	awsOnce  sync.Once
	endpoint string
)

func GetAWSConfig() aws.Config {
	awsOnce.Do(func() {
		endpoint = os.Getenv("AWS_ENDPOINT")
		region := os.Getenv("AWS_REGION")
		if region == "" {
			region = defaultAWSRegion
		}

		slog.Info("[AWSClient] Initializing AWS Config...",
			slog.String("region", region),
			slog.String("endpoint", endpoint))
		cfg, err := config.LoadDefaultConfig(context.Background(),
			config.WithRegion(region))
		if err != nil {
			slog.Error("[AWSClient] Failed to load AWS config")
			panic(err)
		}

		awsCfg = cfg
		slog.Info("[AWSClient] AWS Config Initialized")
	})

	return awsCfg
}

// GetDynamoDBClient returns a client for the configured region. AWS_ENDPOINT
// points it at DynamoDB Local when set.
func GetDynamoDBClient() *dynamodb.Client {
	cfg := GetAWSConfig()
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}
