// Package aws builds the AWS service clients shared by a function instance.
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Clients holds one client per AWS service the functions talk to.
// Constructing them makes no network calls.
type Clients struct {
	Config                awssdk.Config
	S3                    *s3.Client
	DynamoDB              *dynamodb.Client
	BedrockRuntime        *bedrockruntime.Client
	DataAutomation        *bedrockdataautomation.Client
	DataAutomationRuntime *bedrockdataautomationruntime.Client
}

// NewClients loads the default credential chain and region (AWS_REGION,
// shared config, instance metadata) and creates every client from it.
func NewClients(ctx context.Context) (*Clients, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS_REGION must be set")
	}
	return FromConfig(cfg), nil
}

// FromConfig creates every client from an already loaded configuration.
func FromConfig(cfg awssdk.Config) *Clients {
	return &Clients{
		Config:                cfg,
		S3:                    s3.NewFromConfig(cfg),
		DynamoDB:              dynamodb.NewFromConfig(cfg),
		BedrockRuntime:        bedrockruntime.NewFromConfig(cfg),
		DataAutomation:        bedrockdataautomation.NewFromConfig(cfg),
		DataAutomationRuntime: bedrockdataautomationruntime.NewFromConfig(cfg),
	}
}
