// Package probes implements the per-kind AWS scans behind the orchestrator.
// Each probe answers one question: which resources of this kind, in this
// region, look idle right now.
package probes

import (
	"context"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/config"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/orchestrator"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/telemetry"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// EC2API is the subset of the EC2 client the probes call.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
}

// S3API is the subset of the S3 client the probes call.
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// IAMAPI is the subset of the IAM client the probes call.
type IAMAPI interface {
	ListRoles(ctx context.Context, params *iam.ListRolesInput, optFns ...func(*iam.Options)) (*iam.ListRolesOutput, error)
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	ListUsers(ctx context.Context, params *iam.ListUsersInput, optFns ...func(*iam.Options)) (*iam.ListUsersOutput, error)
	ListAccessKeys(ctx context.Context, params *iam.ListAccessKeysInput, optFns ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error)
	GetAccessKeyLastUsed(ctx context.Context, params *iam.GetAccessKeyLastUsedInput, optFns ...func(*iam.Options)) (*iam.GetAccessKeyLastUsedOutput, error)
}

// Registry holds AWS clients and builds the probe set injected into the
// orchestrator.
type Registry struct {
	mu         sync.Mutex
	ec2Clients map[string]EC2API
	newEC2     func(region string) EC2API

	s3Client  S3API
	iamClient IAMAPI

	idleCutoff time.Duration
	now        func() time.Time
	logger     *telemetry.Logger
}

// New builds a registry with real AWS clients. Regional EC2 clients are
// created lazily per region; S3 and IAM are global and shared.
func New(ctx context.Context, awsCfg config.AWSConfig, idleDays int) (*Registry, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if awsCfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(awsCfg.Profile))
	}

	base, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if idleDays <= 0 {
		idleDays = 30
	}

	return &Registry{
		ec2Clients: make(map[string]EC2API),
		newEC2: func(region string) EC2API {
			cfg := base.Copy()
			cfg.Region = region
			return ec2.NewFromConfig(cfg)
		},
		s3Client:   s3.NewFromConfig(base),
		iamClient:  iam.NewFromConfig(base),
		idleCutoff: time.Duration(idleDays) * 24 * time.Hour,
		now:        time.Now,
		logger:     telemetry.NewLogger("probes"),
	}, nil
}

// NewWithClients builds a registry over injected clients, for tests.
func NewWithClients(ec2Factory func(region string) EC2API, s3c S3API, iamc IAMAPI, idleCutoff time.Duration) *Registry {
	return &Registry{
		ec2Clients: make(map[string]EC2API),
		newEC2:     ec2Factory,
		s3Client:   s3c,
		iamClient:  iamc,
		idleCutoff: idleCutoff,
		now:        time.Now,
		logger:     telemetry.NewLogger("probes"),
	}
}

func (r *Registry) ec2For(region string) EC2API {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.ec2Clients[region]
	if !ok {
		client = r.newEC2(region)
		r.ec2Clients[region] = client
	}
	return client
}

func (r *Registry) cutoff() time.Time {
	return r.now().Add(-r.idleCutoff)
}

// ProbeSet returns the explicit kind→probe mapping the orchestrator runs.
func (r *Registry) ProbeSet() orchestrator.ProbeSet {
	return orchestrator.ProbeSet{
		types.KindEC2:       r.probeStoppedInstances,
		types.KindEBS:       r.probeUnattachedVolumes,
		types.KindS3:        r.probeUnusedBuckets,
		types.KindIAMRole:   r.probeDormantRoles,
		types.KindIAMUser:   r.probeDormantUsers,
		types.KindAccessKey: r.probeStaleAccessKeys,
	}
}
