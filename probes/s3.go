package probes

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/cost"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// probeUnusedBuckets flags buckets that are empty, or older than the idle
// cutoff. A per-bucket check failure skips that bucket rather than failing
// the whole target; an account commonly has a few buckets the scanning
// role cannot touch.
func (r *Registry) probeUnusedBuckets(ctx context.Context, _ string, _ types.ResourceKind) ([]types.ResourceRecord, error) {
	output, err := r.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	cutoff := r.cutoff()
	var records []types.ResourceRecord

	for _, bucket := range output.Buckets {
		name := aws.ToString(bucket.Name)

		empty := false
		objects, err := r.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  bucket.Name,
			MaxKeys: aws.Int32(1),
		})
		if err != nil {
			r.logger.Warn().Str("bucket", name).Err(err).Msg("could not check bucket contents")
		} else {
			empty = aws.ToInt32(objects.KeyCount) == 0
		}

		old := bucket.CreationDate != nil && bucket.CreationDate.Before(cutoff)
		if !empty && !old {
			continue
		}

		record := types.ResourceRecord{
			ID:                   name,
			Name:                 name,
			Kind:                 types.KindS3,
			Region:               types.GlobalRegion,
			EstimatedMonthlyCost: cost.MonthlyEstimate(types.KindS3, 0),
			Metadata: map[string]string{
				"is_empty": strconv.FormatBool(empty),
			},
			FoundAt: r.now(),
		}
		if bucket.CreationDate != nil {
			record.Metadata["created"] = bucket.CreationDate.UTC().Format("2006-01-02")
		}
		records = append(records, record)
	}

	return records, nil
}
