package probes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/cost"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// probeStoppedInstances finds instances stopped by a user. Instances
// stopped by AWS (spot reclaim, maintenance) are not cleanup candidates.
func (r *Registry) probeStoppedInstances(ctx context.Context, region string, _ types.ResourceKind) ([]types.ResourceRecord, error) {
	client := r.ec2For(region)

	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("instance-state-name"), Values: []string{"stopped"}},
		},
	}

	var records []types.ResourceRecord
	for {
		output, err := client.DescribeInstances(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe instances in %s: %w", region, err)
		}

		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				if !strings.Contains(aws.ToString(instance.StateTransitionReason), "User initiated") {
					continue
				}

				record := types.ResourceRecord{
					ID:                   aws.ToString(instance.InstanceId),
					Name:                 nameFromTags(instance.Tags),
					Kind:                 types.KindEC2,
					Region:               region,
					EstimatedMonthlyCost: cost.MonthlyEstimate(types.KindEC2, 0),
					Metadata: map[string]string{
						"instance_type": string(instance.InstanceType),
						"state_reason":  aws.ToString(instance.StateTransitionReason),
					},
					FoundAt: r.now(),
				}
				if instance.LaunchTime != nil {
					record.Metadata["launch_time"] = instance.LaunchTime.UTC().Format("2006-01-02")
				}
				records = append(records, record)
			}
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return records, nil
}

// probeUnattachedVolumes finds EBS volumes in the available state, meaning
// nothing is attached to them.
func (r *Registry) probeUnattachedVolumes(ctx context.Context, region string, _ types.ResourceKind) ([]types.ResourceRecord, error) {
	client := r.ec2For(region)

	input := &ec2.DescribeVolumesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("status"), Values: []string{"available"}},
		},
	}

	var records []types.ResourceRecord
	for {
		output, err := client.DescribeVolumes(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe volumes in %s: %w", region, err)
		}

		for _, volume := range output.Volumes {
			sizeGB := int(aws.ToInt32(volume.Size))

			record := types.ResourceRecord{
				ID:                   aws.ToString(volume.VolumeId),
				Name:                 nameFromTags(volume.Tags),
				Kind:                 types.KindEBS,
				Region:               region,
				EstimatedMonthlyCost: cost.MonthlyEstimate(types.KindEBS, sizeGB),
				Metadata: map[string]string{
					"volume_type": string(volume.VolumeType),
					"size_gb":     strconv.Itoa(sizeGB),
				},
				FoundAt: r.now(),
			}
			if volume.CreateTime != nil {
				record.Metadata["created"] = volume.CreateTime.UTC().Format("2006-01-02")
			}
			records = append(records, record)
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	return records, nil
}

func nameFromTags(tags []ec2types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}
