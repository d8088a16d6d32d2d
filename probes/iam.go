package probes

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

const dateFormat = "2006-01-02"

// probeDormantRoles finds roles never used, or not used since the idle
// cutoff, per the RoleLastUsed tracking data.
func (r *Registry) probeDormantRoles(ctx context.Context, _ string, _ types.ResourceKind) ([]types.ResourceRecord, error) {
	cutoff := r.cutoff()
	var records []types.ResourceRecord

	input := &iam.ListRolesInput{}
	for {
		output, err := r.iamClient.ListRoles(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}

		for _, role := range output.Roles {
			name := aws.ToString(role.RoleName)

			// ListRoles does not populate RoleLastUsed; GetRole does.
			details, err := r.iamClient.GetRole(ctx, &iam.GetRoleInput{RoleName: role.RoleName})
			if err != nil {
				r.logger.Warn().Str("role", name).Err(err).Msg("could not check role usage")
				continue
			}

			lastUsed := roleLastUsedDate(details.Role)
			if !dormantSince(lastUsed, cutoff) {
				continue
			}

			record := types.ResourceRecord{
				ID:       aws.ToString(role.Arn),
				Name:     name,
				Kind:     types.KindIAMRole,
				Region:   types.GlobalRegion,
				Metadata: map[string]string{},
				FoundAt:  r.now(),
			}
			if lastUsed != nil {
				record.Metadata["last_used"] = lastUsed.UTC().Format(dateFormat)
			} else {
				record.Metadata["last_used"] = "never"
			}
			records = append(records, record)
		}

		if !output.IsTruncated {
			break
		}
		input.Marker = output.Marker
	}

	return records, nil
}

// probeDormantUsers finds users whose console password has not been used
// since the idle cutoff. Users created after the cutoff get a grace
// period.
func (r *Registry) probeDormantUsers(ctx context.Context, _ string, _ types.ResourceKind) ([]types.ResourceRecord, error) {
	cutoff := r.cutoff()
	var records []types.ResourceRecord

	input := &iam.ListUsersInput{}
	for {
		output, err := r.iamClient.ListUsers(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}

		for _, user := range output.Users {
			if user.PasswordLastUsed == nil &&
				user.CreateDate != nil && user.CreateDate.After(cutoff) {
				continue
			}
			if !dormantSince(user.PasswordLastUsed, cutoff) {
				continue
			}

			record := types.ResourceRecord{
				ID:       aws.ToString(user.Arn),
				Name:     aws.ToString(user.UserName),
				Kind:     types.KindIAMUser,
				Region:   types.GlobalRegion,
				Metadata: map[string]string{},
				FoundAt:  r.now(),
			}
			if user.PasswordLastUsed != nil {
				record.Metadata["last_login"] = user.PasswordLastUsed.UTC().Format(dateFormat)
			} else {
				record.Metadata["last_login"] = "never"
			}
			records = append(records, record)
		}

		if !output.IsTruncated {
			break
		}
		input.Marker = output.Marker
	}

	return records, nil
}

// probeStaleAccessKeys finds active access keys that have not signed a
// request since the idle cutoff.
func (r *Registry) probeStaleAccessKeys(ctx context.Context, _ string, _ types.ResourceKind) ([]types.ResourceRecord, error) {
	cutoff := r.cutoff()
	var records []types.ResourceRecord

	usersInput := &iam.ListUsersInput{}
	for {
		usersOutput, err := r.iamClient.ListUsers(ctx, usersInput)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}

		for _, user := range usersOutput.Users {
			userName := aws.ToString(user.UserName)

			keys, err := r.iamClient.ListAccessKeys(ctx, &iam.ListAccessKeysInput{UserName: user.UserName})
			if err != nil {
				r.logger.Warn().Str("user", userName).Err(err).Msg("could not list access keys")
				continue
			}

			for _, key := range keys.AccessKeyMetadata {
				if key.Status != iamtypes.StatusTypeActive {
					continue
				}
				keyID := aws.ToString(key.AccessKeyId)

				usage, err := r.iamClient.GetAccessKeyLastUsed(ctx, &iam.GetAccessKeyLastUsedInput{
					AccessKeyId: key.AccessKeyId,
				})
				if err != nil {
					r.logger.Warn().Str("access_key", keyID).Err(err).Msg("could not check key usage")
					continue
				}

				var lastUsed *time.Time
				if usage.AccessKeyLastUsed != nil {
					lastUsed = usage.AccessKeyLastUsed.LastUsedDate
				}
				if lastUsed == nil && key.CreateDate != nil && key.CreateDate.After(cutoff) {
					continue
				}
				if !dormantSince(lastUsed, cutoff) {
					continue
				}

				record := types.ResourceRecord{
					ID:     keyID,
					Name:   userName,
					Kind:   types.KindAccessKey,
					Region: types.GlobalRegion,
					Metadata: map[string]string{
						"user": userName,
					},
					FoundAt: r.now(),
				}
				if lastUsed != nil {
					record.Metadata["last_used"] = lastUsed.UTC().Format(dateFormat)
				} else {
					record.Metadata["last_used"] = "never"
				}
				records = append(records, record)
			}
		}

		if !usersOutput.IsTruncated {
			break
		}
		usersInput.Marker = usersOutput.Marker
	}

	return records, nil
}

func roleLastUsedDate(role *iamtypes.Role) *time.Time {
	if role == nil || role.RoleLastUsed == nil {
		return nil
	}
	return role.RoleLastUsed.LastUsedDate
}

// dormantSince reports whether a last-used timestamp counts as dormant
// relative to the cutoff. Never-used counts as dormant.
func dormantSince(lastUsed *time.Time, cutoff time.Time) bool {
	return lastUsed == nil || lastUsed.Before(cutoff)
}
