package types

import "fmt"

// ResourceKind identifies a category of idle AWS resource.
type ResourceKind string

const (
	KindEC2       ResourceKind = "ec2"
	KindEBS       ResourceKind = "ebs"
	KindS3        ResourceKind = "s3"
	KindIAMRole   ResourceKind = "iam_role"
	KindIAMUser   ResourceKind = "iam_user"
	KindAccessKey ResourceKind = "access_key"
)

// AllKinds lists every resource kind in sweep order.
var AllKinds = []ResourceKind{
	KindEC2,
	KindEBS,
	KindS3,
	KindIAMRole,
	KindIAMUser,
	KindAccessKey,
}

// GlobalRegion is the pseudo-region used for kinds that are not regional.
const GlobalRegion = "global"

// IsGlobal reports whether the kind is account-wide rather than per-region.
// S3 and IAM are global services; they are probed once per sweep.
func (k ResourceKind) IsGlobal() bool {
	switch k {
	case KindS3, KindIAMRole, KindIAMUser, KindAccessKey:
		return true
	}
	return false
}

// Valid reports whether k is a known resource kind.
func (k ResourceKind) Valid() bool {
	switch k {
	case KindEC2, KindEBS, KindS3, KindIAMRole, KindIAMUser, KindAccessKey:
		return true
	}
	return false
}

// Channel identifies a notification delivery channel.
type Channel string

const (
	ChannelSlack Channel = "slack"
	ChannelEmail Channel = "email"
)

// ParseChannel validates and converts a channel name.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelSlack, ChannelEmail:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}
