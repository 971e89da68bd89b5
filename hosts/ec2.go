package hosts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

type EC2DiscoveryInput struct {
	AwsConfig aws.Config
	TagKey    string
	TagValue  string

	// Report public IPs instead of private ones, for driving a cluster from
	// outside its VPC.
	UsePublicIP bool
}

// DiscoverEC2 lists the running instances carrying the given tag and returns
// their IPs, for clusters whose workers were launched with spark-ec2 rather
// than written into a slaves file.
func DiscoverEC2(input *EC2DiscoveryInput) ([]string, error) {
	client := ec2.NewFromConfig(input.AwsConfig)

	var workers []string
	var nextToken *string
	for {
		resp, err := client.DescribeInstances(context.Background(), &ec2.DescribeInstancesInput{
			Filters: []ec2Types.Filter{
				{Name: aws.String("tag:" + input.TagKey), Values: []string{input.TagValue}},
				{Name: aws.String("instance-state-name"), Values: []string{string(ec2Types.InstanceStateNameRunning)}},
			},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("describing instances failed: %w", err)
		}

		for _, reservation := range resp.Reservations {
			for _, instance := range reservation.Instances {
				ip := instance.PrivateIpAddress
				if input.UsePublicIP {
					ip = instance.PublicIpAddress
				}
				if ip == nil {
					slog.Warn("instance has no usable IP, skipping", slog.String("instanceID", *instance.InstanceId))
					continue
				}
				workers = append(workers, *ip)
			}
		}

		nextToken = resp.NextToken
		if nextToken == nil {
			break
		}
	}

	slog.Debug("discovered workers by tag",
		slog.String("tag", input.TagKey+"="+input.TagValue),
		slog.Int("count", len(workers)),
	)
	return workers, nil
}
