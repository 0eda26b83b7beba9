package platform

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/connect"
	connecttypes "github.com/aws/aws-sdk-go-v2/service/connect/types"

	"meetrecord/internal/domain"
)

// OperatorProfile — состояние оператора в контакт-центре на момент запроса.
type OperatorProfile struct {
	HierarchyGroupID   string
	Hierarchy          *domain.HierarchyGroup
	SecurityProfileIDs []string
}

// ContactCenter — справочник операторов и контактов контакт-центра.
type ContactCenter interface {
	DescribeOperator(ctx context.Context, operatorID string) (*OperatorProfile, error)
	UpdateContactAttributes(ctx context.Context, contactID string, attributes map[string]string) error
}

type connectAPI interface {
	DescribeUser(ctx context.Context, params *connect.DescribeUserInput, optFns ...func(*connect.Options)) (*connect.DescribeUserOutput, error)
	DescribeUserHierarchyGroup(ctx context.Context, params *connect.DescribeUserHierarchyGroupInput, optFns ...func(*connect.Options)) (*connect.DescribeUserHierarchyGroupOutput, error)
	UpdateContactAttributes(ctx context.Context, params *connect.UpdateContactAttributesInput, optFns ...func(*connect.Options)) (*connect.UpdateContactAttributesOutput, error)
}

// ConnectContactCenter реализует ContactCenter через Amazon Connect.
type ConnectContactCenter struct {
	client     connectAPI
	instanceID string
}

func NewConnectContactCenter(client *connect.Client, instanceID string) *ConnectContactCenter {
	return &ConnectContactCenter{client: client, instanceID: instanceID}
}

// DescribeOperator возвращает группу иерархии и профили безопасности
// оператора. Оператор без группы — валидное состояние, Hierarchy будет nil.
func (c *ConnectContactCenter) DescribeOperator(ctx context.Context, operatorID string) (*OperatorProfile, error) {
	user, err := c.client.DescribeUser(ctx, &connect.DescribeUserInput{
		InstanceId: aws.String(c.instanceID),
		UserId:     aws.String(operatorID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe operator %s: %w", operatorID, err)
	}

	profile := &OperatorProfile{
		HierarchyGroupID:   aws.ToString(user.User.HierarchyGroupId),
		SecurityProfileIDs: user.User.SecurityProfileIds,
	}

	if profile.HierarchyGroupID != "" {
		group, err := c.client.DescribeUserHierarchyGroup(ctx, &connect.DescribeUserHierarchyGroupInput{
			InstanceId:       aws.String(c.instanceID),
			HierarchyGroupId: aws.String(profile.HierarchyGroupID),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe hierarchy group %s: %w", profile.HierarchyGroupID, err)
		}
		profile.Hierarchy = hierarchyFromSDK(group.HierarchyGroup)
	}

	return profile, nil
}

// UpdateContactAttributes дописывает атрибуты к контакту.
func (c *ConnectContactCenter) UpdateContactAttributes(ctx context.Context, contactID string, attributes map[string]string) error {
	_, err := c.client.UpdateContactAttributes(ctx, &connect.UpdateContactAttributesInput{
		InstanceId:       aws.String(c.instanceID),
		InitialContactId: aws.String(contactID),
		Attributes:       attributes,
	})
	if err != nil {
		return fmt.Errorf("failed to update attributes of contact %s: %w", contactID, err)
	}
	return nil
}

func hierarchyFromSDK(g *connecttypes.HierarchyGroup) *domain.HierarchyGroup {
	if g == nil {
		return nil
	}

	group := &domain.HierarchyGroup{
		ID:      aws.ToString(g.Id),
		Name:    aws.ToString(g.Name),
		LevelID: aws.ToString(g.LevelId),
	}

	if g.HierarchyPath != nil {
		group.Path = domain.HierarchyPath{
			LevelOne:   refFromSDK(g.HierarchyPath.LevelOne),
			LevelTwo:   refFromSDK(g.HierarchyPath.LevelTwo),
			LevelThree: refFromSDK(g.HierarchyPath.LevelThree),
			LevelFour:  refFromSDK(g.HierarchyPath.LevelFour),
			LevelFive:  refFromSDK(g.HierarchyPath.LevelFive),
		}
	}

	return group
}

func refFromSDK(s *connecttypes.HierarchyGroupSummary) *domain.HierarchyGroupRef {
	if s == nil {
		return nil
	}
	return &domain.HierarchyGroupRef{
		ID:   aws.ToString(s.Id),
		Name: aws.ToString(s.Name),
	}
}
