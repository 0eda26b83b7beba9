package platform

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings"
	chimetypes "github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings/types"
)

// Attendee — участник конференции на стороне платформы.
type Attendee struct {
	AttendeeID     string `json:"attendeeId"`
	ExternalUserID string `json:"externalUserId"`
	JoinToken      string `json:"joinToken"`
}

// Conferencing — операции над участниками активной конференции.
type Conferencing interface {
	CreateAttendee(ctx context.Context, platformMeetingID, externalUserID string) (*Attendee, error)
	DeleteAttendeeByExternalID(ctx context.Context, platformMeetingID, externalUserID string) error
}

type chimeAPI interface {
	CreateAttendee(ctx context.Context, params *chimesdkmeetings.CreateAttendeeInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.CreateAttendeeOutput, error)
	ListAttendees(ctx context.Context, params *chimesdkmeetings.ListAttendeesInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.ListAttendeesOutput, error)
	DeleteAttendee(ctx context.Context, params *chimesdkmeetings.DeleteAttendeeInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.DeleteAttendeeOutput, error)
}

// ChimeConferencing реализует Conferencing через Chime SDK Meetings.
type ChimeConferencing struct {
	client chimeAPI
}

func NewChimeConferencing(client *chimesdkmeetings.Client) *ChimeConferencing {
	return &ChimeConferencing{client: client}
}

func (c *ChimeConferencing) CreateAttendee(ctx context.Context, platformMeetingID, externalUserID string) (*Attendee, error) {
	result, err := c.client.CreateAttendee(ctx, &chimesdkmeetings.CreateAttendeeInput{
		MeetingId:      aws.String(platformMeetingID),
		ExternalUserId: aws.String(externalUserID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create attendee: %w", err)
	}

	return attendeeFromSDK(result.Attendee), nil
}

// DeleteAttendeeByExternalID удаляет участника по его внешнему
// идентификатору. Платформа адресует участников только внутренним ID,
// поэтому сначала перебираем список.
func (c *ChimeConferencing) DeleteAttendeeByExternalID(ctx context.Context, platformMeetingID, externalUserID string) error {
	var nextToken *string
	for {
		page, err := c.client.ListAttendees(ctx, &chimesdkmeetings.ListAttendeesInput{
			MeetingId: aws.String(platformMeetingID),
			NextToken: nextToken,
		})
		if err != nil {
			return fmt.Errorf("failed to list attendees: %w", err)
		}

		for _, a := range page.Attendees {
			if aws.ToString(a.ExternalUserId) != externalUserID {
				continue
			}
			_, err := c.client.DeleteAttendee(ctx, &chimesdkmeetings.DeleteAttendeeInput{
				MeetingId:  aws.String(platformMeetingID),
				AttendeeId: a.AttendeeId,
			})
			if err != nil {
				return fmt.Errorf("failed to delete attendee: %w", err)
			}
			return nil
		}

		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}

	log.Printf("[Conferencing] Attendee %s not found in meeting %s, nothing to delete", externalUserID, platformMeetingID)
	return nil
}

func attendeeFromSDK(a *chimetypes.Attendee) *Attendee {
	if a == nil {
		return nil
	}
	return &Attendee{
		AttendeeID:     aws.ToString(a.AttendeeId),
		ExternalUserID: aws.ToString(a.ExternalUserId),
		JoinToken:      aws.ToString(a.JoinToken),
	}
}
