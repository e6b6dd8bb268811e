package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestSendSMS_PublishesTransactional(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		attr := in.MessageAttributes["AWS.SNS.SMS.SMSType"]
		return aws.ToString(in.PhoneNumber) == "+15551234567" &&
			aws.ToString(in.Message) == "Your code: AB12CD" &&
			aws.ToString(attr.StringValue) == "Transactional"
	})).Return(&sns.PublishOutput{MessageId: aws.String("m1")}, nil)

	require.NoError(t, NewSenderWithClient(pub).SendSMS(context.Background(), "+15551234567", "Your code: AB12CD"))
	pub.AssertExpectations(t)
}

func TestSendSMS_WrapsError(t *testing.T) {
	pub := &mockPublisher{}
	boom := errors.New("throttled")
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil, boom)

	err := NewSenderWithClient(pub).SendSMS(context.Background(), "+1", "x")
	assert.ErrorIs(t, err, boom)
}
