package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	got *sns.PublishInput
	err error
}

func (f *fakePublisher) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: awssdk.String("msg-1")}, nil
}

func TestSNSClient_PublishJSON(t *testing.T) {
	fake := &fakePublisher{}
	client := &SNSClient{client: fake}

	id, err := client.PublishJSON(context.Background(), "arn:aws:sns:us-east-1:123:analyses", "Analysis ready",
		map[string]interface{}{"predictedArr": "$1,000"},
		map[string]string{"confidence": "HIGH"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	in := fake.got
	assert.Equal(t, "arn:aws:sns:us-east-1:123:analyses", awssdk.ToString(in.TopicArn))
	assert.Equal(t, "Analysis ready", awssdk.ToString(in.Subject))

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(awssdk.ToString(in.Message)), &body))
	assert.Equal(t, "$1,000", body["predictedArr"])

	attr := in.MessageAttributes["confidence"]
	assert.Equal(t, "String", awssdk.ToString(attr.DataType))
	assert.Equal(t, "HIGH", awssdk.ToString(attr.StringValue))
}

func TestSNSClient_PublishJSON_Errors(t *testing.T) {
	client := &SNSClient{client: &fakePublisher{err: errors.New("AuthorizationError")}}
	_, err := client.PublishJSON(context.Background(), "arn", "", map[string]string{}, nil)
	assert.EqualError(t, err, "AuthorizationError")

	_, err = client.PublishJSON(context.Background(), "arn", "", make(chan int), nil)
	assert.ErrorContains(t, err, "marshal message")
}
