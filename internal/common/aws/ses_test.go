package aws

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSES struct {
	calls int
}

func (c *countingSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	c.calls++
	return &ses.SendEmailOutput{}, nil
}

func TestThrottledSES_RespectsBurst(t *testing.T) {
	api := &countingSES{}
	client := NewThrottledSES(api, 2)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.SendEmail(ctx, &ses.SendEmailInput{})
		require.NoError(t, err)
	}

	// The bucket is drained; a third send cannot complete before the deadline.
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := client.SendEmail(shortCtx, &ses.SendEmailInput{})
	assert.Error(t, err)
	assert.Equal(t, 2, api.calls)
}

func TestThrottledSES_FractionalRateKeepsBurstOfOne(t *testing.T) {
	api := &countingSES{}
	client := NewThrottledSES(api, 0.5)

	_, err := client.SendEmail(context.Background(), &ses.SendEmailInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)
}
