package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPublishing(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	msg, err := BuildPublishing(map[string]interface{}{"applicationId": "a-1", "decision": "approve"}, now)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, now, msg.Timestamp)
	assert.NotEmpty(t, msg.MessageId)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "approve", decoded["decision"])
}

func TestBuildPublishing_Unencodable(t *testing.T) {
	_, err := BuildPublishing(map[string]interface{}{"ch": make(chan int)}, time.Now())
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "certification.review.decided", nil))
}
