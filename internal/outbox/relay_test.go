package outbox

import (
	"errors"
	"testing"
	"time"

	"resume-intel-go/internal/config"
	"resume-intel-go/internal/storage/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestApplyPublishResult_Success(t *testing.T) {
	msg := &models.OutboxMessage{Status: models.OutboxStatusPending, RetryCount: 2, ErrorMessage: "old"}
	now := time.Now()
	applyPublishResult(msg, nil, now)

	assert.Equal(t, models.OutboxStatusSent, msg.Status)
	assert.Equal(t, &now, msg.ProcessedAt)
	assert.Empty(t, msg.ErrorMessage, "成功后应清空错误信息")
}

func TestApplyPublishResult_RetryThenFail(t *testing.T) {
	msg := &models.OutboxMessage{Status: models.OutboxStatusPending}
	for i := 1; i < maxRetryCount; i++ {
		applyPublishResult(msg, errors.New("broker down"), time.Now())
		assert.Equal(t, models.OutboxStatusPending, msg.Status, "未达到最大重试次数前保持PENDING")
		assert.Equal(t, i, msg.RetryCount)
	}
	applyPublishResult(msg, errors.New("broker down"), time.Now())
	assert.Equal(t, models.OutboxStatusFailed, msg.Status, "达到最大重试次数后标记为FAILED")
	assert.Equal(t, "broker down", msg.ErrorMessage)
	assert.Nil(t, msg.ProcessedAt)
}

func TestNewMessageRelay_Config(t *testing.T) {
	r := NewMessageRelay(nil, nil, nil, zerolog.Nop())
	assert.Equal(t, defaultPollingInterval, r.pollingInterval)
	assert.Equal(t, defaultBatchSize, r.batchSize)

	r = NewMessageRelay(nil, nil, &config.OutboxConfig{PollInterval: "250ms", BatchSize: 3}, zerolog.Nop())
	assert.Equal(t, 250*time.Millisecond, r.pollingInterval)
	assert.Equal(t, 3, r.batchSize)

	r = NewMessageRelay(nil, nil, &config.OutboxConfig{PollInterval: "bogus"}, zerolog.Nop())
	assert.Equal(t, defaultPollingInterval, r.pollingInterval, "非法间隔回退到默认值")
}

func TestMessageRelay_StopIsIdempotent(t *testing.T) {
	r := NewMessageRelay(nil, nil, &config.OutboxConfig{PollInterval: "1h"}, zerolog.Nop())
	r.Start()
	r.Stop()
	assert.NotPanics(t, r.Stop, "重复Stop不应panic")
}
