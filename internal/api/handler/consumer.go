package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"resume-intel-go/internal/storage"
	"resume-intel-go/internal/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("resume-intel-go/consumer")

// ErrConsumerNotConfigured 未配置消息队列时启动消费者
var ErrConsumerNotConfigured = errors.New("消息队列未配置，无法启动分析消费者")

// StartAnalysisConsumer 启动 workers 个分析队列消费者。
// 返回的通道在所有消费者退出后关闭；处理失败的消息 Nack 且不重新入队。
func (h *ResumeHandler) StartAnalysisConsumer(ctx context.Context, workers int) (<-chan struct{}, error) {
	if h.consumer == nil {
		return nil, ErrConsumerNotConfigured
	}
	if workers <= 0 {
		workers = 1
	}
	queue := h.cfg.RabbitMQ.AnalysisQueue
	prefetch := h.cfg.RabbitMQ.PrefetchCount

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		done, err := h.consumer.StartConsumer(ctx, queue, prefetch, func(body []byte) bool {
			return h.HandleAnalysisMessage(ctx, body)
		})
		if err != nil {
			return nil, fmt.Errorf("启动第 %d 个分析消费者失败: %w", i+1, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-done
		}()
	}

	h.logger.Info().Str("queue", queue).Int("workers", workers).Int("prefetch", prefetch).Msg("分析队列消费者已启动")

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()
	return allDone, nil
}

// HandleAnalysisMessage 处理一条上传消息，返回 true 表示可以 Ack
func (h *ResumeHandler) HandleAnalysisMessage(ctx context.Context, body []byte) bool {
	ctx, span := consumerTracer.Start(ctx, "consumer.ResumeAnalysis", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var msg storage.ResumeUploadMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error().Err(err).Int("body_size", len(body)).Msg("解析上传消息失败")
		tracing.RecordMessageRejected(span, "", "invalid_json")
		return false
	}
	if msg.SubmissionUUID == "" {
		h.logger.Error().Msg("上传消息缺少 submission_uuid")
		tracing.RecordMessageRejected(span, "", "missing_submission_uuid")
		return false
	}
	span.SetAttributes(attribute.String("submission.uuid", msg.SubmissionUUID))

	if err := h.service.ProcessAnalysisMessage(ctx, msg); err != nil {
		h.logger.Error().Err(err).Str("submission_uuid", msg.SubmissionUUID).Msg("简历分析失败")
		tracing.RecordMessageRejected(span, msg.SubmissionUUID, err.Error())
		return false
	}
	return true
}
