package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-intel-go/internal/api/handler"
	"resume-intel-go/internal/api/router"
	"resume-intel-go/internal/config"
	appLogger "resume-intel-go/internal/logger"
	"resume-intel-go/internal/ocr"
	"resume-intel-go/internal/outbox"
	"resume-intel-go/internal/parser"
	"resume-intel-go/internal/processor"
	"resume-intel-go/internal/storage"
	"resume-intel-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/spf13/pflag"
)

func main() {
	var (
		configPath   string
		sampleConfig string
		logFile      string
	)
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时按默认位置查找")
	pflag.StringVar(&sampleConfig, "write-sample-config", "", "生成示例配置文件到指定路径后退出")
	pflag.StringVar(&logFile, "log-file", "", "同时写入的日志文件路径")
	pflag.Parse()

	if sampleConfig != "" {
		if err := config.CreateSampleConfig(sampleConfig); err != nil {
			hlog.Fatalf("生成示例配置失败: %v", err)
		}
		hlog.Infof("示例配置已写入 %s", sampleConfig)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		hlog.Fatalf("加载配置失败: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		hlog.Fatalf("配置校验失败: %v", err)
	}

	appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		FilePath:     logFile,
	})
	appLogger.SetupHertz()
	log := appLogger.Logger.With().Str("service", cfg.Tracing.ServiceName).Logger()
	log.Info().Str("parser_version", cfg.ActiveParserVersion).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化链路追踪失败")
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("关闭链路追踪失败")
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()

	var recognizer parser.Recognizer
	if cfg.Extraction.OCREnabled {
		recognizer = ocr.NewRecognizerFromConfig(cfg.Extraction)
	}
	resumeProcessor, err := processor.NewResumeProcessorFromConfig(ctx, cfg, recognizer, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化简历分析引擎失败")
	}
	service := processor.NewResumeService(resumeProcessor, processor.DepsFromStorage(storageManager), cfg, &log)

	var relay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		relay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, &cfg.Outbox, log)
		relay.Start()
		log.Info().Msg("消息中继服务已启动")
	} else {
		log.Warn().Msg("MySQL或RabbitMQ不可用，消息中继未启动")
	}

	handlerOpts := []handler.HandlerOption{
		handler.WithHealthChecker(storageManager),
		handler.WithHandlerLogger(log),
	}
	if storageManager.RabbitMQ != nil {
		handlerOpts = append(handlerOpts, handler.WithMessageConsumer(storageManager.RabbitMQ))
	}
	resumeHandler := handler.NewResumeHandler(cfg, service, handlerOpts...)

	consumerCtx, stopConsumers := context.WithCancel(ctx)
	defer stopConsumers()
	var consumersDone <-chan struct{}
	if storageManager.RabbitMQ != nil {
		workers := 4
		if n, ok := cfg.RabbitMQ.ConsumerWorkers["analysis_consumer_workers"]; ok && n > 0 {
			workers = n
		}
		consumersDone, err = resumeHandler.StartAnalysisConsumer(consumerCtx, workers)
		if err != nil {
			log.Fatal().Err(err).Msg("启动分析消费者失败")
		}
		log.Info().Int("workers", workers).Msg("分析消费者已启动")
	}

	h := router.NewServer(cfg)
	router.RegisterRoutes(h, resumeHandler, cfg, log)

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("HTTP 服务器启动中")
		if err := h.Run(); err != nil {
			log.Fatal().Err(err).Msg("HTTP服务器异常退出")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP服务器关闭失败")
	}

	stopConsumers()
	if consumersDone != nil {
		select {
		case <-consumersDone:
		case <-shutdownCtx.Done():
			log.Warn().Msg("等待消费者退出超时")
		}
	}

	if relay != nil {
		relay.Stop()
	}
	log.Info().Msg("服务已退出")
}
