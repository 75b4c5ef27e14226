package storage

import (
	"context"
	"fmt"
	"strings"

	"resume-intel-go/internal/config"

	"github.com/rs/zerolog"
)

// Storage 存储管理器，聚合所有存储相关依赖。
// 未配置或初始化失败的组件为nil，调用方需自行判断。
type Storage struct {
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	MySQL    *MySQL
	Redis    *Redis
}

// NewStorage 创建存储管理器，只要有一个组件可用即返回成功
func NewStorage(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}

	storage := &Storage{}
	var err error
	var initErrors []string

	if cfg.MinIO.Endpoint != "" {
		storage.MinIO, err = NewMinIO(&cfg.MinIO, &l)
		if err != nil {
			l.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ, &l)
		if err != nil {
			l.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		} else if err = storage.RabbitMQ.SetupResumeTopology(); err != nil {
			l.Warn().Err(err).Msg("声明RabbitMQ拓扑失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ拓扑: %v", err))
		}
	}

	if cfg.MySQL.Host != "" {
		storage.MySQL, err = NewMySQL(&cfg.MySQL, &l)
		if err != nil {
			l.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			l.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	} else {
		l.Info().Msg("Redis未配置, 跳过初始化")
	}

	if storage.MinIO == nil && storage.RabbitMQ == nil && storage.MySQL == nil && storage.Redis == nil {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		l.Warn().Str("errors", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}
	return storage, nil
}

// Ping 逐个检查已初始化组件的连通性，返回组件名到错误信息的映射
func (s *Storage) Ping(ctx context.Context) map[string]string {
	status := make(map[string]string)
	record := func(name string, err error) {
		if err != nil {
			status[name] = err.Error()
		} else {
			status[name] = "ok"
		}
	}
	if s.MySQL != nil {
		record("mysql", s.MySQL.Ping(ctx))
	}
	if s.Redis != nil {
		record("redis", s.Redis.Ping(ctx))
	}
	if s.RabbitMQ != nil {
		if s.RabbitMQ.IsHealthy() {
			record("rabbitmq", nil)
		} else {
			record("rabbitmq", fmt.Errorf("connection closed"))
		}
	}
	if s.MinIO != nil {
		record("minio", s.MinIO.Ping(ctx))
	}
	return status
}

// Close 关闭所有连接
func (s *Storage) Close() error {
	var errs []string
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("MySQL: %v", err))
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("Redis: %v", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("关闭存储组件失败: %s", strings.Join(errs, "; "))
	}
	return nil
}
