package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"resume-intel-go/internal/config"
	"resume-intel-go/internal/constants"
	"resume-intel-go/internal/tracing"
	"resume-intel-go/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when a key is not found in Redis.
var ErrNotFound = redis.Nil

var redisTracer = otel.Tracer("resume-intel-go/storage/redis")

// 按key前缀的span采样率，未命中时使用 defaultRedisSampleRate
var redisKeySamplingRates = map[string]float64{
	constants.AppPrefix + ":" + constants.ResumeModulePrefix + ":": 0.1,
	constants.AppPrefix + ":" + constants.JobModulePrefix + ":":    0.25,
	constants.AppPrefix + ":" + constants.FileModulePrefix + ":":   0.05,
}

const defaultRedisSampleRate = 0.05

var (
	rnd      = rand.New(rand.NewSource(time.Now().UnixNano()))
	rndMutex sync.Mutex
)

// shouldSampleRedisOp 根据key前缀决定是否需要创建span
func shouldSampleRedisOp(key string) bool {
	if key == "" {
		return false
	}
	rate := defaultRedisSampleRate
	for prefix, r := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			rate = r
			break
		}
	}
	return randFloat() < rate
}

func randFloat() float64 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return rnd.Float64()
}

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// FormatKey 用动态部分填充 constants 中带 %s 的键模板
func (r *Redis) FormatKey(keyConstant string, parts ...string) string {
	return FormatRedisKey(keyConstant, parts...)
}

// FormatRedisKey 填充键模板；模板占位符多于参数时以空串补齐
func FormatRedisKey(keyConstant string, parts ...string) string {
	n := strings.Count(keyConstant, "%s")
	if n == 0 {
		if len(parts) == 0 {
			return keyConstant
		}
		return keyConstant + ":" + strings.Join(parts, ":")
	}
	args := make([]interface{}, n)
	for i := 0; i < n; i++ {
		if i < len(parts) {
			args[i] = parts[i]
		} else {
			args[i] = ""
		}
	}
	return fmt.Sprintf(keyConstant, args...)
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	})

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// GetMD5ExpireDuration 返回配置的MD5记录过期时间
func (r *Redis) GetMD5ExpireDuration() time.Duration {
	if r.config == nil || r.config.MD5RecordExpireDays <= 0 {
		return constants.DefaultMD5Expiry
	}
	return time.Duration(r.config.MD5RecordExpireDays) * 24 * time.Hour
}

func (r *Redis) analysisCacheTTL() time.Duration {
	if r.config == nil || r.config.AnalysisCacheTTLHours <= 0 {
		return constants.AnalysisCacheDuration
	}
	return time.Duration(r.config.AnalysisCacheTTLHours) * time.Hour
}

func (r *Redis) jobCacheTTL() time.Duration {
	if r.config == nil || r.config.JobCacheTTLMinutes <= 0 {
		return constants.JobCacheDuration
	}
	return time.Duration(r.config.JobCacheTTLMinutes) * time.Minute
}

func (r *Redis) startSpan(ctx context.Context, name, operation, key string) (context.Context, trace.Span) {
	ctx, span := redisTracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	attrs := []attribute.KeyValue{
		semconv.DBSystemRedis,
		attribute.String("db.operation", operation),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
	}
	if r.config != nil {
		attrs = append(attrs,
			attribute.String("db.redis.database", fmt.Sprintf("%d", r.config.DB)),
			attribute.String("net.peer.name", r.config.Address),
		)
	}
	span.SetAttributes(attrs...)
	return ctx, span
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// checkAndAddScript 原子地检查成员是否存在并加入集合，同时刷新过期时间
const checkAndAddScript = `
	local exists = redis.call('SISMEMBER', KEYS[1], ARGV[1])
	redis.call('SADD', KEYS[1], ARGV[1])
	redis.call('EXPIRE', KEYS[1], ARGV[2])
	return exists
`

// CheckAndAddParsedTextMD5 检查并添加提取文本MD5到集合，是一个原子操作
func (r *Redis) CheckAndAddParsedTextMD5(ctx context.Context, md5Hex string) (exists bool, err error) {
	key := constants.KeyTextMD5Set
	ctx, span := r.startSpan(ctx, "Redis.CheckAndAddParsedTextMD5", "EVAL", key)
	defer span.End()
	span.SetAttributes(attribute.String("db.redis.member", md5Hex))

	if r.Client == nil {
		err = fmt.Errorf("redis client is not initialized")
		failSpan(span, err)
		return false, err
	}

	res, err := r.Client.Eval(ctx, checkAndAddScript, []string{key}, md5Hex, int64(r.GetMD5ExpireDuration().Seconds())).Result()
	if err != nil {
		failSpan(span, err)
		return false, fmt.Errorf("执行原子检查和添加操作失败: %w", err)
	}

	existsVal, ok := res.(int64)
	if !ok {
		err = fmt.Errorf("意外的Redis返回类型: %T", res)
		failSpan(span, err)
		return false, err
	}

	exists = existsVal == 1
	span.SetAttributes(attribute.Bool("already_exists", exists))
	span.SetStatus(codes.Ok, "")
	return exists, nil
}

// CheckAndSetMD5 检查文件MD5是否已登记；未登记时登记并记录其 submission_uuid
// 返回值: 是否已存在、已存在时对应的 submission_uuid
func (r *Redis) CheckAndSetMD5(ctx context.Context, md5 string, submissionUUID string) (bool, string, error) {
	setKey := constants.KeyFileMD5Set
	ctx, span := r.startSpan(ctx, "Redis.CheckAndSetMD5", "SADD", setKey)
	defer span.End()

	if r.Client == nil {
		err := fmt.Errorf("redis client is not initialized")
		failSpan(span, err)
		return false, "", err
	}

	mapKey := r.FormatKey(constants.KeyFileMD5ToSubmissionUUID, md5)
	expiry := r.GetMD5ExpireDuration()

	pipe := r.Client.TxPipeline()
	addCmd := pipe.SAdd(ctx, setKey, md5)
	setNXCmd := pipe.SetNX(ctx, mapKey, submissionUUID, expiry)
	pipe.Expire(ctx, setKey, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		failSpan(span, err)
		return false, "", fmt.Errorf("执行原子添加MD5操作失败: %w", err)
	}

	if addCmd.Val() > 0 || setNXCmd.Val() {
		span.SetAttributes(attribute.Bool("already_exists", false))
		return false, "", nil
	}

	existingUUID, err := r.Client.Get(ctx, mapKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		failSpan(span, err)
		return true, "", fmt.Errorf("获取已存在的submission_uuid失败: %w", err)
	}
	span.SetAttributes(attribute.Bool("already_exists", true))
	return true, existingUUID, nil
}

// RemoveFileMD5 撤销一次文件MD5登记，上传流程失败时调用
func (r *Redis) RemoveFileMD5(ctx context.Context, md5 string) error {
	key := constants.KeyFileMD5Set
	ctx, span := r.startSpan(ctx, "Redis.RemoveFileMD5", "SREM", key)
	defer span.End()

	pipe := r.Client.TxPipeline()
	pipe.SRem(ctx, key, md5)
	pipe.Del(ctx, r.FormatKey(constants.KeyFileMD5ToSubmissionUUID, md5))
	if _, err := pipe.Exec(ctx); err != nil {
		failSpan(span, err)
		return fmt.Errorf("从集合中移除MD5失败: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// RemoveParsedTextMD5 从提取文本MD5集合中移除，分析未落库时回滚
func (r *Redis) RemoveParsedTextMD5(ctx context.Context, md5Hex string) error {
	key := constants.KeyTextMD5Set
	ctx, span := r.startSpan(ctx, "Redis.RemoveParsedTextMD5", "SREM", key)
	defer span.End()

	if r.Client == nil {
		err := fmt.Errorf("redis client is not initialized")
		failSpan(span, err)
		return err
	}
	if err := r.Client.SRem(ctx, key, md5Hex).Err(); err != nil {
		failSpan(span, err)
		return fmt.Errorf("从集合中移除文本MD5失败: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Get 获取键的值
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = r.startSpan(ctx, "Redis.Get", "GET", key)
		defer span.End()
	}

	val, err := r.Client.Get(ctx, key).Result()
	if span != nil {
		switch {
		case errors.Is(err, redis.Nil):
			// key不存在不算作错误
			span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
		case err != nil:
			failSpan(span, err)
		default:
			span.SetAttributes(
				attribute.Bool("db.redis.key_exists", true),
				attribute.Int("db.redis.value_length", len(val)),
			)
		}
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set 设置键的值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = r.startSpan(ctx, "Redis.Set", "SET", key)
		defer span.End()
		span.SetAttributes(attribute.Int("db.redis.value_length", len(value)))
		if expiration > 0 {
			span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
		}
	}

	err := r.Client.Set(ctx, key, value, expiration).Err()
	if err != nil && span != nil {
		failSpan(span, err)
	}
	return err
}

// CachedAnalysis 按文件MD5缓存的分析结果
type CachedAnalysis struct {
	SubmissionUUID string             `json:"submission_uuid,omitempty"`
	ParsedResume   types.ParsedResume `json:"parsed_resume"`
	Sections       []types.Section    `json:"sections"`
	TextLength     int                `json:"text_length"`
	CachedAt       time.Time          `json:"cached_at"`
}

// CacheAnalysis 缓存某个文件MD5的分析结果
func (r *Redis) CacheAnalysis(ctx context.Context, fileMD5 string, analysis *CachedAnalysis) error {
	if analysis == nil {
		return fmt.Errorf("analysis cannot be nil")
	}
	if analysis.CachedAt.IsZero() {
		analysis.CachedAt = time.Now()
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("序列化分析结果失败: %w", err)
	}
	return r.Set(ctx, r.FormatKey(constants.KeyResumeAnalysis, fileMD5), string(data), r.analysisCacheTTL())
}

// GetCachedAnalysis 读取缓存的分析结果，未命中时返回 ErrNotFound
func (r *Redis) GetCachedAnalysis(ctx context.Context, fileMD5 string) (*CachedAnalysis, error) {
	val, err := r.Get(ctx, r.FormatKey(constants.KeyResumeAnalysis, fileMD5))
	if err != nil {
		return nil, err
	}
	var cached CachedAnalysis
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, fmt.Errorf("反序列化分析结果失败: %w", err)
	}
	return &cached, nil
}

// CacheJobRequirement 缓存岗位要求
func (r *Redis) CacheJobRequirement(ctx context.Context, jobID string, job *types.JobRequirement) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("序列化岗位要求失败: %w", err)
	}
	return r.Set(ctx, r.FormatKey(constants.KeyJobRequirement, jobID), string(data), r.jobCacheTTL())
}

// GetCachedJobRequirement 读取缓存的岗位要求，未命中时返回 ErrNotFound
func (r *Redis) GetCachedJobRequirement(ctx context.Context, jobID string) (*types.JobRequirement, error) {
	val, err := r.Get(ctx, r.FormatKey(constants.KeyJobRequirement, jobID))
	if err != nil {
		return nil, err
	}
	var job types.JobRequirement
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return nil, fmt.Errorf("反序列化岗位要求失败: %w", err)
	}
	return &job, nil
}

// InvalidateJobRequirement 删除岗位要求缓存
func (r *Redis) InvalidateJobRequirement(ctx context.Context, jobID string) error {
	return r.Client.Del(ctx, r.FormatKey(constants.KeyJobRequirement, jobID)).Err()
}

// AcquireLock 尝试获取一个分布式锁，未获取到时返回空字符串
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	lockValue := fmt.Sprintf("%d", time.Now().UnixNano())
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return lockValue, nil
	}
	return "", nil
}

// ReleaseLock 释放一个分布式锁，使用Lua脚本保证只删除自己持有的锁
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	script := `
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        else
            return 0
        end
    `
	res, err := r.Client.Eval(ctx, script, []string{lockKey}, lockValue).Result()
	if err != nil {
		return false, err
	}
	if released, ok := res.(int64); ok && released == 1 {
		return true, nil
	}
	return false, nil
}
