package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-intel-go/internal/config"
	"resume-intel-go/internal/storage/models"
	"resume-intel-go/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("resume-intel-go/storage/mysql")

// ErrRecordNotFound 记录不存在
var ErrRecordNotFound = gorm.ErrRecordNotFound

type otelSpanKey struct{}

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"CREATE", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"ROW", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"RAW", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("otel:before_"+h.op, p.before(h.op)); err != nil {
			return err
		}
		if err := h.after("otel:after_"+h.op, p.after()); err != nil {
			return err
		}
	}
	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}
		if sqlStatement := db.Statement.SQL.String(); sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(attribute.String("db.statement", tracing.SafeSQL(sqlStatement))))
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName), opts...)
		db.Statement.Context = context.WithValue(newCtx, otelSpanKey{}, span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.Context == nil {
			return
		}
		span, ok := db.Statement.Context.Value(otelSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			// 查不到记录属于正常业务分支
			span.SetAttributes(attribute.String("error.type", "record_not_found"))
			span.SetStatus(codes.Ok, "record not found")
		default:
			span.SetAttributes(
				attribute.String("error.type", "database_error"),
				attribute.String("error.message", db.Error.Error()),
			)
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer: mysqlTracer,
		dbName: dbName,
	}
}

// gormLogWriter 把GORM日志转发到zerolog
type gormLogWriter struct {
	logger zerolog.Logger
}

func (w gormLogWriter) Printf(format string, args ...interface{}) {
	w.logger.Info().Msgf(format, args...)
}

// Database 关系数据库接口
type Database interface {
	DB() *gorm.DB
	Close() error
	Ping(ctx context.Context) error
}

var _ Database = (*MySQL)(nil)

// MySQL 保存提交记录、分析结果、岗位要求与评分
type MySQL struct {
	db     *gorm.DB
	cfg    *config.MySQLConfig
	logger zerolog.Logger
}

// GormLogLevel 将配置中的数字级别映射为GORM日志级别
func GormLogLevel(level int) gormlogger.LogLevel {
	switch level {
	case 1:
		return gormlogger.Silent
	case 2:
		return gormlogger.Error
	case 3:
		return gormlogger.Warn
	case 4:
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// BuildMySQLDSN 根据配置生成DSN
func BuildMySQLDSN(cfg *config.MySQLConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)
}

// NewMySQL 创建MySQL客户端并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig, logger *zerolog.Logger) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "mysql").Logger()
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormlogger.New(gormLogWriter{logger: l}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  GormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(BuildMySQLDSN(cfg)), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg, logger: l}
	if err := m.autoMigrateSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	m.logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("成功连接到MySQL并完成表结构迁移")
	return m, nil
}

func (m *MySQL) autoMigrateSchema() error {
	silentDB := m.db.Session(&gorm.Session{Logger: m.db.Logger.LogMode(gormlogger.Silent)})
	err := silentDB.AutoMigrate(
		&models.ResumeSubmission{},
		&models.ResumeAnalysis{},
		&models.JobRequirementRecord{},
		&models.ATSScoreRecord{},
		&models.OutboxMessage{},
	)
	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// Ping 检查连接是否可用
func (m *MySQL) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *MySQL) startSpan(ctx context.Context, name, operation, table string) (context.Context, trace.Span) {
	return mysqlTracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMySQL,
			attribute.String("db.name", m.cfg.Database),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		))
}

// CreateSubmission 写入新的提交记录，主键冲突时保持幂等
func (m *MySQL) CreateSubmission(ctx context.Context, submission *models.ResumeSubmission) error {
	ctx, span := m.startSpan(ctx, "MySQL.CreateSubmission", "INSERT_ON_DUPLICATE", "resume_submissions")
	defer span.End()

	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"submission_uuid"}),
	}).Create(submission).Error
	if err != nil {
		failSpan(span, err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetSubmission 按UUID查询提交记录
func (m *MySQL) GetSubmission(ctx context.Context, submissionUUID string) (*models.ResumeSubmission, error) {
	var submission models.ResumeSubmission
	if err := m.db.WithContext(ctx).Where("submission_uuid = ?", submissionUUID).First(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

// UpdateResumeProcessingStatus 更新简历处理状态
func (m *MySQL) UpdateResumeProcessingStatus(ctx context.Context, submissionUUID string, status string) error {
	return m.db.WithContext(ctx).Model(&models.ResumeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Update("processing_status", status).Error
}

// SaveAnalysisWithOutbox 在一个事务里写入分析结果、更新提交记录并登记待发布事件
func (m *MySQL) SaveAnalysisWithOutbox(ctx context.Context, analysis *models.ResumeAnalysis, submissionUpdates map[string]interface{}, event *models.OutboxMessage) error {
	ctx, span := m.startSpan(ctx, "MySQL.SaveAnalysisWithOutbox", "TRANSACTION", "resume_analyses")
	defer span.End()
	span.SetAttributes(attribute.String("submission.uuid", analysis.SubmissionUUID))

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_uuid"}},
			UpdateAll: true,
		}).Create(analysis).Error; err != nil {
			return fmt.Errorf("保存分析结果失败: %w", err)
		}

		if len(submissionUpdates) > 0 {
			if err := tx.Model(&models.ResumeSubmission{}).
				Where("submission_uuid = ?", analysis.SubmissionUUID).
				Updates(submissionUpdates).Error; err != nil {
				return fmt.Errorf("更新提交记录失败: %w", err)
			}
		}

		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("写入发件箱失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		failSpan(span, err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetAnalysis 查询某次提交的分析结果
func (m *MySQL) GetAnalysis(ctx context.Context, submissionUUID string) (*models.ResumeAnalysis, error) {
	var analysis models.ResumeAnalysis
	if err := m.db.WithContext(ctx).Where("submission_uuid = ?", submissionUUID).First(&analysis).Error; err != nil {
		return nil, err
	}
	return &analysis, nil
}

// SaveJobRequirement 创建或覆盖岗位要求
func (m *MySQL) SaveJobRequirement(ctx context.Context, record *models.JobRequirementRecord) error {
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "required_skills_json", "experience_required_years", "status", "updated_at"}),
	}).Create(record).Error
}

// GetJobRequirement 按岗位ID查询岗位要求
func (m *MySQL) GetJobRequirement(ctx context.Context, jobID string) (*models.JobRequirementRecord, error) {
	var record models.JobRequirementRecord
	if err := m.db.WithContext(ctx).Where("job_id = ?", jobID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveATSScore 保存评分，同一简历与岗位只保留最近一次
func (m *MySQL) SaveATSScore(ctx context.Context, record *models.ATSScoreRecord) error {
	ctx, span := m.startSpan(ctx, "MySQL.SaveATSScore", "INSERT_ON_DUPLICATE", "ats_scores")
	defer span.End()

	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "submission_uuid"}, {Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"score", "skills_match", "experience_relevance", "domain_match", "project_score",
			"certification_score", "matched_skills_json", "missing_skills_json", "scored_at", "updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		failSpan(span, err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// ListTopScoresForJob 按得分降序分页返回某岗位的评分，同时返回总数
func (m *MySQL) ListTopScoresForJob(ctx context.Context, jobID string, offset, limit int) ([]models.ATSScoreRecord, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	ctx, span := m.startSpan(ctx, "MySQL.ListTopScoresForJob", "SELECT", "ats_scores")
	defer span.End()

	var total int64
	q := m.db.WithContext(ctx).Model(&models.ATSScoreRecord{}).Where("job_id = ?", jobID)
	if err := q.Count(&total).Error; err != nil {
		failSpan(span, err)
		return nil, 0, err
	}
	records := make([]models.ATSScoreRecord, 0, limit)
	err := m.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("score desc").Order("scored_at desc").
		Offset(offset).Limit(limit).
		Find(&records).Error
	if err != nil {
		failSpan(span, err)
	}
	return records, total, err
}
