package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"resume-intel-go/internal/config"
	"resume-intel-go/internal/ocr"
	"resume-intel-go/internal/parser"
	"resume-intel-go/internal/processor"
	"resume-intel-go/internal/storage"
	"resume-intel-go/internal/types"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// commonFlags 各子命令共享的参数
type commonFlags struct {
	configPath string
	timeout    time.Duration
	verbose    bool
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&c.configPath, "config", "c", "", "配置文件路径，为空时使用默认配置")
	fs.DurationVar(&c.timeout, "timeout", 2*time.Minute, "单个文件的处理超时")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "输出调试日志到stderr")
}

func (c *commonFlags) logger() zerolog.Logger {
	if !c.verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildProcessor(ctx context.Context, c *commonFlags) (*processor.ResumeProcessor, error) {
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return nil, err
	}
	log := c.logger()
	var recognizer parser.Recognizer
	if cfg.Extraction.OCREnabled {
		recognizer = ocr.NewRecognizerFromConfig(cfg.Extraction)
	}
	return processor.NewResumeProcessorFromConfig(ctx, cfg, recognizer, &log)
}

// MimeTypeForFile 按扩展名推断文件的 MIME 类型
func MimeTypeForFile(path string) string {
	return storage.ContentTypeForExt(filepath.Ext(path))
}

// supportedExt 批量模式下会被处理的扩展名
var supportedExt = map[string]bool{
	".pdf": true, ".docx": true, ".doc": true, ".txt": true,
	".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true, ".bmp": true, ".webp": true,
}

// loadJob 从YAML或JSON文件读取岗位要求
func loadJob(path string) (*types.JobRequirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取岗位文件失败: %w", err)
	}
	var job types.JobRequirement
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &job)
	} else {
		err = yaml.Unmarshal(data, &job)
	}
	if err != nil {
		return nil, fmt.Errorf("解析岗位文件 %s 失败: %w", path, err)
	}
	return &job, nil
}

// FileReport 单个文件的分析输出
type FileReport struct {
	File       string                `json:"file"`
	TextLength int                   `json:"textLength"`
	Sections   types.SectionMap      `json:"sections"`
	Parsed     *types.ParsedResume   `json:"parsed,omitempty"`
	Score      *types.ATSScoreResult `json:"score,omitempty"`
	Error      string                `json:"error,omitempty"`
}

func analyzeFile(ctx context.Context, proc *processor.ResumeProcessor, path string, job *types.JobRequirement, timeout time.Duration) FileReport {
	report := FileReport{File: path}
	data, err := os.ReadFile(path)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res := analyzeData(fctx, proc, path, data)
	report.TextLength = len(res.Text)
	report.Sections = res.Sections
	report.Parsed = &res.Parsed

	if job != nil {
		score, err := proc.Score(fctx, res.Text, job, &res.Parsed)
		if err != nil {
			report.Error = err.Error()
			return report
		}
		report.Score = &score
	}
	return report
}

// analyzeData 纯文本文件跳过提取阶段，直接切分和抽取
func analyzeData(ctx context.Context, proc *processor.ResumeProcessor, path string, data []byte) *processor.AnalysisResult {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return proc.AnalyzeText(string(data))
	}
	return proc.Analyze(ctx, data, MimeTypeForFile(path))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func runAnalyze(ctx context.Context, args []string, out io.Writer) error {
	var (
		common  commonFlags
		file    string
		jobPath string
	)
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVarP(&file, "file", "f", "", "简历文件路径 (必填)")
	fs.StringVar(&jobPath, "job", "", "岗位要求文件 (YAML/JSON)，提供时输出ATS评分")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if file == "" {
		return fmt.Errorf("必须通过 -f 指定简历文件")
	}

	var job *types.JobRequirement
	if jobPath != "" {
		j, err := loadJob(jobPath)
		if err != nil {
			return err
		}
		job = j
	}

	proc, err := buildProcessor(ctx, &common)
	if err != nil {
		return err
	}
	report := analyzeFile(ctx, proc, file, job, common.timeout)
	if err := writeJSON(out, report); err != nil {
		return err
	}
	if report.Error != "" {
		return fmt.Errorf("%s", report.Error)
	}
	return nil
}

func runSegment(ctx context.Context, args []string, out io.Writer) error {
	var (
		common commonFlags
		file   string
	)
	fs := pflag.NewFlagSet("segment", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVarP(&file, "file", "f", "", "简历文件路径 (必填)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if file == "" {
		return fmt.Errorf("必须通过 -f 指定简历文件")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	proc, err := buildProcessor(ctx, &common)
	if err != nil {
		return err
	}
	fctx, cancel := context.WithTimeout(ctx, common.timeout)
	defer cancel()
	res := analyzeData(fctx, proc, file, data)
	return writeJSON(out, res.Sections)
}

// CollectResumeFiles 列出目录下可处理的简历文件，按路径排序
func CollectResumeFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if supportedExt[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("遍历目录 %s 失败: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func runBatch(ctx context.Context, args []string, out io.Writer) error {
	var (
		common  commonFlags
		dir     string
		jobPath string
		workers int
	)
	fs := pflag.NewFlagSet("batch", pflag.ContinueOnError)
	common.register(fs)
	fs.StringVarP(&dir, "dir", "d", "", "简历目录 (必填)")
	fs.StringVar(&jobPath, "job", "", "岗位要求文件 (YAML/JSON)")
	fs.IntVarP(&workers, "workers", "w", 4, "并发处理的文件数")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if dir == "" {
		return fmt.Errorf("必须通过 -d 指定目录")
	}
	if workers <= 0 {
		workers = 1
	}

	var job *types.JobRequirement
	if jobPath != "" {
		j, err := loadJob(jobPath)
		if err != nil {
			return err
		}
		job = j
	}

	files, err := CollectResumeFiles(dir)
	if err != nil {
		return err
	}
	proc, err := buildProcessor(ctx, &common)
	if err != nil {
		return err
	}

	reports := make([]FileReport, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			reports[i] = analyzeFile(gctx, proc, f, job, common.timeout)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return writeJSON(out, reports)
}
