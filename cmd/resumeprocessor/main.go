package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const usage = `用法: resumeprocessor <命令> [参数]

命令:
  analyze   提取并分析单份简历，可选按岗位评分
  segment   仅输出章节切分结果
  batch     并发分析目录下的所有简历

使用 "resumeprocessor <命令> --help" 查看命令参数`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var (
		cmd  = os.Args[1]
		args = os.Args[2:]
		err  error
	)
	ctx := context.Background()

	switch cmd {
	case "analyze":
		err = runAnalyze(ctx, args, os.Stdout)
	case "segment":
		err = runSegment(ctx, args, os.Stdout)
	case "batch":
		err = runBatch(ctx, args, os.Stdout)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "错误: 未知命令 '%s'\n\n%s\n", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
