package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/cdp"
	"github.com/RecoveryAshes/ResumeRadar/internal/core"
	"github.com/RecoveryAshes/ResumeRadar/internal/queue"
	"github.com/RecoveryAshes/ResumeRadar/internal/scraper"
	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
	"github.com/RecoveryAshes/ResumeRadar/internal/worker"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// Worker参数
	queueURL     string
	workerID     string
	headers      []string // 附加到队列RPC的自定义HTTP头部
	debugPort    int
	pollSeconds  int
	checkBrowser bool

	// 样本导出参数
	sampleKeyword  string
	sampleLocation string
	sampleName     string
	sampleLimit    int
	sampleMaxPages int
)

var rootCmd = &cobra.Command{
	Use:   "resumeradar",
	Short: "简历采集Worker",
	Long: `ResumeRadar - 队列驱动的简历采集Worker (Go版本)

从远程任务队列领取采集任务,通过浏览器调试协议驱动已打开的
搜索页抓取简历,去重后回传队列,支持:
  • 任务领取/进度上报/心跳/服务端取消
  • 多页采集与硬导航恢复
  • 身份键去重(档案URL/简历编号/用户编号/内容摘要回退链)
  • 离线样本导出

启动示例:
  # 队列模式(常驻,需要CONVEX_URL)
  CONVEX_URL=https://my-deploy.convex.cloud resumeradar

  # 离线样本导出
  resumeradar sample --keyword 销售 --limit 50

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadRuntimeConfig()
		if err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return err
		}

		// 信号驱动的优雅退出: 取消context,等当前轮次收尾
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if checkBrowser {
			if err := core.CheckEnvironment(ctx, config); err != nil {
				return err
			}
		}

		queueClient := queue.NewClient(config.Queue.BaseURL, config.Queue.WorkerID, config.QueueTimeout())
		extraHeaders, err := ParseHeaders(headers)
		if err != nil {
			return err
		}
		queueClient.SetHeaders(extraHeaders)

		sessionCfg := cdp.DefaultSessionConfig()
		sessionCfg.DebugHost = config.Browser.DebugHost
		sessionCfg.DebugPort = config.Browser.DebugPort
		harvester := scraper.NewBrowserHarvester(sessionCfg, config.Scrape.SearchBaseURL)

		loop := worker.NewLoop(queueClient, harvester, worker.NewResourceMonitor(), worker.Options{
			PollInterval: config.PollInterval(),
			ErrorBackoff: config.ErrorBackoff(),
		})

		err = loop.Run(ctx)
		if errors.Is(err, context.Canceled) {
			utils.Info("✨ Worker已退出")
			return nil
		}
		return err
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "离线导出简历样本",
	Long:  "不经任务队列,直接驱动浏览器采集一批简历并落盘为样本文件",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadRuntimeConfig()
		if err != nil {
			return err
		}
		if err := ValidateSampleFlags(sampleKeyword, sampleLimit, sampleMaxPages); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		path, err := core.ExportSample(ctx, config, core.SampleOptions{
			Keyword:  sampleKeyword,
			Location: sampleLocation,
			Name:     sampleName,
			Limit:    sampleLimit,
			MaxPages: sampleMaxPages,
		})
		if err != nil {
			return fmt.Errorf("样本导出失败: %w", err)
		}

		fmt.Println("\n==================================================")
		fmt.Println("📊 样本导出结果")
		fmt.Println("==================================================")
		fmt.Printf("✅ 输出文件: %s\n", path)
		fmt.Printf("⏱️  总耗时: %.2f秒\n", time.Since(start).Seconds())
		fmt.Println("==================================================")
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查运行环境",
	Long:  "检查浏览器调试端点和任务队列的可达性",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadRuntimeConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return core.CheckEnvironment(ctx, config)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ResumeRadar %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
		fmt.Println("Go实现版本 - 队列驱动的简历采集Worker")
	},
}

// loadRuntimeConfig 加载配置并应用命令行覆盖
func loadRuntimeConfig() (*core.Config, error) {
	config, err := core.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	// 命令行参数优先于配置文件和环境变量
	if queueURL != "" {
		if err := ValidateURL(queueURL); err != nil {
			return nil, fmt.Errorf("队列服务地址非法: %w", err)
		}
		config.Queue.BaseURL = queueURL
	}
	if workerID != "" {
		config.Queue.WorkerID = workerID
	}
	if debugPort > 0 {
		config.Browser.DebugPort = debugPort
	}
	if pollSeconds > 0 {
		config.Worker.PollSeconds = pollSeconds
	}
	return config, nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().IntVarP(&debugPort, "port", "p", 0, "浏览器调试端口(默认9222,可用CDP_PORT覆盖)")

	// Worker参数
	rootCmd.Flags().StringVar(&queueURL, "queue-url", "", "任务队列服务地址(默认取CONVEX_URL)")
	rootCmd.Flags().StringVar(&workerID, "worker-id", "", "Worker标识(默认取WORKER_ID或自动生成)")
	rootCmd.Flags().StringSliceVarP(&headers, "header", "H", []string{}, "附加到队列RPC的自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.Flags().IntVar(&pollSeconds, "poll", 0, "空闲轮询间隔(秒)")
	rootCmd.Flags().BoolVar(&checkBrowser, "check-browser", false, "启动前检查浏览器调试端点")

	// 样本导出参数
	sampleCmd.Flags().StringVarP(&sampleKeyword, "keyword", "k", "销售", "搜索关键词")
	sampleCmd.Flags().StringVarP(&sampleLocation, "location", "l", "", "地区过滤")
	sampleCmd.Flags().StringVarP(&sampleName, "sample", "s", "", "样本名称(默认sample-initial)")
	sampleCmd.Flags().IntVar(&sampleLimit, "limit", 200, "最大采集数")
	sampleCmd.Flags().IntVar(&sampleMaxPages, "max-pages", 10, "最大翻页数")

	// 添加子命令
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
