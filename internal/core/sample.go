package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/RecoveryAshes/ResumeRadar/internal/cdp"
	"github.com/RecoveryAshes/ResumeRadar/internal/scraper"
	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
)

// DefaultSampleName 未指定样本名时的默认值
const DefaultSampleName = "sample-initial"

// SampleOptions 样本导出参数
type SampleOptions struct {
	Keyword  string
	Location string
	Name     string // 样本名,用作文件名(会被清洗)
	Limit    int
	MaxPages int
}

// ExportSample 离线样本导出
//
// 不经任务队列,直接驱动浏览器采集一批简历并落盘为样本文件,
// 用于扩展调试和离线数据回放。返回写入的文件路径
func ExportSample(ctx context.Context, cfg *Config, opts SampleOptions) (string, error) {
	name := scraper.SanitizeSampleName(opts.Name)
	if name == "" {
		name = DefaultSampleName
	}

	searchURL := scraper.BuildSearchURL(cfg.Scrape.SearchBaseURL, opts.Keyword, opts.Location)
	utils.Infof("🌐 打开搜索页: %s", searchURL)

	sessionCfg := cdp.DefaultSessionConfig()
	sessionCfg.DebugHost = cfg.Browser.DebugHost
	sessionCfg.DebugPort = cfg.Browser.DebugPort

	session, err := cdp.OpenSession(ctx, sessionCfg, searchURL)
	if err != nil {
		return "", err
	}
	defer session.Close()

	bar := utils.NewProgressBar(opts.Limit, "采集样本")
	orch := scraper.NewOrchestrator(scraper.DefaultConfig(opts.Limit, opts.MaxPages))
	records, pages, err := orch.Run(ctx, session, func(total, page int) error {
		bar.Set(total)
		return nil
	})
	if err != nil {
		return "", err
	}
	fmt.Println()

	// 状态读取失败不阻断导出,元数据退化为默认值
	status, statusErr := session.Status(ctx)
	if statusErr != nil {
		utils.Warnf("读取页面状态失败,元数据使用默认值: %v", statusErr)
		status = nil
	}

	doc := scraper.SampleDocument{
		Metadata: scraper.BuildSampleMetadata(searchURL, name, status, len(records)),
		Data:     records,
	}

	path := filepath.Join(cfg.Output.SampleDir, name+".json")
	if err := utils.SaveJSON(path, doc); err != nil {
		return "", err
	}

	utils.Infof("✅ 样本导出完成: %s (%d 条 / %d 页)", path, len(records), pages)
	return path, nil
}
