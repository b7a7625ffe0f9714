package scraper

import (
	"context"

	"github.com/RecoveryAshes/ResumeRadar/internal/cdp"
	"github.com/RecoveryAshes/ResumeRadar/internal/models"
	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
)

// HarvestResult 单次任务采集结果
type HarvestResult struct {
	Records []models.Record
	Pages   int
}

// BrowserHarvester 浏览器采集器
// 按任务配置建立抽取会话并执行多页采集,会话严格随任务尝试创建和关闭
type BrowserHarvester struct {
	sessionCfg cdp.SessionConfig
	searchBase string
}

// NewBrowserHarvester 创建采集器
// searchBase为空时使用默认搜索页地址
func NewBrowserHarvester(sessionCfg cdp.SessionConfig, searchBase string) *BrowserHarvester {
	return &BrowserHarvester{sessionCfg: sessionCfg, searchBase: searchBase}
}

// Harvest 执行一次任务采集
// 无论成败,底层socket在返回前关闭
func (h *BrowserHarvester) Harvest(ctx context.Context, taskCfg models.TaskConfig, onProgress ProgressFunc) (*HarvestResult, error) {
	searchURL := BuildSearchURL(h.searchBase, taskCfg.Keyword, taskCfg.Location)
	utils.Infof("🌐 打开搜索页: %s", searchURL)

	session, err := cdp.OpenSession(ctx, h.sessionCfg, searchURL)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	orch := NewOrchestrator(DefaultConfig(taskCfg.Limit, taskCfg.MaxPages))
	records, pages, err := orch.Run(ctx, session, onProgress)
	if err != nil {
		return &HarvestResult{Records: records, Pages: pages}, err
	}
	return &HarvestResult{Records: records, Pages: pages}, nil
}
