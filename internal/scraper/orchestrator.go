package scraper

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/models"
	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
)

// PageDriver 多页采集所需的页面操作能力
// 由抽取会话实现,测试中用桩页面替换
type PageDriver interface {
	// Status 读取页面状态(卡片数/自动搜索状态/分页信息)
	Status(ctx context.Context) (*models.PageStatus, error)
	// Extract 抽取当前页全部记录
	Extract(ctx context.Context) ([]models.Record, error)
	// GoToNextPage 请求翻页,返回是否还有下一页
	GoToNextPage(ctx context.Context) (bool, error)
	// CurrentPage 页面分页组件报告的当前页码
	CurrentPage(ctx context.Context) (int, error)
	// InstallPagerPolyfill 为旧版抽取脚本注入翻页兜底
	InstallPagerPolyfill(ctx context.Context) (bool, error)
	// HardReload 硬导航恢复(回到搜索页并重新定位接口)
	HardReload(ctx context.Context) error
}

// ProgressFunc 每页采集完成后的进度回调
// 返回非nil错误立即终止采集并原样上抛(取消信号经此通道传入)
type ProgressFunc func(total, page int) error

// Config 采集编排配置
type Config struct {
	Limit      int  // 最大采集记录数
	MaxPages   int  // 最大翻页数
	AllowEmpty bool // 是否接受空结果(不触发硬导航重试)

	ResultTimeout   time.Duration // 单页结果稳定等待上限
	ResultPoll      time.Duration // 结果轮询间隔
	AutoSearchGrace time.Duration // 自动搜索完成信号的宽限期
	SettleDelay     time.Duration // 翻页成功后的固定安定等待
	AdvanceTimeout  time.Duration // 页码推进等待上限
	AdvancePoll     time.Duration // 页码轮询间隔
}

// DefaultConfig 默认编排配置
func DefaultConfig(limit, maxPages int) Config {
	return Config{
		Limit:           limit,
		MaxPages:        maxPages,
		ResultTimeout:   45 * time.Second,
		ResultPoll:      800 * time.Millisecond,
		AutoSearchGrace: 5 * time.Second,
		SettleDelay:     2 * time.Second,
		AdvanceTimeout:  15 * time.Second,
		AdvancePoll:     500 * time.Millisecond,
	}
}

// Orchestrator 多页采集编排器
//
// 每页流程: 等待结果稳定 -> 抽取 -> 进度回调 -> 判断停止条件 -> 翻页 ->
// 等待页码推进。页码推进超时按设计视为"到此为止",保留已采集数据优雅停止。
// 整任务级恢复: 首轮采集为空且不允许空结果时,执行恰好一次硬导航重试
type Orchestrator struct {
	cfg Config
}

// NewOrchestrator 创建编排器
func NewOrchestrator(cfg Config) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

// Run 执行多页采集,返回采集到的记录和访问的页数
// 进度回调返回的错误(含取消信号)原样上抛,调用方负责区分
func (o *Orchestrator) Run(ctx context.Context, driver PageDriver, onProgress ProgressFunc) ([]models.Record, int, error) {
	o.installPolyfill(ctx, driver)

	records, pages, err := o.harvest(ctx, driver, onProgress)
	if err != nil {
		return records, pages, err
	}

	// 首轮为空: 恰好一次硬导航重试,恢复前端路由残留旧状态的场景
	if len(records) == 0 && !o.cfg.AllowEmpty {
		utils.Warn("⚠️ 首轮采集结果为空,执行硬导航重试")
		if err := driver.HardReload(ctx); err != nil {
			return nil, pages, &ExtractionError{Page: 1, Reason: "硬导航重试失败", Err: err}
		}
		o.installPolyfill(ctx, driver)
		return o.harvest(ctx, driver, onProgress)
	}
	return records, pages, nil
}

// installPolyfill 翻页兜底注入,失败只记日志
func (o *Orchestrator) installPolyfill(ctx context.Context, driver PageDriver) {
	installed, err := driver.InstallPagerPolyfill(ctx)
	if err != nil {
		utils.Debugf("翻页兜底注入失败(忽略): %v", err)
		return
	}
	if installed {
		utils.Info("已为旧版抽取脚本注入翻页兜底")
	}
}

// harvest 从第1页开始的完整采集循环
func (o *Orchestrator) harvest(ctx context.Context, driver PageDriver, onProgress ProgressFunc) ([]models.Record, int, error) {
	var records []models.Record
	page := 1

	for {
		o.waitForResults(ctx, driver, page)

		batch, err := driver.Extract(ctx)
		if err != nil {
			if !o.cfg.AllowEmpty && len(records) == 0 {
				return records, page, &ExtractionError{Page: page, Reason: "抽取调用失败", Err: err}
			}
			utils.Warnf("第%d页抽取失败,按空页处理: %v", page, err)
			batch = nil
		}

		records = append(records, batch...)
		utils.Infof("📄 第%d页采集 %d 条,累计 %d 条", page, len(batch), len(records))

		if onProgress != nil {
			if err := onProgress(len(records), page); err != nil {
				return records, page, err
			}
		}

		if len(records) >= o.cfg.Limit {
			utils.Infof("达到采集上限 %d,停止翻页", o.cfg.Limit)
			return records, page, nil
		}
		if page >= o.cfg.MaxPages {
			utils.Infof("达到最大页数 %d,停止翻页", o.cfg.MaxPages)
			return records, page, nil
		}

		hasNext, err := driver.GoToNextPage(ctx)
		if err != nil {
			return records, page, &ExtractionError{Page: page, Reason: "翻页调用失败", Err: err}
		}
		if !hasNext {
			utils.Infof("页面报告没有下一页,停止于第%d页", page)
			return records, page, nil
		}

		if err := o.waitPageAdvance(ctx, driver, page+1); err != nil {
			var timeoutErr *PaginationTimeoutError
			if errors.As(err, &timeoutErr) {
				// 页码未推进按设计优雅截断,保留已采集数据
				utils.Warnf("⚠️ %v,保留已采集的 %d 条并停止", timeoutErr, len(records))
				return records, page, nil
			}
			return records, page, err
		}
		page++

		time.Sleep(o.cfg.SettleDelay)
	}
}

// waitForResults 等待当前页结果稳定
// 退出条件: 出现结果卡片;或自动搜索报告done/skipped且已过宽限期。
// 状态读取失败与等待超时都只记日志,后续抽取自行兜底
func (o *Orchestrator) waitForResults(ctx context.Context, driver PageDriver, page int) {
	start := time.Now()
	deadline := start.Add(o.cfg.ResultTimeout)

	for {
		status, err := driver.Status(ctx)
		if err == nil {
			if status.CardCount > 0 {
				return
			}
			autoSearch := strings.ToLower(status.AutoSearch)
			if (autoSearch == "done" || autoSearch == "skipped") && time.Since(start) > o.cfg.AutoSearchGrace {
				return
			}
		}

		if time.Now().After(deadline) {
			utils.Warnf("第%d页等待结果稳定超时,继续尝试抽取", page)
			return
		}
		if ctx.Err() != nil {
			return
		}
		time.Sleep(o.cfg.ResultPoll)
	}
}

// waitPageAdvance 等待页面分页组件报告目标页码
func (o *Orchestrator) waitPageAdvance(ctx context.Context, driver PageDriver, wantPage int) error {
	deadline := time.Now().Add(o.cfg.AdvanceTimeout)

	for {
		current, err := driver.CurrentPage(ctx)
		if err == nil && current >= wantPage {
			return nil
		}

		if time.Now().After(deadline) {
			return &PaginationTimeoutError{WantPage: wantPage}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		time.Sleep(o.cfg.AdvancePoll)
	}
}
