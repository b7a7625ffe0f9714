package worker

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/models"
	"github.com/RecoveryAshes/ResumeRadar/internal/queue"
	"github.com/RecoveryAshes/ResumeRadar/internal/scraper"
	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
)

// QueueAPI Worker所需的队列能力
// 由队列客户端实现,测试中用桩替换
type QueueAPI interface {
	WorkerID() string
	Claim(ctx context.Context) (*models.Task, error)
	UpdateProgress(ctx context.Context, report models.ProgressReport) error
	Heartbeat(ctx context.Context, hb models.Heartbeat)
	SubmitResumes(ctx context.Context, records []models.FormattedRecord) (*models.SubmissionStats, error)
	Complete(ctx context.Context, taskID string, status models.TaskStatus, result *models.TaskResult, errMsg string) error
	SearchResumes(ctx context.Context, keyword string, limit int) ([]string, error)
	EnqueueAnalysis(ctx context.Context, keyword string, resumeIDs []string) error
}

// Harvester 单次任务采集能力
type Harvester interface {
	Harvest(ctx context.Context, cfg models.TaskConfig, onProgress scraper.ProgressFunc) (*scraper.HarvestResult, error)
}

// Options 循环参数
type Options struct {
	PollInterval time.Duration // 空闲轮询间隔
	ErrorBackoff time.Duration // 循环出错后的固定退避
}

// DefaultOptions 默认循环参数
func DefaultOptions() Options {
	return Options{
		PollInterval: 5 * time.Second,
		ErrorBackoff: 5 * time.Second,
	}
}

// Loop Worker生命周期循环
//
// 状态机: idle --领取成功--> processing --任务结束(任何结果)--> idle;
// 轮询/领取阶段的未捕获错误进入error,固定退避后无条件回到idle。
// 没有终止态,循环一直运行到context取消(信号驱动的退出由上层负责)
type Loop struct {
	opts      Options
	queue     QueueAPI
	harvester Harvester
	monitor   *ResourceMonitor
	redactor  *utils.Redactor
	state     models.WorkerState
}

// NewLoop 创建Worker循环
func NewLoop(q QueueAPI, h Harvester, monitor *ResourceMonitor, opts Options) *Loop {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = DefaultOptions().ErrorBackoff
	}
	return &Loop{
		opts:      opts,
		queue:     q,
		harvester: h,
		monitor:   monitor,
		redactor:  utils.NewRedactor(),
		state:     models.WorkerStateIdle,
	}
}

// Run 运行循环直到context取消
func (l *Loop) Run(ctx context.Context) error {
	utils.Infof("🚀 Worker %s 启动,开始轮询任务队列", l.queue.WorkerID())

	for {
		if ctx.Err() != nil {
			utils.Info("Worker循环收到退出信号")
			return ctx.Err()
		}
		l.runOnce(ctx)
	}
}

// runOnce 单轮: 心跳 -> 领取 -> 处理或休眠
// 领取错误进入error状态,退避后回到idle
func (l *Loop) runOnce(ctx context.Context) {
	l.setState(ctx, models.WorkerStateIdle, "", "")

	task, err := l.queue.Claim(ctx)
	if err != nil {
		utils.Errorf("领取任务失败: %v", err)
		l.setState(ctx, models.WorkerStateError, "", err.Error())
		l.sleep(ctx, l.opts.ErrorBackoff)
		l.state = models.WorkerStateIdle
		return
	}

	if task == nil {
		l.sleep(ctx, l.opts.PollInterval)
		return
	}

	l.processTask(ctx, task)
}

// processTask 处理单个已领取的任务
//
// 取消信号: 进度上报响应标记cancelled时立即停止,不调用complete
// (服务端已标记),心跳回到idle。其他错误统一转为complete(failed)
// 加error心跳,绝不让循环崩溃
func (l *Loop) processTask(ctx context.Context, task *models.Task) {
	utils.Infof("📋 开始处理任务 %s: 关键词=%q 地区=%q 上限=%d",
		task.ID, task.Config.Keyword, task.Config.Location, task.Config.Limit)

	if err := task.Config.Validate(); err != nil {
		l.failTask(ctx, task.ID, err)
		return
	}

	l.setState(ctx, models.WorkerStateProcessing, task.ID, "")
	start := time.Now()

	// 浏览器动作开始前先上报page=0,让队列先观察到"已接受"
	if err := l.queue.UpdateProgress(ctx, models.ProgressReport{TaskID: task.ID, Page: 0}); err != nil {
		if errors.Is(err, queue.ErrTaskCancelled) {
			utils.Warnf("任务 %s 在开始前已被取消", task.ID)
			l.setState(ctx, models.WorkerStateIdle, "", "")
			return
		}
		l.failTask(ctx, task.ID, err)
		return
	}

	result, err := l.harvester.Harvest(ctx, task.Config, func(total, page int) error {
		return l.queue.UpdateProgress(ctx, models.ProgressReport{
			TaskID:  task.ID,
			Current: total,
			Page:    page,
		})
	})
	if errors.Is(err, queue.ErrTaskCancelled) {
		utils.Warnf("任务 %s 被服务端取消,停止采集", task.ID)
		l.setState(ctx, models.WorkerStateIdle, "", "")
		return
	}
	if err != nil {
		l.failTask(ctx, task.ID, err)
		return
	}

	stats, err := l.submitRecords(ctx, task, result.Records)
	if err != nil {
		l.failTask(ctx, task.ID, err)
		return
	}

	taskResult := &models.TaskResult{
		Collected:  len(result.Records),
		Pages:      result.Pages,
		Stats:      *stats,
		Duration:   time.Since(start).Seconds(),
		FinishedAt: time.Now().UTC(),
	}
	if err := l.queue.Complete(ctx, task.ID, models.TaskStatusCompleted, taskResult, ""); err != nil {
		utils.Errorf("上报任务完成失败: %v", err)
		l.setState(ctx, models.WorkerStateError, task.ID, err.Error())
		l.setState(ctx, models.WorkerStateIdle, "", "")
		return
	}

	utils.Infof("✅ 任务 %s 完成: 采集 %d 条 / %d 页,入库 %d 新增 %d 更新",
		task.ID, taskResult.Collected, taskResult.Pages, stats.Inserted, stats.Updated)

	if task.Config.AutoAnalyze {
		l.dispatchAnalysis(ctx, task)
	}

	l.setState(ctx, models.WorkerStateIdle, "", "")
}

// submitRecords 格式化并提交采集结果
// 没有记录时跳过提交,返回零统计
func (l *Loop) submitRecords(ctx context.Context, task *models.Task, records []models.Record) (*models.SubmissionStats, error) {
	if len(records) == 0 {
		return &models.SubmissionStats{}, nil
	}

	tags := []string{task.Config.Keyword, task.Config.Location}
	formatted := scraper.FormatRecords(records, scraper.SourceSite, tags)

	// 调试日志只允许出现脱敏后的字段
	utils.Debugf("提交样例(脱敏): %v", l.redactor.RedactRecord(records[0]))

	stats, err := l.queue.SubmitResumes(ctx, formatted)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// failTask 失败收尾: error心跳 -> complete(failed) -> idle心跳
// complete本身失败只记日志,队列会按超时回收任务
func (l *Loop) failTask(ctx context.Context, taskID string, taskErr error) {
	utils.Errorf("任务 %s 失败: %v", taskID, taskErr)
	l.setState(ctx, models.WorkerStateError, taskID, taskErr.Error())

	if err := l.queue.Complete(ctx, taskID, models.TaskStatusFailed, nil, taskErr.Error()); err != nil {
		utils.Errorf("上报任务失败状态未成功: %v", err)
	}

	l.setState(ctx, models.WorkerStateIdle, "", "")
}

// dispatchAnalysis 采集完成后的自动分析派发,尽力而为
func (l *Loop) dispatchAnalysis(ctx context.Context, task *models.Task) {
	topN := task.Config.AnalysisTopN
	if topN <= 0 {
		topN = 10
	}

	ids, err := l.queue.SearchResumes(ctx, task.Config.Keyword, topN)
	if err != nil {
		utils.Warnf("检索分析候选失败(忽略): %v", err)
		return
	}
	if len(ids) == 0 {
		utils.Debug("没有分析候选,跳过派发")
		return
	}

	if err := l.queue.EnqueueAnalysis(ctx, task.Config.Keyword, ids); err != nil {
		utils.Warnf("派发分析任务失败(忽略): %v", err)
		return
	}
	utils.Infof("🧠 已派发分析任务: 关键词=%q 候选=%d", task.Config.Keyword, len(ids))
}

// setState 切换状态并发送携带资源快照的心跳
func (l *Loop) setState(ctx context.Context, state models.WorkerState, activeTaskID, lastError string) {
	l.state = state

	hb := models.Heartbeat{
		WorkerID:     l.queue.WorkerID(),
		State:        state,
		ActiveTaskID: activeTaskID,
		LastError:    lastError,
	}
	if l.monitor != nil {
		snapshot := l.monitor.Snapshot()
		hb.MemoryMB = snapshot.ProcessMemMB
		hb.CPUPercent = snapshot.SystemCPUPct
	}
	l.queue.Heartbeat(ctx, hb)
}

// sleep 可被context打断的休眠
func (l *Loop) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
