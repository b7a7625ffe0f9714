package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"   // 待领取
	TaskStatusRunning   TaskStatus = "running"   // 执行中
	TaskStatusCompleted TaskStatus = "completed" // 已完成
	TaskStatusFailed    TaskStatus = "failed"    // 失败
	TaskStatusCancelled TaskStatus = "cancelled" // 已取消(服务端标记)
)

// WorkerState Worker状态
type WorkerState string

const (
	WorkerStateIdle       WorkerState = "idle"       // 空闲,等待领取任务
	WorkerStateProcessing WorkerState = "processing" // 正在处理任务
	WorkerStateError      WorkerState = "error"      // 上一轮循环出错,退避中
)

// TaskConfig 采集任务配置
// 由队列服务下发,Worker领取后视为不可变
type TaskConfig struct {
	Keyword      string `json:"keyword"`                // 搜索关键词
	Location     string `json:"location"`               // 地区过滤(可为空)
	Limit        int    `json:"limit"`                  // 最大采集简历数
	MaxPages     int    `json:"maxPages"`               // 最大翻页数
	AutoAnalyze  bool   `json:"autoAnalyze,omitempty"`  // 采集完成后是否触发AI分析
	AnalysisTopN int    `json:"analysisTopN,omitempty"` // 分析候选数量
}

// Validate 验证任务配置
func (c *TaskConfig) Validate() error {
	if c.Keyword == "" {
		return fmt.Errorf("搜索关键词不能为空")
	}
	if c.Limit < 1 {
		return fmt.Errorf("采集上限必须大于0,当前值: %d", c.Limit)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("最大页数必须大于0,当前值: %d", c.MaxPages)
	}
	return nil
}

// Task 采集任务
// 队列服务保证同一任务至多被一个Worker领取,Worker不再做本地互斥
type Task struct {
	ID     string     `json:"_id"`    // 队列服务分配的任务ID
	Config TaskConfig `json:"config"` // 任务配置
}

// ProgressReport 进度上报
// page=0 表示任务已接受但尚未开始浏览器操作
type ProgressReport struct {
	TaskID     string `json:"taskId"`
	Current    int    `json:"current"`              // 累计采集数
	Page       int    `json:"page"`                 // 当前页码
	Total      int    `json:"total,omitempty"`      // 预估总数(可选)
	LastStatus string `json:"lastStatus,omitempty"` // 最近一次状态描述
}

// Heartbeat Worker心跳
// 每轮循环及任务生命周期切换时发送,发送失败只记录日志
type Heartbeat struct {
	WorkerID     string      `json:"workerId"`
	State        WorkerState `json:"state"`
	ActiveTaskID string      `json:"activeTaskId,omitempty"`
	LastError    string      `json:"lastError,omitempty"`

	// 资源快照(扩展字段,队列服务按需展示)
	MemoryMB   int64   `json:"memoryMb,omitempty"`
	CPUPercent float64 `json:"cpuPercent,omitempty"`
}

// FormattedRecord 提交给队列服务的简历载荷
type FormattedRecord struct {
	ExternalID string   `json:"externalId"` // 身份去重键
	Content    Record   `json:"content"`    // 原始抽取字段
	Hash       string   `json:"hash"`       // 内容摘要(规范化JSON的SHA-256)
	Source     string   `json:"source"`     // 数据来源站点
	Tags       []string `json:"tags"`       // 检索标签(关键词/地区)
}

// SubmissionStats 队列服务返回的入库统计
// Worker只透传展示,不在本地重新计算
type SubmissionStats struct {
	Input                   int `json:"input"`
	Submitted               int `json:"submitted"`
	Deduped                 int `json:"deduped"`
	IdentityDeduped         int `json:"identityDeduped"`
	IdentityMatched         int `json:"identityMatched"`
	LegacyExternalIDMatched int `json:"legacyExternalIdMatched"`
	Inserted                int `json:"inserted"`
	Updated                 int `json:"updated"`
	Unchanged               int `json:"unchanged"`
}

// TaskResult 任务完成时上报的结果汇总
type TaskResult struct {
	Collected  int             `json:"collected"`
	Pages      int             `json:"pages"`
	Stats      SubmissionStats `json:"stats"`
	Duration   float64         `json:"duration"` // 秒
	FinishedAt time.Time       `json:"finishedAt"`
}

// ToJSON 序列化为JSON
func (t *Task) ToJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// FromJSON 从JSON反序列化
func (t *Task) FromJSON(data []byte) error {
	return json.Unmarshal(data, t)
}
