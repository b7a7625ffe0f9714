package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/models"
	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
)

// DefaultTimeout 队列RPC默认超时
const DefaultTimeout = 30 * time.Second

// Client 任务队列RPC客户端
//
// 队列服务暴露 /api/mutation 和 /api/query 两个端点,
// 请求体 {path, args},响应 {status:"success", value} 或 {status, errorMessage}
type Client struct {
	apiURL       string
	workerID     string
	httpClient   *http.Client
	redactor     *utils.Redactor
	extraHeaders map[string]string
}

// NewClient 创建队列客户端
// baseURL为队列服务根地址,自动补齐/api前缀
func NewClient(baseURL, workerID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		apiURL:     strings.TrimRight(baseURL, "/") + "/api",
		workerID:   workerID,
		httpClient: &http.Client{Timeout: timeout},
		redactor:   utils.NewRedactor(),
	}
}

// WorkerID 本客户端绑定的Worker标识
func (c *Client) WorkerID() string {
	return c.workerID
}

// SetHeaders 设置附加在每个RPC请求上的自定义头部(如部署凭据)
// 头部值会在调试日志中脱敏
func (c *Client) SetHeaders(headers map[string]string) {
	c.extraHeaders = headers
}

// rpcRequest RPC请求体
type rpcRequest struct {
	Path string      `json:"path"`
	Args interface{} `json:"args"`
}

// rpcResponse RPC响应体
type rpcResponse struct {
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	ErrorMessage string          `json:"errorMessage"`
}

// call 执行一次RPC,endpoint为mutation或query
func (c *Client) call(ctx context.Context, endpoint, path string, args interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{Path: path, Args: args})
	if err != nil {
		return nil, &QueueError{Path: path, Message: "序列化请求失败", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &QueueError{Path: path, Message: "构造请求失败", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range c.extraHeaders {
		req.Header.Set(name, value)
	}
	utils.Debugf("RPC %s [%s]", path, c.redactor.RedactHeaders(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &QueueError{Path: path, Message: "请求发送失败", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &QueueError{Path: path, StatusCode: resp.StatusCode, Message: "读取响应失败", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &QueueError{Path: path, StatusCode: resp.StatusCode, Message: "非预期的HTTP状态"}
	}

	var decoded rpcResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, &QueueError{Path: path, StatusCode: resp.StatusCode, Message: "解析响应失败", Err: err}
	}
	if decoded.Status != "success" {
		msg := decoded.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("status=%s", decoded.Status)
		}
		return nil, &QueueError{Path: path, StatusCode: resp.StatusCode, Message: msg}
	}
	return decoded.Value, nil
}

func (c *Client) mutation(ctx context.Context, path string, args interface{}) (json.RawMessage, error) {
	return c.call(ctx, "mutation", path, args)
}

func (c *Client) query(ctx context.Context, path string, args interface{}) (json.RawMessage, error) {
	return c.call(ctx, "query", path, args)
}

// Claim 领取一个待处理任务
// 返回(nil, nil)表示队列当前没有工作,不是错误
func (c *Client) Claim(ctx context.Context) (*models.Task, error) {
	value, err := c.mutation(ctx, "resume_tasks:claim", map[string]string{
		"workerId": c.workerID,
	})
	if err != nil {
		return nil, err
	}
	if isNull(value) {
		return nil, nil
	}

	var task models.Task
	if err := json.Unmarshal(value, &task); err != nil {
		return nil, &QueueError{Path: "resume_tasks:claim", Message: "解析任务失败", Err: err}
	}
	return &task, nil
}

// UpdateProgress 上报任务进度
// 响应携带status=="cancelled"时返回ErrTaskCancelled,
// 这是任务取消唯一的可见通道
func (c *Client) UpdateProgress(ctx context.Context, report models.ProgressReport) error {
	value, err := c.mutation(ctx, "resume_tasks:updateProgress", report)
	if err != nil {
		return err
	}

	var result struct {
		Status string `json:"status"`
	}
	if !isNull(value) && json.Unmarshal(value, &result) == nil && result.Status == "cancelled" {
		return ErrTaskCancelled
	}
	return nil
}

// Heartbeat 发送Worker心跳
// 尽力而为: 任何失败只记日志,永不上抛,不得阻断任务进展
func (c *Client) Heartbeat(ctx context.Context, hb models.Heartbeat) {
	if _, err := c.mutation(ctx, "resume_tasks:heartbeat", hb); err != nil {
		utils.Warnf("心跳发送失败(忽略): %v", err)
	}
}

// SubmitResumes 提交格式化后的简历记录,返回服务端入库统计
// 服务端省略可选统计字段时,input/submitted回填为提交条数,其余为0
func (c *Client) SubmitResumes(ctx context.Context, records []models.FormattedRecord) (*models.SubmissionStats, error) {
	value, err := c.mutation(ctx, "resume_tasks:submitResumes", map[string]interface{}{
		"resumes": records,
	})
	if err != nil {
		return nil, err
	}

	stats := &models.SubmissionStats{}
	if !isNull(value) {
		if err := json.Unmarshal(value, stats); err != nil {
			return nil, &QueueError{Path: "resume_tasks:submitResumes", Message: "解析统计失败", Err: err}
		}
	}
	if stats.Input == 0 {
		stats.Input = len(records)
	}
	if stats.Submitted == 0 {
		stats.Submitted = len(records)
	}
	return stats, nil
}

// Complete 结束任务
// status为completed时携带结果汇总,为failed时携带错误消息
func (c *Client) Complete(ctx context.Context, taskID string, status models.TaskStatus, result *models.TaskResult, errMsg string) error {
	args := map[string]interface{}{
		"taskId": taskID,
		"status": status,
	}
	if result != nil {
		args["results"] = result
	}
	if errMsg != "" {
		args["error"] = errMsg
	}

	_, err := c.mutation(ctx, "resume_tasks:complete", args)
	return err
}

// SearchResumes 按关键词检索库内简历,返回候选记录id
// 用于采集完成后的自动分析派发
func (c *Client) SearchResumes(ctx context.Context, keyword string, limit int) ([]string, error) {
	value, err := c.query(ctx, "resumes:search", map[string]interface{}{
		"keyword": keyword,
		"limit":   limit,
	})
	if err != nil {
		return nil, err
	}
	if isNull(value) {
		return nil, nil
	}

	var ids []string
	if err := json.Unmarshal(value, &ids); err != nil {
		return nil, &QueueError{Path: "resumes:search", Message: "解析检索结果失败", Err: err}
	}
	return ids, nil
}

// EnqueueAnalysis 派发一个后续AI分析任务
func (c *Client) EnqueueAnalysis(ctx context.Context, keyword string, resumeIDs []string) error {
	_, err := c.mutation(ctx, "analysis_tasks:enqueue", map[string]interface{}{
		"keyword":   keyword,
		"resumeIds": resumeIDs,
	})
	return err
}

// isNull 响应值为空或JSON null
func isNull(value json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(value))
	return trimmed == "" || trimmed == "null"
}
