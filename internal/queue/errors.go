package queue

import (
	"errors"
	"fmt"
)

// ErrTaskCancelled 服务端在进度上报响应中标记任务已取消
// 控制流信号,不是故障: 调用方应立即停止采集且不再调用complete
var ErrTaskCancelled = errors.New("任务已被服务端取消")

// QueueError 队列RPC错误
// 同时覆盖HTTP传输失败和应用层status非success的响应
type QueueError struct {
	Path       string // RPC路径,如 resume_tasks:claim
	StatusCode int    // HTTP状态码(传输成功时)
	Message    string // 服务端错误消息或本地描述
	Err        error  // 底层错误(可为空)
}

// Error 实现error接口
func (e *QueueError) Error() string {
	msg := fmt.Sprintf("队列调用失败 [%s]: %s", e.Path, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap 返回底层错误
func (e *QueueError) Unwrap() error {
	return e.Err
}
