package scraper

import "fmt"

// ExtractionError 抽取接口缺失或行为异常
// 只终止当前任务尝试,不影响Worker进程
type ExtractionError struct {
	Page   int
	Reason string
	Err    error
}

// Error 实现error接口
func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("抽取错误(第%d页): %s", e.Page, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap 返回底层错误
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// PaginationTimeoutError 翻页后页码始终未推进
// 编排器捕获后优雅停止并保留已采集数据,不作为任务失败上抛
type PaginationTimeoutError struct {
	WantPage int
}

// Error 实现error接口
func (e *PaginationTimeoutError) Error() string {
	return fmt.Sprintf("等待页码推进到第%d页超时", e.WantPage)
}
