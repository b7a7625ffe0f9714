package cdp

import "fmt"

// ProtocolError 协议传输层错误
// 覆盖: 调用超时、响应携带error字段、套接字关闭、帧格式异常
type ProtocolError struct {
	Method string // 关联的协议方法(可为空)
	Reason string // 错误描述
	Err    error  // 底层错误(可为空)
}

// Error 实现error接口
func (e *ProtocolError) Error() string {
	msg := e.Reason
	if e.Method != "" {
		msg = fmt.Sprintf("%s: %s", e.Method, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "协议错误: " + msg
}

// Unwrap 返回底层错误
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// SessionError 会话建立/维持错误
// 覆盖: 找不到可调试页面、目标无socket地址、抽取接口始终未就绪
type SessionError struct {
	Reason string
	Err    error
}

// Error 实现error接口
func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("会话错误: %s: %v", e.Reason, e.Err)
	}
	return "会话错误: " + e.Reason
}

// Unwrap 返回底层错误
func (e *SessionError) Unwrap() error {
	return e.Err
}
