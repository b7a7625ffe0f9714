package cdp

import (
	"context"
	"encoding/json"
	"time"
)

// EvalOptions 表达式求值选项
type EvalOptions struct {
	ContextID    int64         // 目标执行上下文,0表示页面默认上下文
	AwaitPromise bool          // 表达式返回Promise时等待其落定
	Timeout      time.Duration // 协议调用超时,0使用默认值
}

// evaluateParams Runtime.evaluate请求参数
type evaluateParams struct {
	Expression    string `json:"expression"`
	ReturnByValue bool   `json:"returnByValue"`
	AwaitPromise  bool   `json:"awaitPromise,omitempty"`
	ContextID     int64  `json:"contextId,omitempty"`
}

// evaluateResult Runtime.evaluate响应
type evaluateResult struct {
	Result struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text      string `json:"text"`
		Exception struct {
			Description string `json:"description"`
		} `json:"exception"`
	} `json:"exceptionDetails"`
}

// Evaluate 在指定执行上下文中求值表达式,按值返回结果
// 页面抛出异常时返回ProtocolError(Reason携带异常描述)
func (t *Transport) Evaluate(ctx context.Context, expr string, opts EvalOptions) (json.RawMessage, error) {
	params := evaluateParams{
		Expression:    expr,
		ReturnByValue: true,
		AwaitPromise:  opts.AwaitPromise,
		ContextID:     opts.ContextID,
	}

	raw, err := t.Call(ctx, "Runtime.evaluate", params, opts.Timeout)
	if err != nil {
		return nil, err
	}

	var result evaluateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ProtocolError{Method: "Runtime.evaluate", Reason: "解析求值结果失败", Err: err}
	}
	if result.ExceptionDetails != nil {
		desc := result.ExceptionDetails.Exception.Description
		if desc == "" {
			desc = result.ExceptionDetails.Text
		}
		return nil, &ProtocolError{Method: "Runtime.evaluate", Reason: "页面异常: " + desc}
	}
	return result.Result.Value, nil
}

// EvalBool 求值并解码布尔结果
// 结果缺失或非布尔值视为false
func (t *Transport) EvalBool(ctx context.Context, expr string, opts EvalOptions) (bool, error) {
	value, err := t.Evaluate(ctx, expr, opts)
	if err != nil {
		return false, err
	}
	var result bool
	if len(value) == 0 || json.Unmarshal(value, &result) != nil {
		return false, nil
	}
	return result, nil
}

// EvalJSONString 求值一个返回JSON字符串的表达式,并解码到out
// 页面端先JSON.stringify再跨协议传输,避免深层对象的序列化歧义
func (t *Transport) EvalJSONString(ctx context.Context, expr string, opts EvalOptions, out interface{}) error {
	value, err := t.Evaluate(ctx, expr, opts)
	if err != nil {
		return err
	}

	var encoded string
	if err := json.Unmarshal(value, &encoded); err != nil {
		return &ProtocolError{Method: "Runtime.evaluate", Reason: "结果不是JSON字符串", Err: err}
	}
	if err := json.Unmarshal([]byte(encoded), out); err != nil {
		return &ProtocolError{Method: "Runtime.evaluate", Reason: "解码页面JSON失败", Err: err}
	}
	return nil
}
