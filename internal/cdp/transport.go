package cdp

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	// MaxFrameSize 单帧最大字节数
	// 整页简历抽取结果通过returnByValue返回,帧可能很大
	MaxFrameSize = 64 * 1024 * 1024

	// DefaultCallTimeout 协议调用默认超时
	DefaultCallTimeout = 20 * time.Second
)

// protocolMessage 调试协议帧
// 请求: {id, method, params}
// 响应: {id, result} 或 {id, error}
// 事件: {method, params} (无id)
type protocolMessage struct {
	ID     int64              `json:"id,omitempty"`
	Method string             `json:"method,omitempty"`
	Params json.RawMessage    `json:"params,omitempty"`
	Result json.RawMessage    `json:"result,omitempty"`
	Error  *protocolErrorBody `json:"error,omitempty"`
}

// protocolErrorBody 响应中的error字段
type protocolErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// EventHandler 事件帧处理函数
// 在读取goroutine中同步调用,处理函数不得阻塞
type EventHandler func(method string, params json.RawMessage)

// Transport 浏览器调试端点的持久双向连接
//
// 读写分离设计:
//   - 唯一的读取goroutine(readPump)负责分类入站帧: 带method的是事件,
//     带id的是响应。事件先派发给注册的处理器,响应按id投递到等待channel,
//     因此等待响应期间不会丢失任何事件帧
//   - Call通过每请求一个的完成channel同步等待,多个调用可并发发起
type Transport struct {
	conn *websocket.Conn

	// 写锁: gorilla/websocket不允许并发写
	writeMu sync.Mutex

	// 请求id分配器
	nextID atomic.Int64

	// 等待响应的调用: id -> 完成channel
	pendingMu sync.Mutex
	pending   map[int64]chan *protocolMessage

	// 事件处理器(注册后不再变更)
	handlersMu sync.RWMutex
	handlers   []EventHandler

	// 连接终止状态
	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// Dial 连接调试端点并启动读取goroutine
func Dial(ctx context.Context, wsURL string) (*Transport, error) {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, &ProtocolError{Reason: "连接调试端点失败", Err: err}
	}
	conn.SetReadLimit(MaxFrameSize)

	t := &Transport{
		conn:    conn,
		pending: make(map[int64]chan *protocolMessage),
		closed:  make(chan struct{}),
	}
	go t.readPump()

	utils.Debugf("调试协议连接已建立: %s", wsURL)
	return t, nil
}

// OnEvent 注册事件处理器
// 必须在发起任何Call之前完成注册,避免错过早期事件
func (t *Transport) OnEvent(handler EventHandler) {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// Call 发起协议调用并等待对应id的响应
// timeout<=0时使用DefaultCallTimeout
// 失败情形: 超时、响应携带error字段、连接关闭、context取消
func (t *Transport) Call(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	id := t.nextID.Add(1)
	msg := protocolMessage{ID: id, Method: method}
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, &ProtocolError{Method: method, Reason: "序列化参数失败", Err: err}
		}
		msg.Params = encoded
	}

	// 先注册等待channel,再写出请求,避免响应先于注册到达
	respChan := make(chan *protocolMessage, 1)
	t.pendingMu.Lock()
	t.pending[id] = respChan
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
	}()

	t.writeMu.Lock()
	err := t.conn.WriteJSON(&msg)
	t.writeMu.Unlock()
	if err != nil {
		return nil, &ProtocolError{Method: method, Reason: "写入请求失败", Err: err}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, &ProtocolError{Method: method, Reason: "调用被取消", Err: ctx.Err()}
	case <-timer.C:
		return nil, &ProtocolError{Method: method, Reason: "等待响应超时"}
	case <-t.closed:
		return nil, &ProtocolError{Method: method, Reason: "连接已关闭", Err: t.closeErr}
	case resp := <-respChan:
		if resp.Error != nil {
			return nil, &ProtocolError{Method: method, Reason: resp.Error.Message}
		}
		return resp.Result, nil
	}
}

// readPump 唯一的入站帧读取循环
// 事件帧同步派发(保证注册表在下一个响应返回前已更新),
// 响应帧按id投递给等待中的Call
func (t *Transport) readPump() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.shutdown(err)
			return
		}

		var msg protocolMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			utils.Warnf("忽略无法解析的协议帧: %v", err)
			continue
		}

		// 带method字段的是事件帧
		if msg.Method != "" {
			t.dispatchEvent(msg.Method, msg.Params)
			continue
		}

		t.pendingMu.Lock()
		respChan, ok := t.pending[msg.ID]
		t.pendingMu.Unlock()
		if ok {
			respChan <- &msg
		}
	}
}

// dispatchEvent 派发事件帧给所有处理器
func (t *Transport) dispatchEvent(method string, params json.RawMessage) {
	t.handlersMu.RLock()
	handlers := t.handlers
	t.handlersMu.RUnlock()

	for _, handler := range handlers {
		handler(method, params)
	}
}

// shutdown 终止连接,唤醒所有等待中的调用
func (t *Transport) shutdown(err error) {
	t.closeOnce.Do(func() {
		t.closeErr = err
		close(t.closed)
		t.conn.Close()
	})
}

// Close 关闭连接
// 幂等,会话作用域结束时必须调用
func (t *Transport) Close() error {
	t.shutdown(nil)
	return nil
}
