package cdp

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
)

// contextSignatures 抽取扩展注入的隔离上下文名称特征
// 名称命中特征的上下文在探测时优先
var contextSignatures = []string{
	"Resume",
	"智通直聘",
}

// ExecutionContext 浏览器宣告的JavaScript执行上下文
// 由事件帧创建/销毁,注册表只观察,不拥有
type ExecutionContext struct {
	ID          int64  `json:"id"`
	Origin      string `json:"origin"`
	Name        string `json:"name"`
	AuxDataType string `json:"auxDataType"` // default(主世界) 或 isolated(隔离世界)
}

// IsIsolated 是否为隔离世界上下文
func (c *ExecutionContext) IsIsolated() bool {
	return c.AuxDataType == "isolated"
}

// matchesSignature 名称是否命中已知扩展特征
func (c *ExecutionContext) matchesSignature() bool {
	for _, sig := range contextSignatures {
		if strings.Contains(c.Name, sig) {
			return true
		}
	}
	return false
}

// ContextRegistry 执行上下文注册表
// 从传输层的事件帧增量维护当前页面存活的上下文集合。
// 事件在读取goroutine中同步送达,内部用锁保护并发读取
type ContextRegistry struct {
	mu       sync.RWMutex
	contexts map[int64]*ExecutionContext
}

// NewContextRegistry 创建空注册表
func NewContextRegistry() *ContextRegistry {
	return &ContextRegistry{
		contexts: make(map[int64]*ExecutionContext),
	}
}

// Attach 将注册表挂接到传输层的事件流
// 必须在Runtime.enable之前调用,否则会错过初始上下文宣告
func (r *ContextRegistry) Attach(transport *Transport) {
	transport.OnEvent(r.handleEvent)
}

// handleEvent 处理三类上下文事件,其余事件忽略
func (r *ContextRegistry) handleEvent(method string, params json.RawMessage) {
	switch method {
	case "Runtime.executionContextCreated":
		r.onCreated(params)
	case "Runtime.executionContextDestroyed":
		r.onDestroyed(params)
	case "Runtime.executionContextsCleared":
		r.Clear()
	}
}

func (r *ContextRegistry) onCreated(params json.RawMessage) {
	var payload struct {
		Context struct {
			ID      int64  `json:"id"`
			Origin  string `json:"origin"`
			Name    string `json:"name"`
			AuxData struct {
				IsDefault bool   `json:"isDefault"`
				Type      string `json:"type"`
			} `json:"auxData"`
		} `json:"context"`
	}
	if err := json.Unmarshal(params, &payload); err != nil {
		utils.Warnf("解析上下文创建事件失败: %v", err)
		return
	}

	auxType := payload.Context.AuxData.Type
	if auxType == "" {
		if payload.Context.AuxData.IsDefault {
			auxType = "default"
		} else {
			auxType = "isolated"
		}
	}

	ctx := &ExecutionContext{
		ID:          payload.Context.ID,
		Origin:      payload.Context.Origin,
		Name:        payload.Context.Name,
		AuxDataType: auxType,
	}

	r.mu.Lock()
	r.contexts[ctx.ID] = ctx
	r.mu.Unlock()

	utils.Debugf("执行上下文创建: id=%d name=%q type=%s", ctx.ID, ctx.Name, ctx.AuxDataType)
}

func (r *ContextRegistry) onDestroyed(params json.RawMessage) {
	var payload struct {
		ExecutionContextID int64 `json:"executionContextId"`
	}
	if err := json.Unmarshal(params, &payload); err != nil {
		utils.Warnf("解析上下文销毁事件失败: %v", err)
		return
	}

	r.mu.Lock()
	delete(r.contexts, payload.ExecutionContextID)
	r.mu.Unlock()

	utils.Debugf("执行上下文销毁: id=%d", payload.ExecutionContextID)
}

// Clear 清空注册表(页面整体导航时浏览器发送executionContextsCleared)
func (r *ContextRegistry) Clear() {
	r.mu.Lock()
	r.contexts = make(map[int64]*ExecutionContext)
	r.mu.Unlock()

	utils.Debug("执行上下文已全部清除")
}

// Count 当前存活上下文数量
func (r *ContextRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.contexts)
}

// Get 按id查找上下文
func (r *ContextRegistry) Get(id int64) (*ExecutionContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctx, ok := r.contexts[id]
	return ctx, ok
}

// RankedIsolated 返回按探测优先级排序的隔离上下文
// 排序规则: 名称命中扩展特征的在前,其余按id升序(创建顺序)
func (r *ContextRegistry) RankedIsolated() []*ExecutionContext {
	r.mu.RLock()
	var isolated []*ExecutionContext
	for _, ctx := range r.contexts {
		if ctx.IsIsolated() {
			isolated = append(isolated, ctx)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(isolated, func(i, j int) bool {
		mi, mj := isolated[i].matchesSignature(), isolated[j].matchesSignature()
		if mi != mj {
			return mi
		}
		return isolated[i].ID < isolated[j].ID
	})
	return isolated
}
