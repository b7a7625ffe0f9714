package cdp

import (
	"context"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
)

// Evaluator 表达式求值能力的最小抽象
// Transport实现该接口,测试中用桩替换
type Evaluator interface {
	EvalBool(ctx context.Context, expr string, opts EvalOptions) (bool, error)
}

// AccessorResolver 抽取接口定位器
// 确定哪个执行上下文暴露页面的抽取接口:
// 先探测默认(主世界)上下文,失败后按优先级探测各隔离上下文
type AccessorResolver struct {
	eval     Evaluator
	registry *ContextRegistry
	timeout  time.Duration
}

// NewAccessorResolver 创建定位器
func NewAccessorResolver(eval Evaluator, registry *ContextRegistry) *AccessorResolver {
	return &AccessorResolver{
		eval:     eval,
		registry: registry,
		timeout:  5 * time.Second,
	}
}

// Resolve 定位抽取接口所在的执行上下文
// 返回 (是否找到, 上下文id); id为0表示默认上下文。
// 探测期间的求值异常一律视为"此上下文没有",不上抛 —
// 扩展脚本在导航后注入有延迟,调用方应在就绪等待后重试
func (r *AccessorResolver) Resolve(ctx context.Context) (bool, int64) {
	// 主世界优先
	if r.probe(ctx, 0) {
		utils.Debug("抽取接口位于默认上下文")
		return true, 0
	}

	for _, execCtx := range r.registry.RankedIsolated() {
		if r.probe(ctx, execCtx.ID) {
			utils.Debugf("抽取接口位于隔离上下文: id=%d name=%q", execCtx.ID, execCtx.Name)
			return true, execCtx.ID
		}
	}
	return false, 0
}

// probe 在单个上下文中做特征探测,任何失败都视为未找到
func (r *AccessorResolver) probe(ctx context.Context, contextID int64) bool {
	found, err := r.eval.EvalBool(ctx, exprProbeAccessor, EvalOptions{
		ContextID: contextID,
		Timeout:   r.timeout,
	})
	if err != nil {
		utils.Debugf("上下文探测失败(忽略): contextId=%d err=%v", contextID, err)
		return false
	}
	return found
}
