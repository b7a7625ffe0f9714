package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/models"
	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
)

// SessionConfig 会话配置
type SessionConfig struct {
	DebugHost      string        // 浏览器调试端点主机
	DebugPort      int           // 浏览器调试端点端口
	CallTimeout    time.Duration // 单次协议调用超时
	ReadyTimeout   time.Duration // 应用级就绪等待上限
	StatusTimeout  time.Duration // 接口定位等待上限
	PollInterval   time.Duration // 轮询间隔
	NavigateSettle time.Duration // 导航后的固定安定等待
}

// DefaultSessionConfig 默认会话配置
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		DebugHost:      "127.0.0.1",
		DebugPort:      9222,
		CallTimeout:    20 * time.Second,
		ReadyTimeout:   30 * time.Second,
		StatusTimeout:  15 * time.Second,
		PollInterval:   500 * time.Millisecond,
		NavigateSettle: 2 * time.Second,
	}
}

// targetInfo 调试端点/json返回的页面目标描述
type targetInfo struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Session 单个浏览器标签页上的抽取会话
//
// 生命周期: 每次任务尝试创建一个会话,任务结束(无论成败)必须Close。
// 会话持有已定位的抽取接口上下文id,所有页面操作都在该上下文中求值
type Session struct {
	cfg       SessionConfig
	transport *Transport
	registry  *ContextRegistry
	resolver  *AccessorResolver
	contextID int64
	searchURL string
}

// OpenSession 建立抽取会话
//
// 步骤: 发现或创建页面目标 -> 连接目标socket -> 启用Page/Runtime域 ->
// 定位抽取接口(必要时显式导航到搜索页后重试) -> 等待应用级就绪。
// 任一步骤失败返回SessionError,已建立的连接会被关闭
func OpenSession(ctx context.Context, cfg SessionConfig, searchURL string) (*Session, error) {
	target, err := findTarget(ctx, cfg, searchURL)
	if err != nil {
		return nil, err
	}
	if target.WebSocketDebuggerURL == "" {
		return nil, &SessionError{Reason: fmt.Sprintf("目标页面无可用socket地址: %s", target.URL)}
	}

	transport, err := Dial(ctx, target.WebSocketDebuggerURL)
	if err != nil {
		return nil, &SessionError{Reason: "连接页面目标失败", Err: err}
	}

	s := &Session{
		cfg:       cfg,
		transport: transport,
		registry:  NewContextRegistry(),
		searchURL: searchURL,
	}
	s.resolver = NewAccessorResolver(transport, s.registry)

	// 注册表必须在Runtime.enable之前挂接,否则错过初始上下文宣告
	s.registry.Attach(transport)

	if err := s.enableDomains(ctx); err != nil {
		transport.Close()
		return nil, err
	}

	if err := s.acquireAccessor(ctx); err != nil {
		transport.Close()
		return nil, err
	}

	if err := s.waitReady(ctx); err != nil {
		transport.Close()
		return nil, err
	}

	utils.Infof("✅ 抽取会话建立完成: %s (contextId=%d)", target.URL, s.contextID)
	return s, nil
}

// findTarget 发现可调试的页面目标
// 优先复用已打开的搜索站标签页;没有则通过/json/new创建;
// 未提供搜索URL时退回第一个page类型目标
func findTarget(ctx context.Context, cfg SessionConfig, searchURL string) (*targetInfo, error) {
	base := fmt.Sprintf("http://%s:%d", cfg.DebugHost, cfg.DebugPort)

	targets, err := listTargets(ctx, base)
	if err != nil {
		return nil, &SessionError{Reason: "查询调试目标失败", Err: err}
	}

	searchHost := ""
	if searchURL != "" {
		if parsed, err := url.Parse(searchURL); err == nil {
			searchHost = parsed.Host
		}
	}

	var firstPage *targetInfo
	for i := range targets {
		t := &targets[i]
		if t.Type != "page" {
			continue
		}
		if firstPage == nil {
			firstPage = t
		}
		if searchHost != "" && strings.Contains(t.URL, searchHost) {
			utils.Infof("🔍 复用已打开的搜索页标签: %s", t.URL)
			return t, nil
		}
	}

	if searchURL != "" {
		created, err := createTarget(ctx, base, searchURL)
		if err == nil {
			utils.Infof("🆕 创建新标签页: %s", searchURL)
			return created, nil
		}
		utils.Warnf("创建标签页失败,回退到现有标签: %v", err)
	}

	if firstPage != nil {
		return firstPage, nil
	}
	return nil, &SessionError{Reason: "没有可调试的页面目标"}
}

func listTargets(ctx context.Context, base string) ([]targetInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/json", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("调试端点返回状态码 %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var targets []targetInfo
	if err := json.Unmarshal(body, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

func createTarget(ctx context.Context, base, pageURL string) (*targetInfo, error) {
	endpoint := base + "/json/new?" + url.QueryEscape(pageURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("创建目标返回状态码 %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var target targetInfo
	if err := json.Unmarshal(body, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// enableDomains 启用Page和Runtime协议域
// Runtime.enable会触发浏览器重放当前所有执行上下文的创建事件
func (s *Session) enableDomains(ctx context.Context) error {
	if _, err := s.transport.Call(ctx, "Page.enable", nil, s.cfg.CallTimeout); err != nil {
		return &SessionError{Reason: "启用Page域失败", Err: err}
	}
	if _, err := s.transport.Call(ctx, "Runtime.enable", nil, s.cfg.CallTimeout); err != nil {
		return &SessionError{Reason: "启用Runtime域失败", Err: err}
	}
	return nil
}

// acquireAccessor 定位抽取接口
// 先在当前页面上轮询定位;超时后若有搜索URL,显式导航一次再重试
func (s *Session) acquireAccessor(ctx context.Context) error {
	if found, id := s.resolveWithWait(ctx, s.cfg.StatusTimeout); found {
		s.contextID = id
		return nil
	}

	if s.searchURL == "" {
		return &SessionError{Reason: "未找到抽取接口,且无搜索URL可导航"}
	}

	utils.Warnf("当前页面未找到抽取接口,导航到搜索页重试: %s", s.searchURL)
	if err := s.Navigate(ctx, s.searchURL); err != nil {
		return &SessionError{Reason: "导航到搜索页失败", Err: err}
	}

	if found, id := s.resolveWithWait(ctx, s.cfg.StatusTimeout); found {
		s.contextID = id
		return nil
	}
	return &SessionError{Reason: "导航后仍未找到抽取接口"}
}

// resolveWithWait 在时限内轮询定位抽取接口
func (s *Session) resolveWithWait(ctx context.Context, timeout time.Duration) (bool, int64) {
	deadline := time.Now().Add(timeout)
	for {
		if found, id := s.resolver.Resolve(ctx); found {
			return true, id
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false, 0
		}
		time.Sleep(s.cfg.PollInterval)
	}
}

// waitReady 等待应用级就绪信号
// 接口探测成功不代表页面数据可用,需要额外等到isReady()为真
func (s *Session) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(s.cfg.ReadyTimeout)
	for {
		ready, err := s.transport.EvalBool(ctx, exprIsReady, s.evalOpts(false))
		if err == nil && ready {
			return nil
		}
		if time.Now().After(deadline) {
			return &SessionError{Reason: "等待页面就绪超时"}
		}
		if ctx.Err() != nil {
			return &SessionError{Reason: "等待页面就绪被取消", Err: ctx.Err()}
		}
		time.Sleep(s.cfg.PollInterval)
	}
}

func (s *Session) evalOpts(awaitPromise bool) EvalOptions {
	return EvalOptions{
		ContextID:    s.contextID,
		AwaitPromise: awaitPromise,
		Timeout:      s.cfg.CallTimeout,
	}
}

// Navigate 导航到指定URL并等待文档就绪
func (s *Session) Navigate(ctx context.Context, pageURL string) error {
	params := map[string]string{"url": pageURL}
	if _, err := s.transport.Call(ctx, "Page.navigate", params, s.cfg.CallTimeout); err != nil {
		return err
	}

	time.Sleep(s.cfg.NavigateSettle)

	deadline := time.Now().Add(s.cfg.ReadyTimeout)
	for {
		// 导航后上下文已重建,文档就绪检查只能在默认上下文做
		ready, err := s.transport.EvalBool(ctx, exprDocumentReady, EvalOptions{Timeout: s.cfg.CallTimeout})
		if err == nil && ready {
			return nil
		}
		if time.Now().After(deadline) {
			return &SessionError{Reason: "等待文档加载超时"}
		}
		if ctx.Err() != nil {
			return &SessionError{Reason: "导航等待被取消", Err: ctx.Err()}
		}
		time.Sleep(s.cfg.PollInterval)
	}
}

// Status 读取页面端抽取脚本上报的状态
func (s *Session) Status(ctx context.Context) (*models.PageStatus, error) {
	var status models.PageStatus
	if err := s.transport.EvalJSONString(ctx, exprStatus, s.evalOpts(false), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Extract 抽取当前页全部简历记录
func (s *Session) Extract(ctx context.Context) ([]models.Record, error) {
	var records []models.Record
	if err := s.transport.EvalJSONString(ctx, exprExtract, s.evalOpts(true), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GoToNextPage 请求翻页,返回页面是否还有下一页
func (s *Session) GoToNextPage(ctx context.Context) (bool, error) {
	return s.transport.EvalBool(ctx, exprGoToNextPage, s.evalOpts(true))
}

// CurrentPage 读取页面分页组件报告的当前页码
func (s *Session) CurrentPage(ctx context.Context) (int, error) {
	value, err := s.transport.Evaluate(ctx, exprCurrentPage, s.evalOpts(false))
	if err != nil {
		return 0, err
	}
	var page int
	if len(value) == 0 || json.Unmarshal(value, &page) != nil {
		return 0, nil
	}
	return page, nil
}

// InstallPagerPolyfill 为缺少翻页方法的旧版抽取脚本注入兜底实现
// 返回是否实际注入
func (s *Session) InstallPagerPolyfill(ctx context.Context) (bool, error) {
	return s.transport.EvalBool(ctx, exprInstallPagerPolyfill, s.evalOpts(false))
}

// HardReload 硬导航恢复: 强制回到搜索页并重新定位抽取接口
// 用于页面前端路由残留旧状态导致抽取结果为空的场景
func (s *Session) HardReload(ctx context.Context) error {
	if s.searchURL == "" {
		return &SessionError{Reason: "无搜索URL,无法硬导航"}
	}

	utils.Warn("执行硬导航恢复")
	if err := s.Navigate(ctx, s.searchURL); err != nil {
		return err
	}

	found, id := s.resolveWithWait(ctx, s.cfg.StatusTimeout)
	if !found {
		return &SessionError{Reason: "硬导航后未找到抽取接口"}
	}
	s.contextID = id

	return s.waitReady(ctx)
}

// Close 关闭会话的底层连接,幂等
func (s *Session) Close() error {
	return s.transport.Close()
}
