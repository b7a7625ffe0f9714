package core

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
)

// CheckEnvironment 检查运行环境
//
// 两项检查: 浏览器调试端点可达(需要Chrome以--remote-debugging-port启动),
// 任务队列服务可达(已配置时)。任一必需项不可达返回错误
func CheckEnvironment(ctx context.Context, cfg *Config) error {
	utils.Info("🔍 检查运行环境...")

	browserOK := checkEndpoint(ctx, fmt.Sprintf("http://%s:%d/json/version", cfg.Browser.DebugHost, cfg.Browser.DebugPort))
	if browserOK {
		utils.Infof("✅ 浏览器调试端点可达: %s:%d", cfg.Browser.DebugHost, cfg.Browser.DebugPort)
	} else {
		utils.Errorf("❌ 浏览器调试端点不可达: %s:%d", cfg.Browser.DebugHost, cfg.Browser.DebugPort)
		utils.Info("   请以远程调试模式启动Chrome,例如:")
		utils.Infof("   google-chrome --remote-debugging-port=%d", cfg.Browser.DebugPort)
	}

	queueOK := true
	if cfg.Queue.BaseURL != "" {
		queueOK = checkEndpoint(ctx, cfg.Queue.BaseURL)
		if queueOK {
			utils.Infof("✅ 任务队列服务可达: %s", cfg.Queue.BaseURL)
		} else {
			utils.Errorf("❌ 任务队列服务不可达: %s", cfg.Queue.BaseURL)
		}
	} else {
		utils.Warn("⚠️ 未配置任务队列地址,跳过队列检查")
	}

	if !browserOK || !queueOK {
		return fmt.Errorf("环境检查未通过")
	}
	utils.Info("✨ 环境检查通过")
	return nil
}

// checkEndpoint 探测HTTP端点,只要求TCP/HTTP层面有响应
func checkEndpoint(ctx context.Context, url string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
