package models

import (
	"fmt"
	"net/url"
	"os"

	"github.com/google/uuid"
)

// ValidateURL 验证URL
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL必须是HTTP或HTTPS协议")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL必须包含主机名")
	}
	return nil
}

// generateID 生成唯一ID
func generateID() string {
	return uuid.New().String()
}

// DefaultWorkerID 生成默认Worker标识
// 未配置WORKER_ID时使用,格式: worker-<pid>-<uuid前8位>
func DefaultWorkerID() string {
	return fmt.Sprintf("worker-%d-%s", os.Getpid(), generateID()[:8])
}
