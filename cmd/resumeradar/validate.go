package main

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/ResumeRadar/internal/models"
)

// ValidateURL 验证URL格式
func ValidateURL(urlStr string) error {
	return models.ValidateURL(urlStr)
}

// ParseHeaders 解析 "Name: Value" 格式的自定义头部参数
func ParseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	headers := make(map[string]string, len(raw))
	for _, entry := range raw {
		name, value, found := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !found || name == "" {
			return nil, fmt.Errorf("无效的头部格式: %q (应为 'Name: Value')", entry)
		}
		headers[name] = value
	}
	return headers, nil
}

// ValidateSampleFlags 验证样本导出的命令行标志
func ValidateSampleFlags(keyword string, limit, maxPages int) error {
	// 验证关键词
	if strings.TrimSpace(keyword) == "" {
		return fmt.Errorf("搜索关键词不能为空")
	}

	// 验证采集上限
	if limit < 1 || limit > 1000 {
		return fmt.Errorf("采集上限必须在1-1000之间,当前值: %d", limit)
	}

	// 验证页数
	if maxPages < 1 || maxPages > 100 {
		return fmt.Errorf("最大页数必须在1-100之间,当前值: %d", maxPages)
	}

	return nil
}
