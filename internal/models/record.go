package models

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
)

// Record 页面抽取出的单条简历数据
// 字段结构由页面端抽取脚本决定,Worker不做schema校验,
// 只要求"是一个字段map"
type Record map[string]interface{}

// GetString 按字段名取字符串值
// 非字符串类型或字段缺失返回空串
func (r Record) GetString(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// FirstString 按别名顺序查找第一个非空字符串字段
// 用途: 同一语义字段在不同页面版本下字段名不一致
func (r Record) FirstString(aliases ...string) string {
	for _, key := range aliases {
		if s := strings.TrimSpace(r.GetString(key)); s != "" {
			return s
		}
	}
	return ""
}

// CanonicalJSON 规范化JSON表示
// encoding/json对map按键排序输出,同一记录多次调用结果字节一致
func (r Record) CanonicalJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ContentDigest 内容摘要(规范化JSON的SHA-256十六进制)
// 注意: 页面任何字段变化都会改变摘要,仅作为身份链的兜底
func (r Record) ContentDigest() (string, error) {
	data, err := r.CanonicalJSON()
	if err != nil {
		return "", fmt.Errorf("序列化记录失败: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// PageStatus 页面端抽取脚本上报的状态
type PageStatus struct {
	CardCount        int            `json:"cardCount"`        // 当前页结果卡片数
	AutoSearch       string         `json:"autoSearch"`       // 自动搜索状态: running|done|skipped
	ExtensionVersion string         `json:"extensionVersion"` // 扩展版本号
	Pagination       PaginationInfo `json:"pagination"`       // 分页状态
}

// PaginationInfo 页面自身的分页状态
type PaginationInfo struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}
