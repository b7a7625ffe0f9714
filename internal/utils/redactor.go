package utils

import (
	"net/http"
	"regexp"
	"strings"
)

var (
	// SensitiveFieldKeywords 敏感字段名称关键字 (用于脱敏)
	// 简历记录中的联系方式字段不允许原样进入日志
	SensitiveFieldKeywords = []string{
		"phone",
		"mobile",
		"tel",
		"email",
		"wechat",
		"qq",
		"idcard",
	}

	// SensitiveHeaderKeywords 敏感HTTP头部名称关键字
	SensitiveHeaderKeywords = []string{
		"authorization",
		"token",
		"key",
		"secret",
		"cookie",
	}

	phonePattern = regexp.MustCompile(`1[3-9]\d{9}`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// Redactor 日志脱敏器
// 负责在记录调试日志前遮蔽简历中的联系方式和请求头中的凭据
type Redactor struct {
	fieldKeywords  []string
	headerKeywords []string
}

// NewRedactor 创建脱敏器
func NewRedactor() *Redactor {
	return &Redactor{
		fieldKeywords:  SensitiveFieldKeywords,
		headerKeywords: SensitiveHeaderKeywords,
	}
}

// IsSensitiveField 检查记录字段是否为敏感字段
func (r *Redactor) IsSensitiveField(name string) bool {
	nameLower := strings.ToLower(name)
	for _, keyword := range r.fieldKeywords {
		if strings.Contains(nameLower, keyword) {
			return true
		}
	}
	return false
}

// RedactValue 脱敏单个字段值
// 手机号保留前3位和后2位,邮箱保留首字符和域名,其余完全遮蔽
func (r *Redactor) RedactValue(value string) string {
	value = phonePattern.ReplaceAllStringFunc(value, func(m string) string {
		return m[:3] + "******" + m[len(m)-2:]
	})
	value = emailPattern.ReplaceAllStringFunc(value, func(m string) string {
		at := strings.Index(m, "@")
		return m[:1] + "***" + m[at:]
	})
	return value
}

// RedactRecord 脱敏整条记录,返回可安全写日志的map
// 敏感字段按字段名遮蔽,其余字段按内容模式遮蔽
func (r *Redactor) RedactRecord(record map[string]interface{}) map[string]string {
	result := make(map[string]string, len(record))
	for name, raw := range record {
		value, ok := raw.(string)
		if !ok {
			continue
		}
		if r.IsSensitiveField(name) {
			result[name] = "***"
			continue
		}
		result[name] = r.RedactValue(value)
	}
	return result
}

// RedactHeaders 脱敏http.Header,返回格式化字符串 (用于日志输出)
// 格式: "Header1: value1, Header2: value2, ..."
func (r *Redactor) RedactHeaders(headers http.Header) string {
	var parts []string
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		if r.isSensitiveHeader(name) {
			if len(value) > 8 {
				value = value[:4] + "***" + value[len(value)-4:]
			} else {
				value = "***"
			}
		}
		parts = append(parts, name+": "+value)
	}
	return strings.Join(parts, ", ")
}

func (r *Redactor) isSensitiveHeader(name string) bool {
	nameLower := strings.ToLower(name)
	for _, keyword := range r.headerKeywords {
		if strings.Contains(nameLower, keyword) {
			return true
		}
	}
	return false
}
