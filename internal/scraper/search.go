package scraper

import (
	"net/url"
	"regexp"
	"strings"
)

// SearchBaseURL 简历搜索页地址
const SearchBaseURL = "https://hr.job5156.com/search"

// SourceSite 提交记录时标注的数据来源
const SourceSite = "hr.job5156.com"

// BuildSearchURL 构造搜索页URL
// base为空时使用默认搜索页地址
func BuildSearchURL(base, keyword, location string) string {
	if base == "" {
		base = SearchBaseURL
	}
	params := url.Values{}
	params.Set("keyword", keyword)
	if location != "" {
		params.Set("location", location)
	}
	return base + "?" + params.Encode()
}

var (
	illegalNameChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	dashRun          = regexp.MustCompile(`-+`)
)

// SanitizeSampleName 清洗样本名称,使其可安全用作文件名
// 非法字符和空白折叠为连字符,去掉前导点,截断到80字符
func SanitizeSampleName(value string) string {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return ""
	}
	cleaned = illegalNameChars.ReplaceAllString(cleaned, "-")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, "-")
	cleaned = dashRun.ReplaceAllString(cleaned, "-")
	cleaned = strings.TrimLeft(cleaned, ".")

	if len(cleaned) > 80 {
		cleaned = cleaned[:80]
	}
	return cleaned
}
