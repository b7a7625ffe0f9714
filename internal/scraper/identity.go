package scraper

import (
	"net/url"
	"sort"
	"strings"

	"github.com/RecoveryAshes/ResumeRadar/internal/models"
)

// 身份字段别名: 同一语义字段在不同页面版本下的字段名
var (
	profileURLAliases = []string{"profileUrl", "profile_url", "detailUrl", "detail_url", "url", "link"}
	resumeIDAliases   = []string{"resumeId", "resume_id", "resumeNo", "resume_no"}
	userIDAliases     = []string{"userId", "user_id", "uid"}
	externalIDAliases = []string{"externalId", "external_id"}
)

// noopHrefs 页面占位链接,视为没有档案URL
var noopHrefs = map[string]bool{
	"#":                  true,
	"javascript:;":       true,
	"javascript:void(0)": true,
}

// DeriveKey 推导记录的身份去重键,永不失败
//
// 固定优先级回退链:
//  1. 档案URL(规范化后)
//  2. 简历编号
//  3. 用户编号
//  4. 既有外部id
//  5. 内容摘要(规范化JSON的SHA-256) — 兜底,记录任何字段变化都会改变键
//
// 前四级是记录字段的纯函数,同一实体跨采集批次产生相同的键
func DeriveKey(record models.Record) string {
	if raw := record.FirstString(profileURLAliases...); raw != "" {
		if normalized := NormalizeProfileURL(raw); normalized != "" {
			return normalized
		}
	}

	for _, aliases := range [][]string{resumeIDAliases, userIDAliases, externalIDAliases} {
		if v := record.FirstString(aliases...); v != "" {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}

	digest, err := record.ContentDigest()
	if err != nil {
		// map[string]interface{}含不可序列化值才会走到这里,极端兜底
		return "invalid-record"
	}
	return digest
}

// NormalizeProfileURL 规范化档案URL
//
// 规则: 丢弃scheme,主机小写,路径去尾部斜杠(空路径记为/),
// 查询参数按键排序并剔除utm_*跟踪参数。
// 页面上省略scheme的写法(hr.job5156.com/r/1)按主机开头解析,
// 占位链接和纯路径值返回空串(视为没有档案URL)
func NormalizeProfileURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || noopHrefs[raw] {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.Host == "" && parsed.Scheme == "" && !strings.HasPrefix(raw, "/") {
		parsed, err = url.Parse("//" + raw)
		if err != nil {
			return ""
		}
	}
	if parsed.Host == "" {
		return ""
	}

	host := strings.ToLower(parsed.Host)
	path := strings.TrimRight(parsed.Path, "/")
	if path == "" {
		path = "/"
	}

	query := normalizeQuery(parsed.Query())

	normalized := host + path
	if query != "" {
		normalized += "?" + query
	}
	return normalized
}

// normalizeQuery 参数按键排序,剔除utm_*,保持同键多值的原始顺序
func normalizeQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var parts []string
	for _, key := range keys {
		for _, value := range values[key] {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
		}
	}
	return strings.Join(parts, "&")
}

// FormatRecords 将原始抽取记录格式化为提交载荷
// 每条记录计算身份键与内容摘要,空标签被剔除
func FormatRecords(records []models.Record, source string, tags []string) []models.FormattedRecord {
	cleanTags := make([]string, 0, len(tags))
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			cleanTags = append(cleanTags, t)
		}
	}

	formatted := make([]models.FormattedRecord, 0, len(records))
	for _, record := range records {
		hash, err := record.ContentDigest()
		if err != nil {
			continue
		}
		formatted = append(formatted, models.FormattedRecord{
			ExternalID: DeriveKey(record),
			Content:    record,
			Hash:       hash,
			Source:     source,
			Tags:       cleanTags,
		})
	}
	return formatted
}
