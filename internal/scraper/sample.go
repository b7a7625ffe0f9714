package scraper

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/models"
)

// SearchCriteria 样本元数据中记录的搜索条件
type SearchCriteria struct {
	Keyword  string            `json:"keyword"`
	Location string            `json:"location"`
	Filters  map[string]string `json:"filters"`
}

// SampleMetadata 样本文件的元数据块
// 记录来源URL、搜索条件和复现方式,便于离线回放和扩展版本对照
type SampleMetadata struct {
	SourceURL      string         `json:"sourceUrl"`
	SearchCriteria SearchCriteria `json:"searchCriteria"`
	GeneratedAt    string         `json:"generatedAt"`
	GeneratedBy    string         `json:"generatedBy"`
	TotalPages     int            `json:"totalPages"`
	TotalResumes   int            `json:"totalResumes"`
	Reproduction   string         `json:"reproduction"`
}

// SampleDocument 落盘的样本文件结构
type SampleDocument struct {
	Metadata SampleMetadata  `json:"metadata"`
	Data     []models.Record `json:"data"`
}

// 样本导出专用的URL参数,不属于搜索条件本身
var sampleControlParams = map[string]bool{
	"tr_auto_export": true,
	"tr_sample_name": true,
}

// BuildSampleMetadata 从页面URL和状态构造样本元数据
func BuildSampleMetadata(pageURL, sampleName string, status *models.PageStatus, resumeCount int) SampleMetadata {
	meta := SampleMetadata{
		GeneratedBy:  "browser-extension",
		TotalPages:   1,
		TotalResumes: resumeCount,
		GeneratedAt:  time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}

	if status != nil {
		if v := status.ExtensionVersion; v != "" && v != "unknown" {
			meta.GeneratedBy = "browser-extension@" + v
		}
		if status.Pagination.TotalPages > 0 {
			meta.TotalPages = status.Pagination.TotalPages
		}
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		meta.SourceURL = pageURL
		return meta
	}

	query := parsed.Query()
	meta.SearchCriteria = SearchCriteria{
		Keyword:  strings.TrimSpace(query.Get("keyword")),
		Location: strings.TrimSpace(query.Get("location")),
		Filters:  map[string]string{},
	}
	for key, values := range query {
		if key == "keyword" || key == "location" || sampleControlParams[key] {
			continue
		}
		if len(values) > 0 && values[0] != "" {
			meta.SearchCriteria.Filters[key] = values[0]
		}
	}

	cleanQuery := url.Values{}
	for key, values := range query {
		if sampleControlParams[key] {
			continue
		}
		for _, v := range values {
			if v != "" {
				cleanQuery.Add(key, v)
			}
		}
	}
	parsed.RawQuery = cleanQuery.Encode()
	parsed.Fragment = ""
	meta.SourceURL = parsed.String()

	reproduction := url.Values{}
	reproduction.Set("tr_auto_export", "json")
	reproduction.Set("tr_sample_name", sampleName)
	meta.Reproduction = fmt.Sprintf("Navigate to sourceUrl, then add ?%s", reproduction.Encode())

	return meta
}
