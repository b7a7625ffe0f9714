package main

import (
	"testing"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "单个头部",
			raw:  []string{"Authorization: Bearer key"},
			want: map[string]string{"Authorization": "Bearer key"},
		},
		{
			name: "多个头部且去除空白",
			raw:  []string{"X-A:1", " X-B : 2 "},
			want: map[string]string{"X-A": "1", "X-B": "2"},
		},
		{
			name: "空输入返回nil",
			raw:  nil,
			want: nil,
		},
		{
			name:    "缺少冒号报错",
			raw:     []string{"NoColonHere"},
			wantErr: true,
		},
		{
			name:    "空头部名报错",
			raw:     []string{": value"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeaders(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHeaders(%v) err = %v,期望错误 %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("头部数量错误: %v", got)
			}
			for name, value := range tt.want {
				if got[name] != value {
					t.Errorf("头部 %q = %q,期望 %q", name, got[name], value)
				}
			}
		})
	}
}

func TestValidateSampleFlags(t *testing.T) {
	tests := []struct {
		name     string
		keyword  string
		limit    int
		maxPages int
		wantErr  bool
	}{
		{name: "合法参数", keyword: "销售", limit: 200, maxPages: 10},
		{name: "空关键词", keyword: "  ", limit: 200, maxPages: 10, wantErr: true},
		{name: "上限越界", keyword: "销售", limit: 1001, maxPages: 10, wantErr: true},
		{name: "页数越界", keyword: "销售", limit: 200, maxPages: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSampleFlags(tt.keyword, tt.limit, tt.maxPages)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSampleFlags() err = %v,期望错误 %v", err, tt.wantErr)
			}
		})
	}
}

// --queue-url覆盖配置前必须通过URL校验
func TestLoadRuntimeConfigRejectsBadQueueURL(t *testing.T) {
	old := queueURL
	queueURL = "not-a-url"
	defer func() { queueURL = old }()

	if _, err := loadRuntimeConfig(); err == nil {
		t.Fatal("非法的--queue-url应被拒绝")
	}
}

func TestLoadRuntimeConfigAppliesQueueURL(t *testing.T) {
	old := queueURL
	queueURL = "https://my-deploy.convex.cloud"
	defer func() { queueURL = old }()

	config, err := loadRuntimeConfig()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if config.Queue.BaseURL != "https://my-deploy.convex.cloud" {
		t.Errorf("--queue-url应覆盖配置,实际 %q", config.Queue.BaseURL)
	}
}
