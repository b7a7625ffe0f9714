package models

import (
	"strings"
	"testing"
)

func TestTaskConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  TaskConfig
		wantErr bool
	}{
		{
			name:    "合法配置",
			config:  TaskConfig{Keyword: "销售", Limit: 50, MaxPages: 3},
			wantErr: false,
		},
		{
			name:    "缺少关键词",
			config:  TaskConfig{Limit: 50, MaxPages: 3},
			wantErr: true,
		},
		{
			name:    "采集上限为0",
			config:  TaskConfig{Keyword: "销售", Limit: 0, MaxPages: 3},
			wantErr: true,
		},
		{
			name:    "页数为负",
			config:  TaskConfig{Keyword: "销售", Limit: 50, MaxPages: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskJSONRoundTrip(t *testing.T) {
	task := Task{
		ID: "task-1",
		Config: TaskConfig{
			Keyword:  "销售",
			Location: "东莞",
			Limit:    50,
			MaxPages: 3,
		},
	}

	data, err := task.ToJSON()
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	if !strings.Contains(string(data), `"_id"`) {
		t.Error("任务id应以_id字段序列化")
	}

	var decoded Task
	if err := decoded.FromJSON(data); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}
	if decoded.ID != task.ID || decoded.Config.Keyword != task.Config.Keyword {
		t.Errorf("往返后字段不一致: %+v", decoded)
	}
}

func TestRecordFirstString(t *testing.T) {
	record := Record{
		"profileUrl": "",
		"detailUrl":  "  https://hr.job5156.com/r/1  ",
		"age":        28,
	}

	if got := record.FirstString("profileUrl", "detailUrl"); got != "https://hr.job5156.com/r/1" {
		t.Errorf("应跳过空值并去掉首尾空格,实际 %q", got)
	}
	if got := record.FirstString("age"); got != "" {
		t.Errorf("非字符串字段应视为缺失,实际 %q", got)
	}
	if got := record.FirstString("missing"); got != "" {
		t.Errorf("缺失字段应返回空串,实际 %q", got)
	}
}

// 规范化JSON按键排序,同一记录的摘要跨调用稳定
func TestRecordContentDigestStable(t *testing.T) {
	a := Record{"name": "张三", "city": "东莞"}
	b := Record{"city": "东莞", "name": "张三"}

	digestA, err := a.ContentDigest()
	if err != nil {
		t.Fatalf("计算摘要失败: %v", err)
	}
	digestB, err := b.ContentDigest()
	if err != nil {
		t.Fatalf("计算摘要失败: %v", err)
	}

	if digestA != digestB {
		t.Error("字段插入顺序不应影响摘要")
	}
	if len(digestA) != 64 {
		t.Errorf("摘要应为SHA-256十六进制(64字符),实际长度 %d", len(digestA))
	}

	again, _ := a.ContentDigest()
	if again != digestA {
		t.Error("同一记录重复计算摘要应一致")
	}
}

func TestDefaultWorkerID(t *testing.T) {
	id := DefaultWorkerID()
	if !strings.HasPrefix(id, "worker-") {
		t.Errorf("默认Worker标识格式错误: %q", id)
	}
	if id == DefaultWorkerID() {
		t.Error("两次生成的标识不应相同")
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"合法https", "https://my-deploy.convex.cloud", false},
		{"合法http", "http://localhost:3210", false},
		{"非http协议", "ftp://example.com", true},
		{"缺少主机", "https://", true},
		{"乱码", "://not a url", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
