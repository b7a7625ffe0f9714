package core

import (
	"strings"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}

	if cfg.Browser.DebugPort != 9222 {
		t.Errorf("默认调试端口应为9222,实际 %d", cfg.Browser.DebugPort)
	}
	if cfg.Worker.PollSeconds != 5 || cfg.Worker.BackoffSeconds != 5 {
		t.Errorf("默认轮询/退避应为5秒,实际 %d/%d", cfg.Worker.PollSeconds, cfg.Worker.BackoffSeconds)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("默认日志级别应为info,实际 %q", cfg.Logging.Level)
	}
	if !strings.HasPrefix(cfg.Queue.WorkerID, "worker-") {
		t.Errorf("未配置时应自动生成Worker标识,实际 %q", cfg.Queue.WorkerID)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CONVEX_URL", "https://my-deploy.convex.cloud")
	t.Setenv("WORKER_ID", "worker-env-1")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Queue.BaseURL != "https://my-deploy.convex.cloud" {
		t.Errorf("CONVEX_URL应覆盖队列地址,实际 %q", cfg.Queue.BaseURL)
	}
	if cfg.Queue.WorkerID != "worker-env-1" {
		t.Errorf("WORKER_ID应覆盖Worker标识,实际 %q", cfg.Queue.WorkerID)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "完整配置",
			mutate:  func(c *Config) { c.Queue.BaseURL = "https://my-deploy.convex.cloud" },
			wantErr: false,
		},
		{
			name:    "缺少队列地址",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "队列地址非法",
			mutate: func(c *Config) {
				c.Queue.BaseURL = "ftp://example.com"
			},
			wantErr: true,
		},
		{
			name: "端口越界",
			mutate: func(c *Config) {
				c.Queue.BaseURL = "https://my-deploy.convex.cloud"
				c.Browser.DebugPort = 70000
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			if err != nil {
				t.Fatalf("加载配置失败: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
