package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/models"
	"github.com/jarcoal/httpmock"
)

const testBase = "https://queue.example.com"

func newTestClient(t *testing.T) *Client {
	c := NewClient(testBase, "worker-test", 5*time.Second)
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func successResponder(value interface{}) httpmock.Responder {
	return httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
		"status": "success",
		"value":  value,
	})
}

func TestClaimReturnsTask(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", testBase+"/api/mutation",
		func(req *http.Request) (*http.Response, error) {
			var body rpcRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				t.Fatalf("解析请求失败: %v", err)
			}
			if body.Path != "resume_tasks:claim" {
				t.Errorf("RPC路径错误: %q", body.Path)
			}
			return successResponder(map[string]interface{}{
				"_id": "task-1",
				"config": map[string]interface{}{
					"keyword":  "销售",
					"location": "东莞",
					"limit":    50,
					"maxPages": 3,
				},
			})(req)
		})

	task, err := c.Claim(context.Background())
	if err != nil {
		t.Fatalf("领取失败: %v", err)
	}
	if task == nil || task.ID != "task-1" {
		t.Fatalf("任务解析错误: %+v", task)
	}
	if task.Config.Keyword != "销售" || task.Config.Limit != 50 {
		t.Errorf("任务配置错误: %+v", task.Config)
	}
}

func TestClaimNoWork(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", testBase+"/api/mutation", successResponder(nil))

	task, err := c.Claim(context.Background())
	if err != nil {
		t.Fatalf("空队列不应报错: %v", err)
	}
	if task != nil {
		t.Errorf("空队列应返回nil任务,实际 %+v", task)
	}
}

func TestClaimServerError(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", testBase+"/api/mutation",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"status":       "error",
			"errorMessage": "database unavailable",
		}))

	_, err := c.Claim(context.Background())
	var queueErr *QueueError
	if !errors.As(err, &queueErr) {
		t.Fatalf("期望QueueError,实际 %v", err)
	}
	if queueErr.Message != "database unavailable" {
		t.Errorf("错误应携带服务端消息: %q", queueErr.Message)
	}
}

func TestClaimHTTPFailure(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", testBase+"/api/mutation",
		httpmock.NewStringResponder(500, "internal error"))

	_, err := c.Claim(context.Background())
	var queueErr *QueueError
	if !errors.As(err, &queueErr) {
		t.Fatalf("期望QueueError,实际 %v", err)
	}
	if queueErr.StatusCode != 500 {
		t.Errorf("应携带HTTP状态码,实际 %d", queueErr.StatusCode)
	}
}

func TestUpdateProgressCancelled(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", testBase+"/api/mutation",
		successResponder(map[string]string{"status": "cancelled"}))

	err := c.UpdateProgress(context.Background(), models.ProgressReport{
		TaskID:  "task-1",
		Current: 20,
		Page:    1,
	})
	if !errors.Is(err, ErrTaskCancelled) {
		t.Fatalf("期望取消信号,实际 %v", err)
	}
}

func TestUpdateProgressNormal(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", testBase+"/api/mutation",
		successResponder(map[string]string{"status": "running"}))

	if err := c.UpdateProgress(context.Background(), models.ProgressReport{TaskID: "t"}); err != nil {
		t.Fatalf("正常进度上报不应报错: %v", err)
	}
}

func TestHeartbeatFailureSwallowed(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", testBase+"/api/mutation",
		httpmock.NewStringResponder(503, "unavailable"))

	// 失败只记日志,不panic不上抛
	c.Heartbeat(context.Background(), models.Heartbeat{
		WorkerID: "worker-test",
		State:    models.WorkerStateIdle,
	})
}

func TestSubmitResumesStatsDefaults(t *testing.T) {
	tests := []struct {
		name          string
		value         interface{}
		wantInput     int
		wantSubmitted int
		wantInserted  int
	}{
		{
			name:          "服务端省略可选字段",
			value:         map[string]interface{}{},
			wantInput:     3,
			wantSubmitted: 3,
			wantInserted:  0,
		},
		{
			name: "服务端返回完整统计",
			value: map[string]interface{}{
				"input":     3,
				"submitted": 3,
				"inserted":  2,
				"deduped":   1,
			},
			wantInput:     3,
			wantSubmitted: 3,
			wantInserted:  2,
		},
	}

	records := []models.FormattedRecord{
		{ExternalID: "a"}, {ExternalID: "b"}, {ExternalID: "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t)
			httpmock.RegisterResponder("POST", testBase+"/api/mutation", successResponder(tt.value))

			stats, err := c.SubmitResumes(context.Background(), records)
			if err != nil {
				t.Fatalf("提交失败: %v", err)
			}
			if stats.Input != tt.wantInput || stats.Submitted != tt.wantSubmitted {
				t.Errorf("input/submitted = %d/%d,期望 %d/%d",
					stats.Input, stats.Submitted, tt.wantInput, tt.wantSubmitted)
			}
			if stats.Inserted != tt.wantInserted {
				t.Errorf("inserted = %d,期望 %d", stats.Inserted, tt.wantInserted)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	c := newTestClient(t)
	var captured map[string]interface{}
	httpmock.RegisterResponder("POST", testBase+"/api/mutation",
		func(req *http.Request) (*http.Response, error) {
			var body rpcRequest
			json.NewDecoder(req.Body).Decode(&body)
			captured, _ = body.Args.(map[string]interface{})
			if body.Path != "resume_tasks:complete" {
				t.Errorf("RPC路径错误: %q", body.Path)
			}
			return successResponder(nil)(req)
		})

	err := c.Complete(context.Background(), "task-1", models.TaskStatusFailed, nil, "browser gone")
	if err != nil {
		t.Fatalf("结束任务失败: %v", err)
	}
	if captured["status"] != "failed" || captured["error"] != "browser gone" {
		t.Errorf("complete载荷错误: %v", captured)
	}
	if _, ok := captured["results"]; ok {
		t.Error("失败结束不应携带results")
	}
}

func TestExtraHeadersApplied(t *testing.T) {
	c := newTestClient(t)
	c.SetHeaders(map[string]string{"Authorization": "Bearer deploy-key"})

	var gotAuth string
	httpmock.RegisterResponder("POST", testBase+"/api/mutation",
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			return successResponder(nil)(req)
		})

	c.Claim(context.Background())
	if gotAuth != "Bearer deploy-key" {
		t.Errorf("自定义头部应附加到请求,实际 %q", gotAuth)
	}
}

func TestSearchResumes(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", testBase+"/api/query",
		successResponder([]string{"r1", "r2"}))

	ids, err := c.SearchResumes(context.Background(), "销售", 10)
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}
	if len(ids) != 2 || ids[0] != "r1" {
		t.Errorf("检索结果错误: %v", ids)
	}
}
