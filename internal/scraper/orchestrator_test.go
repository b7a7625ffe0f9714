package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/models"
)

// stubPage 桩页面
// batches按页预置记录,hasNext按页预置翻页结果
type stubPage struct {
	batches      [][]models.Record
	hasNext      []bool
	reloadTo     [][]models.Record // HardReload后替换batches(nil表示不替换)
	stuckAtPage  int               // 翻到该页时页码不再推进(0表示不卡)
	extractErrAt int               // 该页Extract返回错误(0表示不出错)

	page        int
	nextCalls   int
	hardReloads int
	polyfills   int
}

func newStubPage(batches [][]models.Record, hasNext []bool) *stubPage {
	return &stubPage{batches: batches, hasNext: hasNext, page: 1}
}

func (s *stubPage) current() []models.Record {
	if s.page-1 < len(s.batches) {
		return s.batches[s.page-1]
	}
	return nil
}

func (s *stubPage) Status(ctx context.Context) (*models.PageStatus, error) {
	return &models.PageStatus{
		CardCount:  len(s.current()),
		AutoSearch: "done",
	}, nil
}

func (s *stubPage) Extract(ctx context.Context) ([]models.Record, error) {
	if s.extractErrAt == s.page {
		return nil, errors.New("页面脚本异常")
	}
	return s.current(), nil
}

func (s *stubPage) GoToNextPage(ctx context.Context) (bool, error) {
	hasNext := s.page-1 < len(s.hasNext) && s.hasNext[s.page-1]
	s.nextCalls++
	if hasNext && s.stuckAtPage != s.page+1 {
		s.page++
	}
	return hasNext, nil
}

func (s *stubPage) CurrentPage(ctx context.Context) (int, error) {
	return s.page, nil
}

func (s *stubPage) InstallPagerPolyfill(ctx context.Context) (bool, error) {
	s.polyfills++
	return false, nil
}

func (s *stubPage) HardReload(ctx context.Context) error {
	s.hardReloads++
	s.page = 1
	if s.reloadTo != nil {
		s.batches = s.reloadTo
	}
	return nil
}

func fastConfig(limit, maxPages int) Config {
	return Config{
		Limit:           limit,
		MaxPages:        maxPages,
		ResultTimeout:   100 * time.Millisecond,
		ResultPoll:      5 * time.Millisecond,
		AutoSearchGrace: 0,
		SettleDelay:     0,
		AdvanceTimeout:  50 * time.Millisecond,
		AdvancePoll:     5 * time.Millisecond,
	}
}

func makeBatch(page, n int) []models.Record {
	batch := make([]models.Record, n)
	for i := range batch {
		batch[i] = models.Record{"resumeId": fmt.Sprintf("p%d-%d", page, i)}
	}
	return batch
}

// 三页20/20/5,limit=50,maxPages=3: 期望45条、翻页2次、进度(20,1)(40,2)(45,3)
func TestRunThreePages(t *testing.T) {
	page := newStubPage(
		[][]models.Record{makeBatch(1, 20), makeBatch(2, 20), makeBatch(3, 5)},
		[]bool{true, true, false},
	)

	var progress [][2]int
	records, pages, err := NewOrchestrator(fastConfig(50, 3)).Run(context.Background(), page,
		func(total, p int) error {
			progress = append(progress, [2]int{total, p})
			return nil
		})

	if err != nil {
		t.Fatalf("采集失败: %v", err)
	}
	if len(records) != 45 {
		t.Errorf("期望45条记录,实际 %d", len(records))
	}
	if pages != 3 {
		t.Errorf("期望访问3页,实际 %d", pages)
	}
	if page.nextCalls != 2 {
		t.Errorf("期望翻页2次,实际 %d", page.nextCalls)
	}

	want := [][2]int{{20, 1}, {40, 2}, {45, 3}}
	if len(progress) != len(want) {
		t.Fatalf("期望%d次进度回调,实际 %v", len(want), progress)
	}
	for i, w := range want {
		if progress[i] != w {
			t.Errorf("进度回调%d期望%v,实际 %v", i, w, progress[i])
		}
	}
}

// 达到limit即停: 可能超出limit最多一页(接受的超采,不截断)
func TestRunStopsOnLimit(t *testing.T) {
	page := newStubPage(
		[][]models.Record{makeBatch(1, 20), makeBatch(2, 20), makeBatch(3, 20)},
		[]bool{true, true, true},
	)

	records, _, err := NewOrchestrator(fastConfig(30, 10)).Run(context.Background(), page, nil)
	if err != nil {
		t.Fatalf("采集失败: %v", err)
	}
	if len(records) != 40 {
		t.Errorf("limit=30时第2页结束应停止,期望40条,实际 %d", len(records))
	}
	if page.nextCalls != 1 {
		t.Errorf("期望翻页1次,实际 %d", page.nextCalls)
	}
}

// 页码推进超时: 优雅停止,保留已采集数据,不报错
func TestRunPaginationAdvanceTimeout(t *testing.T) {
	page := newStubPage(
		[][]models.Record{makeBatch(1, 20), makeBatch(2, 20)},
		[]bool{true, true},
	)
	page.stuckAtPage = 2

	records, pages, err := NewOrchestrator(fastConfig(100, 5)).Run(context.Background(), page, nil)
	if err != nil {
		t.Fatalf("页码推进超时不应作为错误上抛: %v", err)
	}
	if len(records) != 20 {
		t.Errorf("期望只保留第1页的20条,实际 %d", len(records))
	}
	if pages != 1 {
		t.Errorf("期望停止在第1页,实际 %d", pages)
	}
}

// 首页为空且不允许空结果: 恰好一次硬导航重试
func TestRunEmptyFirstPageRetriesOnce(t *testing.T) {
	page := newStubPage([][]models.Record{{}}, []bool{false})
	page.reloadTo = [][]models.Record{makeBatch(1, 8)}

	records, _, err := NewOrchestrator(fastConfig(50, 3)).Run(context.Background(), page, nil)
	if err != nil {
		t.Fatalf("采集失败: %v", err)
	}
	if page.hardReloads != 1 {
		t.Errorf("期望恰好1次硬导航重试,实际 %d", page.hardReloads)
	}
	if len(records) != 8 {
		t.Errorf("重试后应采到8条,实际 %d", len(records))
	}
}

// 重试后仍为空: 接受空结果,不再重试
func TestRunEmptyAfterRetryAccepted(t *testing.T) {
	page := newStubPage([][]models.Record{{}}, []bool{false})

	records, _, err := NewOrchestrator(fastConfig(50, 3)).Run(context.Background(), page, nil)
	if err != nil {
		t.Fatalf("重试后的空结果应被接受: %v", err)
	}
	if page.hardReloads != 1 {
		t.Errorf("期望恰好1次硬导航重试,实际 %d", page.hardReloads)
	}
	if len(records) != 0 {
		t.Errorf("期望空结果,实际 %d 条", len(records))
	}
}

// AllowEmpty时空结果直接接受,不触发硬导航
func TestRunAllowEmptySkipsRetry(t *testing.T) {
	page := newStubPage([][]models.Record{{}}, []bool{false})

	cfg := fastConfig(50, 3)
	cfg.AllowEmpty = true
	_, _, err := NewOrchestrator(cfg).Run(context.Background(), page, nil)
	if err != nil {
		t.Fatalf("采集失败: %v", err)
	}
	if page.hardReloads != 0 {
		t.Errorf("AllowEmpty时不应硬导航,实际 %d 次", page.hardReloads)
	}
}

// 进度回调报错(取消信号): 立即停止,不再翻页,错误原样上抛
func TestRunCancelledViaProgress(t *testing.T) {
	page := newStubPage(
		[][]models.Record{makeBatch(1, 20), makeBatch(2, 20)},
		[]bool{true, true},
	)

	cancelSignal := errors.New("任务已被取消")
	records, _, err := NewOrchestrator(fastConfig(100, 5)).Run(context.Background(), page,
		func(total, p int) error {
			return cancelSignal
		})

	if !errors.Is(err, cancelSignal) {
		t.Fatalf("取消信号应原样上抛,实际 %v", err)
	}
	if page.nextCalls != 0 {
		t.Errorf("取消后不应再翻页,实际翻页 %d 次", page.nextCalls)
	}
	if len(records) != 20 {
		t.Errorf("取消时应返回已采集的20条,实际 %d", len(records))
	}
}

// 首页抽取调用失败且无累计数据: 上抛ExtractionError
func TestRunExtractionErrorOnFirstPage(t *testing.T) {
	page := newStubPage([][]models.Record{makeBatch(1, 10)}, []bool{false})
	page.extractErrAt = 1
	page.reloadTo = [][]models.Record{makeBatch(1, 10)}

	_, _, err := NewOrchestrator(fastConfig(50, 3)).Run(context.Background(), page, nil)
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("期望ExtractionError,实际 %v", err)
	}
}
