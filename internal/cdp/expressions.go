package cdp

// 页面端抽取接口为页面脚本注入的全局对象 window.__TR_RESUME_DATA__,
// 暴露 status() / isReady() / extract() / goToNextPage() 四个方法。
// 本文件集中存放所有在页面上下文中求值的表达式,便于对照扩展版本维护

const (
	// exprProbeAccessor 特征探测: 对象存在且status/extract为函数。
	// 只要求所有版本都有的两个方法 — 旧版脚本缺少isReady和goToNextPage,
	// 分别由exprIsReady的DOM回退和exprInstallPagerPolyfill兜底
	exprProbeAccessor = `(() => {
  const api = window.__TR_RESUME_DATA__;
  return !!api
    && typeof api.status === 'function'
    && typeof api.extract === 'function';
})()`

	// exprStatus 读取页面状态(卡片数/自动搜索状态/分页信息)
	exprStatus = `JSON.stringify(window.__TR_RESUME_DATA__.status())`

	// exprIsReady 应用级就绪信号,接口未实现isReady时回退到DOM存在性检查
	exprIsReady = `(() => {
  const api = window.__TR_RESUME_DATA__;
  if (api && typeof api.isReady === 'function') {
    return !!api.isReady();
  }
  return document.querySelectorAll('.resume-card, .resume-item, .search-result-item').length > 0;
})()`

	// exprExtract 抽取当前页全部记录,extract()可能返回Promise
	exprExtract = `Promise.resolve(window.__TR_RESUME_DATA__.extract()).then(r => JSON.stringify(r))`

	// exprGoToNextPage 请求翻页,返回是否存在下一页
	exprGoToNextPage = `Promise.resolve(window.__TR_RESUME_DATA__.goToNextPage()).then(r => !!r)`

	// exprCurrentPage 读取页面自身分页组件报告的当前页码
	exprCurrentPage = `(() => {
  const api = window.__TR_RESUME_DATA__;
  if (api && typeof api.status === 'function') {
    const s = api.status();
    if (s && s.pagination && s.pagination.currentPage) {
      return s.pagination.currentPage;
    }
  }
  const active = document.querySelector('.el-pagination .el-pager li.active, .el-pagination .el-pager li.is-active');
  return active ? parseInt(active.textContent, 10) || 0 : 0;
})()`

	// exprDocumentReady 文档加载完成(硬导航重试后的就绪判定)
	exprDocumentReady = `document.readyState === 'complete' || document.readyState === 'interactive'`

	// exprInstallPagerPolyfill 旧版扩展缺少goToNextPage时注入兜底实现,
	// 直接点击element-ui分页组件的下一页按钮
	exprInstallPagerPolyfill = `(() => {
  const api = window.__TR_RESUME_DATA__;
  if (!api || typeof api.goToNextPage === 'function') {
    return false;
  }
  api.goToNextPage = () => {
    const btn = document.querySelector('.el-pagination .btn-next');
    if (!btn || btn.disabled) {
      return false;
    }
    btn.click();
    return true;
  };
  return true;
})()`
)
