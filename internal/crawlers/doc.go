// Package crawlers 提供抓取与选择两项能力, 供遍历引擎调用。
//
// # 抓取能力
//
// Fetcher 屏蔽了获取方式的差异:
//
//   - StaticFetcher: 基于Colly的轻量HTTP抓取, 共享cookie jar, 支持表单POST
//   - BrowserFetcher: 基于Rod的浏览器渲染, 一个浏览器只属于一个worker,
//     所有请求经互斥锁串行执行
//
// 两者都返回 Page{Status, URL, Body, Cookies}。网络错误以error返回,
// 非200状态通过 Page.Status 交给调用方判断。
//
// # 选择能力
//
// Document 封装 htmlquery/xpath 的查询, 找不到元素时返回空结果而不是错误;
// ExtractForm 使用goquery读取页面中的表单字段, 用于登录和引文导出。
//
// # 资源
//
// ResourceMonitor 根据可用内存与CPU数量给出建议的worker数量;
// SeedQueue 把种子分发给各个worker。
package crawlers
