package core

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/JournalCrawler/internal/crawlers"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
	"golang.org/x/net/html"
)

var issnPrefixPattern = regexp.MustCompile(`ISSN[^\d]+`)

// disciplineJournal 学科列表中的一本期刊
type disciplineJournal struct {
	Name             string
	URL              string
	CurrentlyKnownAs string
	YearFrom         string
	YearTo           string
}

// disciplineSite 学科变体的页面结构
type disciplineSite struct {
	publisher string
	listURL   func(seedURL string) string
	journals  string // 列表中的期刊节点
	journal   func(doc *crawlers.Document, n *html.Node) disciplineJournal
	nextPage  string // 翻页链接, 为空时只有一页
	scrape    func(ctx context.Context, e *Engine, b *Branch, tc models.TraversalContext, info *models.JournalInfo, doc *crawlers.Document) error
}

var disciplineSites = map[models.Variant]*disciplineSite{
	models.VariantPortalDiscipline: {
		listURL:  func(seedURL string) string { return seedURL },
		journals: `//li[div[@class="journal"]]//div[@class="title"]/a`,
		journal:  anchorJournal(`string(.)`),
		scrape:   scrapePortalJournal,
	},
	models.VariantTandFDiscipline: {
		publisher: "Taylor and Francis",
		listURL:   withPageSize,
		journals:  `//article//h4[contains(@class, "art_title")]/a`,
		journal:   anchorJournal(`./text()`),
		scrape:    scrapeTandFJournal,
	},
	models.VariantWileyDiscipline: {
		publisher: "Wiley",
		listURL:   func(seedURL string) string { return seedURL },
		journals:  `//li[contains(@class, "search__item")]`,
		journal:   wileySearchItem,
		nextPage:  `//div[@class="pagination"]/span/a[@title="Next page"]`,
		scrape:    scrapeWileyJournal,
	},
}

// crawlDiscipline 学科列表 → 期刊元数据
func (e *Engine) crawlDiscipline(ctx context.Context, b *Branch) error {
	site, ok := disciplineSites[e.config.Variant]
	if !ok {
		return fmt.Errorf("变体 %q 不是学科变体", e.config.Variant)
	}

	tc := models.NewTraversalContext(b.Seed)
	b.enter(StateAtDiscipline)

	max, bounded := e.config.Limit(models.LevelJournal)
	visited := make(map[string]bool)
	count := 0

	for pageNo, pageURL := 0, site.listURL(b.Seed.URL); pageURL != "" && !visited[pageURL]; pageNo++ {
		visited[pageURL] = true
		if err := e.pause(ctx, pageNo); err != nil {
			return err
		}

		req := crawlers.FetchRequest{URL: pageURL}
		page, err := e.fetch(ctx, b, req)
		if err != nil {
			if !stopsBranch(ctx, err) {
				e.fetchFailed(tc, pageURL, err)
			}
			if count == 0 || stopsBranch(ctx, err) {
				return err
			}
			return nil
		}
		doc, err := page.Document()
		if err != nil {
			e.fetchFailed(tc, pageURL, err)
			return nil
		}

		nodes := doc.Select(site.journals)
		if ClassifyChildren(models.LevelJournal, nodes).Kind == models.OutcomeEmpty {
			if count == 0 {
				e.logEntry(models.LogEntry{
					Category: models.LogDisciplineNoContent,
					Fields:   []string{tc.DisciplineName},
					URL:      page.RequestURL,
				})
			}
			return nil
		}

		for _, n := range nodes {
			if bounded && count >= max {
				return nil
			}

			// 没有链接的条目不计入期刊上限
			ref := site.journal(doc, n)
			if ref.URL == "" {
				utils.Debugf("期刊缺少链接: %s", ref.Name)
				continue
			}
			if err := e.pause(ctx, count); err != nil {
				return err
			}
			count++

			if err := e.crawlDisciplineJournal(ctx, b, tc, site, ref); err != nil {
				return err
			}
		}

		pageURL = ""
		if site.nextPage != "" {
			pageURL = firstOf(doc.Links(nil, site.nextPage))
		}
	}
	return nil
}

func (e *Engine) crawlDisciplineJournal(ctx context.Context, b *Branch, tc models.TraversalContext, site *disciplineSite, ref disciplineJournal) error {
	b.enter(StateAtJournal)
	tc = tc.WithJournal(ref.Name, "")

	page, doc, err := e.visit(ctx, b, tc, crawlers.FetchRequest{URL: ref.URL})
	if err != nil || page == nil {
		return err
	}

	info := models.JournalInfo{
		DisciplineTree:   tc.DisciplineTree,
		DisciplineName:   tc.DisciplineName,
		JournalName:      ref.Name,
		Publisher:        site.publisher,
		CurrentlyKnownAs: ref.CurrentlyKnownAs,
		YearFrom:         ref.YearFrom,
		YearTo:           ref.YearTo,
		JournalURL:       page.URL,
	}
	if err := site.scrape(ctx, e, b, tc, &info, doc); err != nil {
		return err
	}

	b.records++
	e.deps.Stats.journals.Add(1)
	utils.Infof("📚 %s / %s", info.DisciplineName, info.JournalName)
	return e.deps.Journals.AcceptJournal(ctx, info)
}

// anchorJournal 期刊节点本身就是链接
func anchorJournal(nameExpr string) func(*crawlers.Document, *html.Node) disciplineJournal {
	return func(doc *crawlers.Document, n *html.Node) disciplineJournal {
		return disciplineJournal{
			Name: CleanText(doc.Value(n, nameExpr)),
			URL:  doc.ResolveURL(crawlers.Attr(n, "href")),
		}
	}
}

// withPageSize 一页列出全部期刊
func withPageSize(seedURL string) string {
	u, err := url.Parse(seedURL)
	if err != nil {
		return seedURL + "&pageSize=1000"
	}
	q := u.Query()
	q.Set("pageSize", "1000")
	u.RawQuery = q.Encode()
	return u.String()
}

// scrapePortalJournal 门户期刊页上的全部元数据
func scrapePortalJournal(_ context.Context, _ *Engine, _ *Branch, _ models.TraversalContext, info *models.JournalInfo, doc *crawlers.Document) error {
	if name := CleanText(doc.Value(nil, `//h3/text()`)); name != "" {
		info.JournalName = name
	}

	issn := doc.Value(nil, `//div[@id="journal-details"]/div[@class="issn"]/text()`)
	info.ISSN = strings.TrimSpace(issnPrefixPattern.ReplaceAllString(issn, ""))
	info.Publisher = CleanText(doc.Value(nil, `//div[@id="journal-details"]/div[@class="publisher"]/a/text()`))

	years := digitsPattern.FindAllString(doc.Value(nil, `string(//div[@id="journal-details"]/div[@class="coverage"])`), -1)
	switch len(years) {
	case 1:
		info.YearFrom = years[0]
	case 2:
		info.YearFrom, info.YearTo = years[0], years[1]
	}

	recent := doc.Value(nil, `string(//h4[contains(string(), "Most Recent Issue:")])`)
	info.MostRecentIssue = strings.TrimSpace(strings.ReplaceAll(recent, "Most Recent Issue:", ""))
	info.Abstract = CleanText(doc.Value(nil, `string(//div[@id="journal-details"]/div[@class="description"])`))

	var former []string
	for _, n := range doc.Select(`//h3/following-sibling::div[@class="linked-title"]`) {
		parts := doc.Values(n, `.//text()`)
		if line := CleanText(strings.Join(parts, " ")); line != "" {
			former = append(former, line)
		}
	}
	info.FormerlyKnownAs = strings.Join(former, "\n")
	return nil
}

// scrapeTandFJournal 期刊信息页与目标范围页
func scrapeTandFJournal(ctx context.Context, e *Engine, b *Branch, tc models.TraversalContext, info *models.JournalInfo, doc *crawlers.Document) error {
	menu := doc.First(nil, `//ul[@role="menulist"]`)
	if menu == nil {
		return nil
	}

	if a, ok := crawlers.FindAnchor(menu, doc.URL(), "Journal information"); ok {
		page, idoc, err := e.visit(ctx, b, tc, crawlers.FetchRequest{URL: a.URL, Referer: doc.URL()})
		if err != nil {
			return err
		}
		if page != nil {
			info.ISSN = strings.TrimSpace(idoc.Value(nil, `//span[contains(text(), "Print ISSN:")]/following-sibling::text()`))
			info.OnlineISSN = strings.TrimSpace(idoc.Value(nil, `//span[contains(text(), "Online ISSN:")]/following-sibling::text()`))
			info.CurrentlyKnownAs = joinClean(idoc, `//h3[contains(., "Currently known as:")]/following-sibling::ul[1]/li`)
			info.FormerlyKnownAs = joinClean(idoc, `//h3[contains(., "Formerly known as")]/following-sibling::ul[1]/li`)
		}
	}

	if a, ok := crawlers.FindAnchor(menu, doc.URL(), "Aims and scope"); ok {
		page, adoc, err := e.visit(ctx, b, tc, crawlers.FetchRequest{URL: a.URL, Referer: doc.URL()})
		if err != nil {
			return err
		}
		if page != nil {
			var lines []string
			for _, n := range adoc.Select(`//h1[contains(text(), "Aims and scope")]/following-sibling::div[1]/*`) {
				if line := strings.TrimSpace(crawlers.Text(n)); line != "" {
					lines = append(lines, line)
				}
			}
			info.Abstract = strings.Join(lines, "\n")
		}
	}
	return nil
}

// wileySearchItem 搜索结果条目; 期刊改名时链接指向当前名称
func wileySearchItem(doc *crawlers.Document, n *html.Node) disciplineJournal {
	ref := disciplineJournal{
		YearFrom: CleanText(doc.Value(n, `.//a[@class="meta__date"][1]/text()`)),
		YearTo:   CleanText(doc.Value(n, `.//a[@class="meta__date"][2]/text()`)),
	}
	if current := doc.First(n, `.//span[contains(@class, "meta__title__currentVersion")]/a`); current != nil {
		ref.CurrentlyKnownAs = CleanText(crawlers.Text(current))
		ref.Name = CleanText(doc.Value(n, `string(.//h3)`))
		ref.URL = doc.ResolveURL(crawlers.Attr(current, "href"))
		return ref
	}
	if title := doc.First(n, `.//h3/a`); title != nil {
		ref.Name = CleanText(crawlers.Text(title))
		ref.URL = doc.ResolveURL(crawlers.Attr(title, "href"))
	}
	return ref
}

// scrapeWileyJournal 影响因子、ISI排名与在线ISSN
func scrapeWileyJournal(_ context.Context, _ *Engine, _ *Branch, _ models.TraversalContext, info *models.JournalInfo, doc *crawlers.Document) error {
	info.ImpactFactor = CleanText(doc.Value(nil, `//span[contains(text(), "Impact factor:")]//following-sibling::span[1]/text()`))
	info.ISIRanking = strings.Join(doc.Values(nil, `//span[contains(text(), "ISI Journal Citation")]//following-sibling::span[1]/text()`), "\n")
	info.OnlineISSN = CleanText(doc.Value(nil, `//span[contains(text(), "Online ISSN:")]//following-sibling::span[1]/text()`))
	return nil
}

// joinClean 每个节点的文本清理后按行拼接
func joinClean(doc *crawlers.Document, expr string) string {
	var lines []string
	for _, n := range doc.Select(expr) {
		if line := CleanText(crawlers.Text(n)); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
