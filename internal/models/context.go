package models

// Level 遍历层级
type Level int

const (
	LevelDiscipline Level = iota
	LevelJournal
	LevelVolume
	LevelIssue
	LevelArticle
	LevelCitation
)

var levelNames = map[Level]string{
	LevelDiscipline: "discipline",
	LevelJournal:    "journal",
	LevelVolume:     "volume",
	LevelIssue:      "issue",
	LevelArticle:    "article",
	LevelCitation:   "citation",
}

// String 层级名称(也用作配置键)
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLevel 根据名称解析层级
func ParseLevel(name string) (Level, bool) {
	for l, n := range levelNames {
		if n == name {
			return l, true
		}
	}
	return 0, false
}

// TraversalContext 沿遍历路径向下传递的元数据
// 值类型: 每一层通过With*得到父上下文的副本并绑定一个新字段,
// 兄弟分支之间不共享可变状态
type TraversalContext struct {
	SeedURL        string
	DisciplineTree string
	DisciplineName string
	JournalName    string
	ISSN           string
	VolumeTitle    string
	IssueLabel     string
	ArticleTitle   string
}

// NewTraversalContext 从种子创建根上下文
func NewTraversalContext(seed SeedTarget) TraversalContext {
	return TraversalContext{
		SeedURL:        seed.URL,
		DisciplineTree: seed.DisciplineTree,
		DisciplineName: seed.DisciplineName,
	}
}

func (c TraversalContext) WithJournal(name, issn string) TraversalContext {
	c.JournalName = name
	c.ISSN = issn
	return c
}

func (c TraversalContext) WithVolume(title string) TraversalContext {
	c.VolumeTitle = title
	return c
}

func (c TraversalContext) WithIssue(label string) TraversalContext {
	c.IssueLabel = label
	return c
}

func (c TraversalContext) WithArticle(title string) TraversalContext {
	c.ArticleTitle = title
	return c
}
