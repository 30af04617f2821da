package models

import (
	"sort"
	"strings"
)

// SeedTarget 一个遍历分支的起点
// 读取后不可修改,每个种子只消费一次
type SeedTarget struct {
	URL            string            `json:"url"`
	DisciplineTree string            `json:"discipline_tree,omitempty"`
	DisciplineName string            `json:"discipline_name,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"` // 其余自由列
	Line           int               `json:"line"`           // 在输入文件中的行号
}

// Tag 读取自由标签列(不区分大小写)
func (s SeedTarget) Tag(name string) string {
	for k, v := range s.Tags {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Key 去重键: URL与学科、标签列一起决定, 行号不参与
// 同一学科URL挂在不同学科树下时是两个种子
func (s SeedTarget) Key() string {
	parts := []string{s.URL, s.DisciplineTree, s.DisciplineName}
	tags := make([]string, 0, len(s.Tags))
	for k, v := range s.Tags {
		tags = append(tags, strings.ToLower(k)+"="+v)
	}
	sort.Strings(tags)
	return strings.Join(append(parts, tags...), "\x00")
}

// SeedItem 队列中的种子项
type SeedItem struct {
	Seed  SeedTarget
	Index int // 在种子列表中的序号,从0开始
}
