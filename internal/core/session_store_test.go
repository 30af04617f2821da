package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

func TestSessionStore_LoadMissing(t *testing.T) {
	s := NewSessionStore(filepath.Join(t.TempDir(), "cookies.json"))
	session, err := s.Load()
	if err != nil {
		t.Fatalf("文件不存在不应报错: %v", err)
	}
	if session != nil {
		t.Errorf("期望nil会话, 实际 %+v", session)
	}
	if len(s.Current()) != 0 {
		t.Error("期望空快照")
	}
}

func TestSessionStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cookies.json")
	s := NewSessionStore(path)

	session := (*models.Session)(nil).Merge([]models.Cookie{
		{Name: "ezproxy", Value: "abc", Domain: "proxy.example.edu", Path: "/"},
	})
	if err := s.Save(session); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	loaded, err := NewSessionStore(path).Load()
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if len(loaded.Cookies) != 1 || loaded.Cookies[0].Value != "abc" {
		t.Errorf("会话内容不一致: %+v", loaded.Cookies)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("不应残留临时文件: %v", entries)
	}
}

func TestSessionStore_Merge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	s := NewSessionStore(path)

	first := []models.Cookie{{Name: "sid", Value: "1", Domain: "a.example", Path: "/"}}
	if err := s.Merge(first); err != nil {
		t.Fatalf("合并失败: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("会话文件未写入: %v", err)
	}

	t.Run("没有变化时不写文件", func(t *testing.T) {
		time.Sleep(20 * time.Millisecond)
		if err := s.Merge(first); err != nil {
			t.Fatalf("合并失败: %v", err)
		}
		after, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if !after.ModTime().Equal(info.ModTime()) {
			t.Error("文件被重写")
		}
	})

	t.Run("新值覆盖旧值", func(t *testing.T) {
		if err := s.Merge([]models.Cookie{{Name: "sid", Value: "2", Domain: "a.example", Path: "/"}}); err != nil {
			t.Fatalf("合并失败: %v", err)
		}
		loaded, err := NewSessionStore(path).Load()
		if err != nil {
			t.Fatalf("加载失败: %v", err)
		}
		if len(loaded.Cookies) != 1 || loaded.Cookies[0].Value != "2" {
			t.Errorf("期望sid=2, 实际 %+v", loaded.Cookies)
		}
	})

	if err := s.Merge(nil); err != nil {
		t.Errorf("空cookie不应报错: %v", err)
	}
}

func TestSessionStore_PersistError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	s := NewSessionStore(filepath.Join(blocker, "cookies.json"))
	err := s.Merge([]models.Cookie{{Name: "sid", Value: "1"}})
	if !errors.Is(err, ErrSessionPersist) {
		t.Fatalf("期望ErrSessionPersist, 实际 %v", err)
	}
}

func TestSessionStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSessionStore(path).Load(); err == nil {
		t.Error("损坏的会话文件应报错")
	}
}
