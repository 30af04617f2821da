package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
)

// ErrSessionPersist 会话写入失败, 对整个运行是致命的
var ErrSessionPersist = errors.New("会话持久化失败")

// SessionStore 持久化认证会话(cookie)
// 整个文件一次性替换: 先写临时文件再rename, 读者不会看到写了一半的文件
type SessionStore struct {
	path string

	mu      sync.Mutex
	current *models.Session
}

// NewSessionStore 创建会话存储
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Path 会话文件路径
func (s *SessionStore) Path() string {
	return s.path
}

// Load 读取会话文件
// 文件不存在返回(nil, nil), 这是未登录时的正常起点
func (s *SessionStore) Load() (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取会话文件失败 [%s]: %w", s.path, err)
	}

	var session models.Session
	if err := session.FromJSON(data); err != nil {
		return nil, fmt.Errorf("解析会话文件失败 [%s]: %w", s.path, err)
	}

	s.current = &session
	utils.Debugf("已加载会话: %d个cookie (%s)", len(session.Cookies), s.path)
	return &session, nil
}

// Current 内存中的会话快照
func (s *SessionStore) Current() []models.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Snapshot()
}

// Save 整体替换会话文件
func (s *SessionStore) Save(session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(session); err != nil {
		return err
	}
	s.current = session
	return nil
}

// Merge 把新cookie合并进会话并持久化; 没有变化时不写文件
func (s *SessionStore) Merge(cookies []models.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.current.Merge(cookies)
	if !s.current.Empty() && sameCookies(s.current.Cookies, merged.Cookies) {
		return nil
	}
	if err := s.write(merged); err != nil {
		return err
	}
	s.current = merged
	return nil
}

// write 写临时文件后rename, 调用方持有锁
func (s *SessionStore) write(session *models.Session) error {
	data, err := session.ToJSON()
	if err != nil {
		return fmt.Errorf("%w: 序列化失败: %v", ErrSessionPersist, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: 创建目录失败: %v", ErrSessionPersist, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: 创建临时文件失败: %v", ErrSessionPersist, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: 写入失败: %v", ErrSessionPersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: 关闭文件失败: %v", ErrSessionPersist, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: 替换会话文件失败: %v", ErrSessionPersist, err)
	}
	return nil
}

// sameCookies 两组cookie的名称与值是否一致(顺序无关)
func sameCookies(a, b []models.Cookie) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[string]string, len(a))
	for _, c := range a {
		index[c.Domain+"\x00"+c.Path+"\x00"+c.Name] = c.Value
	}
	for _, c := range b {
		v, ok := index[c.Domain+"\x00"+c.Path+"\x00"+c.Name]
		if !ok || v != c.Value {
			return false
		}
	}
	return true
}
