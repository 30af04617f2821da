package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFlags(t *testing.T) {
	seeds := filepath.Join(t.TempDir(), "seeds.txt")
	if err := os.WriteFile(seeds, []byte("https://example.org/journal\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		seeds    string
		variant  string
		mode     string
		min, max int
		threads  int
		wantErr  bool
	}{
		{"沿用配置", seeds, "", "", 1, 3, 0, false},
		{"学科变体", seeds, "wiley-discipline", "dynamic", 0, 0, 4, false},
		{"未知变体", seeds, "sciencedirect", "", 1, 3, 0, true},
		{"未知模式", seeds, "tandf", "all", 1, 3, 0, true},
		{"停顿区间颠倒", seeds, "", "", 5, 2, 0, true},
		{"负停顿", seeds, "", "", -1, 2, 0, true},
		{"并发过大", seeds, "", "", 1, 3, 100, true},
		{"种子文件不存在", filepath.Join(t.TempDir(), "none.txt"), "", "", 1, 3, 0, true},
		{"种子路径是目录", t.TempDir(), "", "", 1, 3, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFlags(tt.seeds, tt.variant, tt.mode, tt.min, tt.max, tt.threads)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFlags() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
