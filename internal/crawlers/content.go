package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
	"github.com/andybalholm/brotli"
)

var (
	pdfMagic  = []byte("%PDF-")
	gzipMagic = []byte{0x1f, 0x8b}
)

// IsValidDownload 检查下载内容是否像预期的文件类型。
// 出版商在会话失效时常以200返回登录页, 需要靠内容本身识别。
//
// PDF: Content-Type为application/pdf或以%PDF-开头
// 引文: 包含RIS标记"TY  -", 或Content-Type非HTML的非空文本
func IsValidDownload(ext, contentType string, body []byte) bool {
	if len(body) == 0 {
		return false
	}

	sample := body
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	trimmed := bytes.TrimLeft(sample, " \t\r\n\ufeff")
	ct := strings.ToLower(contentType)

	switch ext {
	case models.ExtPDF:
		return strings.Contains(ct, "application/pdf") || bytes.HasPrefix(trimmed, pdfMagic)
	case models.ExtTXT:
		if bytes.Contains(sample, []byte("TY  -")) {
			return true
		}
		if strings.Contains(ct, "html") || looksLikeHTML(trimmed) {
			return false
		}
		return true
	default:
		return true
	}
}

func looksLikeHTML(sample []byte) bool {
	lower := bytes.ToLower(sample)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html"))
}

// decompressResponse 根据Content-Encoding解压响应体
// 支持 gzip, deflate, br (Brotli)。
// Colly会自行解开gzip, 此时保留的头部与实际内容不符, 所以gzip先检查魔数。
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip", "x-gzip":
		if !bytes.HasPrefix(body, gzipMagic) {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}

// CalculateHash 计算SHA-256哈希
func CalculateHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}
