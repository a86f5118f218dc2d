package resume

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ExtractText 提取PDF全部页面的文本并拼接
// 简历在启动时读取一次，之后缓存的文本会嵌入每次的system prompt
func ExtractText(pdfPath string) (string, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("简历PDF不存在: %s", pdfPath)
	}

	tempDir, err := os.MkdirTemp("", "cv_pdf_text_*")
	if err != nil {
		return "", fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer os.RemoveAll(tempDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(pdfPath, tempDir, nil, conf); err != nil {
		return "", fmt.Errorf("提取PDF内容失败: %w", err)
	}

	pages, err := collectPageFiles(tempDir)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, contentFile := range pages {
		raw, err := os.ReadFile(contentFile)
		if err != nil {
			return "", fmt.Errorf("读取页面内容失败: %w", err)
		}
		text := extractTextFromContent(string(raw))
		if text != "" {
			out.WriteString(text)
			out.WriteString("\n")
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// collectPageFiles 收集ExtractContentFile生成的页面内容文件，按页码排序
func collectPageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取临时目录失败: %w", err)
	}

	type pageFile struct {
		page int
		path string
	}
	var pages []pageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// 内容文件命名形如 <basename>_Content_page_<N>.txt
		idx := strings.LastIndex(name, "_Content_page_")
		if idx < 0 || !strings.HasSuffix(name, ".txt") {
			continue
		}
		numStr := strings.TrimSuffix(name[idx+len("_Content_page_"):], ".txt")
		num, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		pages = append(pages, pageFile{page: num, path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].page < pages[j].page })

	result := make([]string, 0, len(pages))
	for _, p := range pages {
		result = append(result, p.path)
	}
	return result, nil
}

// extractTextFromContent 从PDF内容流中提取文本绘制操作的字符串
func extractTextFromContent(content string) string {
	var texts []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// 只处理文本绘制操作: Tj, TJ, ', "
		if !strings.Contains(line, " Tj") && !strings.Contains(line, " TJ") &&
			!strings.Contains(line, "' ") && !strings.Contains(line, "\" ") {
			continue
		}
		texts = append(texts, extractParenStrings(line)...)
	}
	return cleanupText(strings.Join(texts, " "))
}

// extractParenStrings 提取一行操作中所有括号包裹的字符串字面量
func extractParenStrings(operation string) []string {
	var texts []string
	inText := false
	start := -1

	for i, char := range operation {
		if char == '(' && (i == 0 || operation[i-1] != '\\') {
			inText = true
			start = i + 1
		} else if char == ')' && inText && (i == 0 || operation[i-1] != '\\') {
			if start != -1 && start < i {
				text := operation[start:i]
				text = strings.ReplaceAll(text, "\\(", "(")
				text = strings.ReplaceAll(text, "\\)", ")")
				text = strings.ReplaceAll(text, "\\\\", "\\")
				if strings.TrimSpace(text) != "" {
					texts = append(texts, text)
				}
			}
			inText = false
			start = -1
		}
	}
	return texts
}

// cleanupText 去掉控制字符并压缩多余空白
func cleanupText(text string) string {
	var b strings.Builder
	for _, char := range text {
		if char >= 32 || char == '\n' || char == '\t' {
			b.WriteRune(char)
		} else {
			b.WriteRune(' ')
		}
	}
	result := strings.TrimSpace(b.String())
	for strings.Contains(result, "  ") {
		result = strings.ReplaceAll(result, "  ", " ")
	}
	return result
}
