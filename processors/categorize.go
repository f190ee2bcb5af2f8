package processors

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"multimodalRAG/core"
)

// Categorized 分区结果按类型拆开，各自保持输入顺序
type Categorized struct {
	Texts  []string
	Tables []string
}

// Categorize splits partition output into texts and tables in input order.
// Image elements are ignored: images are picked up from disk instead.
func Categorize(elements []core.RawElement) Categorized {
	var c Categorized
	for _, el := range elements {
		switch el.Type {
		case core.ElementTable:
			c.Tables = append(c.Tables, el.Text)
		case core.ElementText:
			c.Texts = append(c.Texts, el.Text)
		}
	}
	return c
}

var (
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".gif": true}
	figureNameRe    = regexp.MustCompile(`^(?:figure|table)-(\d+)-(\d+)$`)
)

// documentPrefixSep 图片文件名中文档名与原文件名的分隔符
const documentPrefixSep = "__"

// DiscoverImages lists the images in dir that belong to document, sorted by
// file name. A file named "<doc>__<name>" belongs to <doc>; a file without
// the prefix belongs to whichever document asks. The partitioner's
// "figure-<page>-<n>" name is parsed for page and index. A missing dir
// yields no images.
func DiscoverImages(dir, document string) ([]core.ImageAsset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list images in %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var assets []core.ImageAsset
	for _, name := range names {
		owner, base := document, name
		if prefix, rest, ok := strings.Cut(name, documentPrefixSep); ok {
			owner, base = prefix, rest
		}
		if owner != document {
			continue
		}
		asset := core.ImageAsset{Path: filepath.Join(dir, name), Document: owner}
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if m := figureNameRe.FindStringSubmatch(stem); m != nil {
			asset.Page, _ = strconv.Atoi(m[1])
			asset.Index, _ = strconv.Atoi(m[2])
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// DocumentKey 文档名去掉扩展名，用作图片文件名前缀
func DocumentKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
