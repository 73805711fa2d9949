package preflight

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/docsmcp/internal/config"
)

// CheckCorpus checks that a corpus path exists and holds documentation
// files. A missing corpus is a warning: the server still starts and
// answers "not in docs" for that domain.
func (c *Checker) CheckCorpus(cc config.CorpusConfig) CheckResult {
	result := CheckResult{
		Name:     "corpus_" + cc.Name,
		Required: false,
	}

	if cc.Path == "" {
		result.Status = StatusWarn
		result.Message = "no path configured"
		return result
	}

	info, err := os.Stat(cc.Path)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("not readable: %s", cc.Path)
		result.Details = err.Error()
		return result
	}

	if !info.IsDir() {
		f, err := os.Open(cc.Path)
		if err != nil {
			result.Status = StatusWarn
			result.Message = fmt.Sprintf("not readable: %s", cc.Path)
			result.Details = err.Error()
			return result
		}
		_ = f.Close()
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s (%d bytes)", cc.Path, info.Size())
		return result
	}

	n := countDocs(cc.Path, cc.Extensions)
	if n == 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s has no files with extensions %s", cc.Path, strings.Join(cc.Extensions, ", "))
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d files)", cc.Path, n)
	return result
}

func countDocs(root string, exts []string) int {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	n := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if len(allowed) == 0 || allowed[strings.ToLower(filepath.Ext(path))] {
			n++
		}
		return nil
	})
	return n
}
