package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zero-day-ai/devdefend/pipeline"
)

// extensionLanguages maps file extensions to language tags.
var extensionLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "javascript",
	".tsx":  "javascript",
	".java": "java",
	".go":   "go",
	".cs":   "csharp",
	".rb":   "ruby",
	".php":  "php",
}

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// languageOf returns the language tag for path, or "" if unknown.
func languageOf(path string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(path))]
}

// collectFiles reads every source file under paths. Files named explicitly
// are always read, so the engine can reject them; files found while walking
// a directory are kept only when their language is known and allowed.
// A non-empty language overrides extension detection.
func collectFiles(paths []string, project, language string, allowed func(string) bool) ([]pipeline.FileInput, error) {
	var files []pipeline.FileInput

	read := func(path, lang string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, pipeline.FileInput{
			Project:  project,
			Path:     filepath.ToSlash(path),
			Language: lang,
			Content:  string(data),
		})
		return nil
	}

	pick := func(path string) string {
		if language != "" {
			return language
		}
		return languageOf(path)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if err := read(root, pick(root)); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != root && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			lang := pick(path)
			if lang == "" || !allowed(lang) {
				return nil
			}
			return read(path, lang)
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}
