package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidExtension indicates an input file that is not Markdown.
var ErrInvalidExtension = errors.New("file must have .md or .markdown extension")

// stdinInput is the positional argument that reads Markdown from stdin.
const stdinInput = "-"

// FileToConvert represents a single file to process.
// An empty OutputPath means the name chosen by the service, in OutputDir.
type FileToConvert struct {
	InputPath  string
	OutputPath string
	OutputDir  string
}

// discoverFiles finds all markdown files to convert.
func discoverFiles(inputPath, output string) ([]FileToConvert, error) {
	if inputPath == stdinInput {
		return []FileToConvert{resolveStdinOutput(output)}, nil
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if err := validateMarkdownExtension(inputPath); err != nil {
			return nil, err
		}
		outPath := resolveOutputPath(inputPath, output, "")
		return []FileToConvert{{InputPath: inputPath, OutputPath: outPath}}, nil
	}

	if strings.HasSuffix(output, ".pdf") {
		return nil, fmt.Errorf("%w: --output must be a directory when converting %s", ErrUsage, inputPath)
	}

	var files []FileToConvert
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}
		if !isMarkdown(path) {
			return nil
		}
		outPath := resolveOutputPath(path, output, inputPath)
		files = append(files, FileToConvert{InputPath: path, OutputPath: outPath})
		return nil
	})

	return files, err
}

// resolveStdinOutput picks the destination for Markdown read from stdin.
func resolveStdinOutput(output string) FileToConvert {
	f := FileToConvert{InputPath: stdinInput, OutputDir: "."}
	switch {
	case output == "":
	case strings.HasSuffix(output, ".pdf"):
		f.OutputPath = output
	default:
		f.OutputDir = output
	}
	return f
}

// resolveOutputPath determines the PDF output path for a markdown file.
func resolveOutputPath(inputPath, outputDir, baseInputDir string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)

	if outputDir == "" {
		return filepath.Join(filepath.Dir(inputPath), base+".pdf")
	}

	if strings.HasSuffix(outputDir, ".pdf") {
		return outputDir
	}

	if baseInputDir != "" {
		relPath, err := filepath.Rel(baseInputDir, inputPath)
		if err == nil {
			relDir := filepath.Dir(relPath)
			return filepath.Join(outputDir, relDir, base+".pdf")
		}
	}

	return filepath.Join(outputDir, base+".pdf")
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// validateMarkdownExtension checks that the file has a .md or .markdown extension.
func validateMarkdownExtension(path string) error {
	if !isMarkdown(path) {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(path))
	}
	return nil
}
