//go:build mage

// Package main contains Mage build targets for paper-search developer tooling.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "paper-search"
	cmdPkg  = "./cmd/paper-search"
)

// projectDirs are the working directories the CLI writes to.
var projectDirs = []string{
	"data",
	".secrets",
	"results",
}

// Init creates the working directories and an example config file.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat("paper-search.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile("paper-search.yaml", []byte(exampleConfig), 0o644); err != nil {
			return fmt.Errorf("writing paper-search.yaml: %w", err)
		}
		fmt.Println("   paper-search.yaml")
	}
	fmt.Println("Project initialized.")
	return nil
}

const exampleConfig = `search:
  page_size: 20
  enable_pubmed: true
  enable_semantic_scholar: true
merge:
  duplicate_threshold: 0.8
enhancer:
  endpoint: ""
analytics:
  endpoint: ""
  redis_addr: ""
store:
  path: data/paper-search.db
dashboard:
  addr: ":8090"
log:
  level: info
`

// Build compiles the CLI binary into bin/. The SQLite driver needs cgo.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	env := map[string]string{"CGO_ENABLED": "1"}
	if err := sh.RunWithV(env, "go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Vet runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Test runs the unit tests with the race detector.
func Test() error {
	mg.Deps(Vet)
	return sh.RunV("go", "test", "-race", "./...")
}

// Dashboard builds the CLI and serves the analytics dashboard.
func Dashboard() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "dashboard")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

// Stats prints Go production and test line counts per package directory.
func Stats() error {
	prod := map[string]int{}
	test := map[string]int{}
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, "_test.go") {
			test[filepath.Dir(path)] += n
		} else {
			prod[filepath.Dir(path)] += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	var totalProd, totalTest int
	for dir, n := range prod {
		fmt.Printf("%-28s %6d %6d\n", dir, n, test[dir])
		totalProd += n
		totalTest += test[dir]
	}
	fmt.Printf("%-28s %6d %6d\n", "total", totalProd, totalTest)
	return nil
}

// countLines counts non-blank lines in a file.
func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	n := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n, nil
}
