// Command typegen parses the Go wire types and generates the TypeScript definitions a
// presentation client of the bridge needs. Run from the project root:
//
//	go run ./cmd/typegen -out ui/src/types/generated.ts
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	outPath := flag.String("out", "ui/src/types/generated.ts", "output TypeScript file path")
	dirs := flag.String("dirs", "core,store,protocol,events", "comma-separated source directories")
	flag.Parse()

	root, err := os.Getwd()
	if err != nil {
		fatal("getwd: %v", err)
	}

	out, err := generate(root, strings.Split(*dirs, ","))
	if err != nil {
		fatal("%v", err)
	}

	absOut := *outPath
	if !filepath.IsAbs(absOut) {
		absOut = filepath.Join(root, absOut)
	}
	if err := os.MkdirAll(filepath.Dir(absOut), 0o755); err != nil {
		fatal("mkdir: %v", err)
	}
	if err := os.WriteFile(absOut, out, 0o644); err != nil {
		fatal("write: %v", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", absOut, len(out))
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "typegen: "+format+"\n", args...)
	os.Exit(1)
}
