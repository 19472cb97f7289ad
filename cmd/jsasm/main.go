// jsasm assembles YAML assembler sources into image files and disassembles
// images for inspection.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/jsos/image"
	"github.com/chazu/jsos/interp"
	"github.com/chazu/jsos/kernel"
	"github.com/chazu/jsos/vm"
)

func main() {
	output := flag.String("o", "", "Output file (default: input with "+kernel.ImageExt+" extension)")
	disasm := flag.Bool("d", false, "Print a disassembly instead of writing an image")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jsasm [options] file...\n\n")
		fmt.Fprintf(os.Stderr, "Assembles %s sources into %s images.\n\n", kernel.SourceExt, kernel.ImageExt)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  jsasm init.jsa.yaml            # Write init.jmg\n")
		fmt.Fprintf(os.Stderr, "  jsasm -o boot.jmg init.jsa.yaml\n")
		fmt.Fprintf(os.Stderr, "  jsasm -d init.jmg              # Disassemble an image\n")
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *output != "" && len(paths) > 1 {
		fmt.Fprintf(os.Stderr, "Error: -o needs exactly one input\n")
		os.Exit(2)
	}

	for _, path := range paths {
		if err := process(path, *output, *disasm, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

func process(path, output string, disasm bool, stdout io.Writer) error {
	img, err := load(path)
	if err != nil {
		return err
	}
	if disasm {
		_, err := io.WriteString(stdout, interp.Disassemble(img))
		return err
	}

	data, err := image.Marshal(img)
	if err != nil {
		return err
	}
	if output == "" {
		output = outputPath(path)
	}
	return os.WriteFile(output, data, 0644)
}

// load reads either an assembler source or an encoded image.
func load(path string) (*vm.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, kernel.ImageExt) {
		return image.Parse(data)
	}
	return interp.Assemble(data)
}

func outputPath(path string) string {
	for _, ext := range []string{kernel.SourceExt, ".yaml", ".yml"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext) + kernel.ImageExt
		}
	}
	return path + kernel.ImageExt
}
