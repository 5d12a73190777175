// Command vwsearch finds visually similar images using a histogram file
// written by bovw.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"image/jpeg"
	"io"
	"log"
	"os"
	"strings"

	bovwimage "bovw-extract/internal/image"
	"bovw-extract/internal/search"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	top := flag.Int("top", 10, "Number of results to print")
	sheetPath := flag.String("sheet", "result.jpg", "Contact sheet of the results (empty to disable)")
	tile := flag.Int("tile", 300, "Contact sheet tile size in pixels")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Printf("Usage: vwsearch [-top 10] [-sheet result.jpg] [-tile 300] <histogram file>\n")
		os.Exit(1)
	}

	idx, err := search.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load histograms: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d histograms\n", idx.Len())

	repl(os.Stdin, os.Stdout, idx, *top, *sheetPath, *tile)
}

// repl answers queries until "quit" or end of input.
func repl(in io.Reader, out io.Writer, idx *search.Index, top int, sheetPath string, tile int) {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "query? > ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return
		}
		query := strings.TrimSpace(sc.Text())
		if query == "quit" {
			return
		}
		if query == "" {
			continue
		}

		matches, err := idx.Query(query, top)
		if errors.Is(err, search.ErrNotFound) {
			fmt.Fprintln(out, "no histogram")
			continue
		}
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		for _, m := range matches {
			fmt.Fprintf(out, "%f\t%s\n", m.Score, m.Path)
		}

		if sheetPath != "" {
			if err := writeSheet(sheetPath, matches, tile); err != nil {
				log.Printf("contact sheet: %v", err)
			}
		}
	}
}

// writeSheet lays the matched images out on a 5x2 grid and saves it as JPEG.
func writeSheet(path string, matches []search.Match, tile int) error {
	sheet := bovwimage.NewSheet(5, 2, tile)
	for n, m := range matches {
		if n >= sheet.Capacity() {
			break
		}
		layer, err := bovwimage.Load(m.Path)
		if err != nil {
			log.Printf("skipping %s: %v", m.Path, err)
			continue
		}
		sheet.Place(n, layer.Image)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, sheet.Render(), &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
