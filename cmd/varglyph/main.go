// Command varglyph inspects a variable font and instantiates glyphs at
// arbitrary design-space locations.
//
// Usage:
//
//	varglyph -font MyFont.json -list
//	varglyph -font MyFont.json -glyph dieresis -loc wght=650,wdth=80
//	varglyph -font Static.ttf -glyph A
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gogpu/varglyph"
	"github.com/gogpu/varglyph/compose"
	"github.com/gogpu/varglyph/fonthandler"
	"github.com/gogpu/varglyph/sfntsource"
)

func main() {
	var (
		fontPath  = flag.String("font", "", "font file (.json for the glyph schema, .ttf/.otf for compiled fonts)")
		glyphName = flag.String("glyph", "", "glyph to instantiate")
		locArg    = flag.String("loc", "", "design-space location, e.g. wght=650,wdth=80")
		list      = flag.Bool("list", false, "list the glyphs in the font")
		verbose   = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		varglyph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if *fontPath == "" || (*glyphName == "" && !*list) {
		flag.Usage()
		os.Exit(2)
	}

	backend, err := openBackend(*fontPath)
	if err != nil {
		fatal(err)
	}
	handler := fonthandler.New(backend)
	defer handler.Close()

	ctx := context.Background()

	if *list {
		glyphMap, err := handler.GlyphMap(ctx)
		if err != nil {
			fatal(err)
		}
		names := make([]string, 0, len(glyphMap))
		for name := range glyphMap {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	loc, err := parseLocation(*locArg)
	if err != nil {
		fatal(err)
	}
	axes, err := handler.GlobalAxes(ctx)
	if err != nil {
		fatal(err)
	}

	cp := compose.New(handler, axes)
	resolved, err := cp.Instantiate(ctx, *glyphName, loc)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("glyph %s at {%s}\n", resolved.Name, loc.Key())
	fmt.Printf("  advance:    %g\n", resolved.Instance.XAdvance)
	fmt.Printf("  points:     %d\n", resolved.Path.NumPoints())
	fmt.Printf("  components: %d\n", len(resolved.Components))
	fmt.Printf("  editable:   %v\n", resolved.Editable)
	if bounds, ok := resolved.Bounds(); ok {
		fmt.Printf("  bounds:     (%g, %g) .. (%g, %g)\n",
			bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY)
	}
	for _, diag := range resolved.Diagnostics {
		fmt.Fprintf(os.Stderr, "warning: %v\n", diag)
	}
}

func openBackend(path string) (fonthandler.Backend, error) {
	if strings.HasSuffix(path, ".json") {
		return fonthandler.NewFileBackend(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return sfntsource.New(data)
}

func parseLocation(s string) (varglyph.Location, error) {
	loc := make(varglyph.Location)
	if s == "" {
		return loc, nil
	}
	for _, part := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("bad location entry %q, want axis=value", part)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value in %q: %w", part, err)
		}
		loc[name] = v
	}
	return loc, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "varglyph:", err)
	os.Exit(1)
}
