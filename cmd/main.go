package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/1F47E/mappins/pkg/catalog"
	"github.com/1F47E/mappins/pkg/models"
	"github.com/1F47E/mappins/pkg/projection"
	"github.com/1F47E/mappins/pkg/rtree"
	"github.com/1F47E/mappins/pkg/writer"
)

// ErrUnverified is returned in strict mode when the catalog holds placeholder coordinates.
var ErrUnverified = errors.New("catalog has unverified coordinates")

const defaultOverlapRadius = 1.5

var (
	outputFile  string
	catalogFile string
	strict      bool
	verbose     bool
	outputJSON  bool
	radius      float64
	nearFlag    string
	nearCount   int
	boxFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "mappins",
	Short: "Generate map pin positions for the locations page",
	Long: `Project the location catalog onto an equirectangular world map and write
the pins, with x/y as percentages of the image size, to a JSON file for the frontend.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return generate(cmd.OutOrStdout(), outputFile)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print projected pins without writing anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return list(cmd.OutOrStdout())
	},
}

var overlapsCmd = &cobra.Command{
	Use:   "overlaps",
	Short: "Report pins drawn on top of each other",
	Long:  `Index the projected pins in an R-Tree and list every pair closer than --radius map percent.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return overlaps(cmd.OutOrStdout(), radius)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&catalogFile, "catalog", "c", "", "Catalog YAML file (default: embedded catalog)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Fail when the catalog has unverified coordinates")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.Flags().StringVarP(&outputFile, "out", "o", writer.DefaultPath, "Output file path")

	listCmd.Flags().BoolVar(&outputJSON, "json", false, "Output pins as JSON")
	listCmd.Flags().StringVar(&nearFlag, "near", "", "Only pins nearest to map position X,Y (percent)")
	listCmd.Flags().IntVarP(&nearCount, "neighbors", "n", 3, "Number of pins to show with --near")
	listCmd.Flags().StringVar(&boxFlag, "box", "", "Only pins inside map box X1,Y1,X2,Y2 (percent, top-left to bottom-right)")
	listCmd.MarkFlagsMutuallyExclusive("near", "box")

	overlapsCmd.Flags().Float64VarP(&radius, "radius", "r", defaultOverlapRadius, "Overlap radius in map percent")
	overlapsCmd.Flags().BoolVar(&outputJSON, "json", false, "Output overlaps as JSON")

	rootCmd.AddCommand(listCmd, overlapsCmd)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("mappins: ")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// generate builds the pins and writes the document. Nothing is written on error.
func generate(stdout io.Writer, path string) error {
	pins, err := buildPins()
	if err != nil {
		return err
	}

	found, err := findOverlaps(pins, defaultOverlapRadius)
	if err != nil {
		return err
	}
	for _, o := range found {
		log.Printf("warning: pins %q and %q overlap (%.2f%% apart)", o.A.ID, o.B.ID, o.Separation)
	}

	if err := writer.WriteFile(path, pins); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Wrote %d locations to %s\n", len(pins), path)
	return nil
}

func list(stdout io.Writer) error {
	pins, err := buildPins()
	if err != nil {
		return err
	}

	pins, err = filterPins(pins)
	if err != nil {
		return err
	}

	if outputJSON {
		return writer.Encode(stdout, pins)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLAT\tLON\tX\tY")
	for _, p := range pins {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name,
			formatFloat(p.Lat), formatFloat(p.Lon), formatFloat(p.X), formatFloat(p.Y))
	}
	return tw.Flush()
}

func overlaps(stdout io.Writer, radius float64) error {
	pins, err := buildPins()
	if err != nil {
		return err
	}

	found, err := findOverlaps(pins, radius)
	if err != nil {
		return err
	}

	if outputJSON {
		return writer.EncodeValue(stdout, found)
	}

	if len(found) == 0 {
		fmt.Fprintf(stdout, "No overlapping pins within %s%%\n", formatFloat(radius))
		return nil
	}
	for _, o := range found {
		fmt.Fprintf(stdout, "%s <-> %s: %.4f%% apart on the map, %.1f km apart\n",
			o.A.ID, o.B.ID, o.Separation, o.DistanceKm)
	}
	return nil
}

// buildPins loads the catalog and projects it.
func buildPins() ([]models.Pin, error) {
	locations, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	if ids := catalog.Unverified(locations); len(ids) > 0 {
		if strict {
			return nil, fmt.Errorf("%w: %s", ErrUnverified, strings.Join(ids, ", "))
		}
		for _, id := range ids {
			log.Printf("warning: location %q has unverified coordinates", id)
		}
	}

	pins, err := projection.BuildPins(locations)
	if err != nil {
		return nil, err
	}

	if verbose {
		for _, p := range pins {
			log.Printf("%s: (%v, %v) -> x=%v y=%v", p.ID, p.Lat, p.Lon, p.X, p.Y)
		}
	}
	return pins, nil
}

func loadCatalog() ([]models.Location, error) {
	if catalogFile == "" {
		return catalog.Load()
	}
	if verbose {
		log.Printf("Loading catalog from %s", catalogFile)
	}
	return catalog.LoadFile(catalogFile)
}

// filterPins applies --near or --box through the pin index.
func filterPins(pins []models.Pin) ([]models.Pin, error) {
	if nearFlag == "" && boxFlag == "" {
		return pins, nil
	}

	index := rtree.NewPinIndex()
	index.Add(pins)

	if nearFlag != "" {
		coords, err := parseCoords(nearFlag, 2)
		if err != nil {
			return nil, fmt.Errorf("invalid --near: %w", err)
		}
		if nearCount <= 0 {
			return nil, fmt.Errorf("invalid --neighbors: %d", nearCount)
		}
		return index.Nearest(models.Position{X: coords[0], Y: coords[1]}, nearCount), nil
	}

	coords, err := parseCoords(boxFlag, 4)
	if err != nil {
		return nil, fmt.Errorf("invalid --box: %w", err)
	}
	return index.QueryBox(models.BoundingBox{
		TopLeft:     models.Position{X: coords[0], Y: coords[1]},
		BottomRight: models.Position{X: coords[2], Y: coords[3]},
	})
}

func parseCoords(v string, n int) ([]float64, error) {
	parts := strings.Split(v, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated numbers, got %q", n, v)
	}

	coords := make([]float64, n)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		coords[i] = f
	}
	return coords, nil
}

func findOverlaps(pins []models.Pin, radius float64) ([]rtree.Overlap, error) {
	index := rtree.NewPinIndex()
	index.Add(pins)
	return index.Overlaps(radius)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
