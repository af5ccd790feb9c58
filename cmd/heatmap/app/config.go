package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roman-kulish/frequency-optimizer/internal/sweep"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath      string
	RunID       string // empty selects the latest run
	ArchivePath string
	OutputFile  string
	Format      ImageFormat
	Theme       ColorTheme
	CellSize    int
	Points      []sweep.Point
	Marker      *sweep.Band
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Theme:    EnhancedTheme,
		CellSize: defaultCellSize,
	}
}

// NewConfigFromArgs parses command line arguments, without the program name.
func NewConfigFromArgs(args []string, output io.Writer) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet("heatmap", flag.ContinueOnError)
	fs.SetOutput(output)

	var imageFormat, theme string
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.StringVar(&c.RunID, "run", "", "Run ID, defaults to the latest run")
	fs.StringVar(&c.ArchivePath, "archive", "", "Path to a surface archive, instead of -db")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVar(&theme, "theme", string(EnhancedTheme), "Colour theme. [enhanced, classic, grayscale, jungle, thermal, marine]")
	fs.IntVar(&c.CellSize, "cell", defaultCellSize, "Pixels per grid cell")
	fs.Func("point", "Mark a configuration given as center,bandwidth in GHz. Repeatable", func(s string) error {
		center, bandwidth, err := parsePair(s)
		if err != nil {
			return err
		}
		c.Points = append(c.Points, sweep.Point{Center: center, Bandwidth: bandwidth})
		return nil
	})
	fs.Func("marker", "Mark the band given as low,high in GHz", func(s string) error {
		low, high, err := parsePair(s)
		if err != nil {
			return err
		}
		c.Marker = &sweep.Band{Low: low, High: high}
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)

	var err error
	switch {
	case c.DBPath == "" && c.ArchivePath == "":
		err = errors.New("one of db path or archive path is required")
	case c.DBPath != "" && c.ArchivePath != "":
		err = errors.New("db path and archive path are mutually exclusive")
	case c.ArchivePath != "" && c.RunID != "":
		err = errors.New("run id requires a db path")
	case c.OutputFile == "":
		err = errors.New("output file is required")
	case c.CellSize < 1:
		err = fmt.Errorf("cell size must be positive, got %d", c.CellSize)
	}
	if err == nil {
		if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
			err = fmt.Errorf("invalid image format: %s", imageFormat)
		}
	}
	if err == nil {
		c.Theme, err = ParseColorTheme(strings.ToLower(theme))
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}

func parsePair(s string) (float64, float64, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("expected two comma separated values, got '%s'", s)
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, err
	}
	if !(x > 0 && y > 0) {
		return 0, 0, fmt.Errorf("values must be positive, got '%s'", s)
	}
	return x, y, nil
}
