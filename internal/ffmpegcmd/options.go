package ffmpegcmd

import (
	"fmt"
	"regexp"
	"strings"
)

// InputMode selects what kind of file a recipe converts.
type InputMode string

const (
	InputVideo     InputMode = "video"
	InputThumbnail InputMode = "thumbnail"
)

// OutputMode selects the conversion pipeline.
type OutputMode string

const (
	OutputTranscode OutputMode = "transcode"
	OutputGIF       OutputMode = "gif"
	OutputMerge     OutputMode = "merge"
	OutputSplit     OutputMode = "split"
	OutputSlice     OutputMode = "slice"
)

// QualityMode selects which rate-control parameter set is meaningful:
// constant-rate-factor (single pass) or bitrate-targeted (two passes).
type QualityMode string

const (
	QualityCRF     QualityMode = "crf"
	QualityTwoPass QualityMode = "two_pass"
)

// PaletteMode selects the GIF conversion strategy.
type PaletteMode string

const (
	// PaletteFaster converts in one invocation with the default palette.
	PaletteFaster PaletteMode = "faster"
	// PaletteBetter generates a palette PNG first, then maps through it.
	PaletteBetter PaletteMode = "better"
)

// Options is one named conversion recipe. It is immutable once compiled;
// Clone produces an independent copy for user-driven duplication.
type Options struct {
	Name string

	Input  InputMode
	Output OutputMode

	VideoCodec string
	AudioCodec string
	Quality    QualityMode
	CRF        int    // meaningful when Quality == QualityCRF
	BitrateK   int    // target kbit/s, meaningful when Quality == QualityTwoPass
	HWAccel    string // passed to -hwaccel when set
	Palette    PaletteMode

	// Filename transforms, applied in fixed order: suffix, regex rename,
	// extension override.
	Suffix      string
	RenameRegex string
	RenameTo    string
	ExtOverride string

	DeleteOriginal  bool
	RenameThumbnail bool
	ExtraArgs       []string
}

// New returns a validated recipe, defaulting unset enum fields.
func New(opts Options) (Options, error) {
	if opts.Input == "" {
		opts.Input = InputVideo
	}
	if opts.Output == "" {
		opts.Output = OutputTranscode
	}
	if opts.Quality == "" {
		opts.Quality = QualityCRF
	}
	if opts.Palette == "" {
		opts.Palette = PaletteFaster
	}
	if err := opts.validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (o Options) validate() error {
	switch o.Input {
	case InputVideo, InputThumbnail:
	default:
		return fmt.Errorf("input mode: unsupported value %q", o.Input)
	}
	switch o.Output {
	case OutputTranscode, OutputGIF, OutputMerge, OutputSplit, OutputSlice:
	default:
		return fmt.Errorf("output mode: unsupported value %q", o.Output)
	}
	switch o.Quality {
	case QualityCRF, QualityTwoPass:
	default:
		return fmt.Errorf("quality mode: unsupported value %q", o.Quality)
	}
	switch o.Palette {
	case PaletteFaster, PaletteBetter:
	default:
		return fmt.Errorf("palette mode: unsupported value %q", o.Palette)
	}
	if o.RenameRegex != "" {
		if _, err := regexp.Compile(o.RenameRegex); err != nil {
			return fmt.Errorf("rename regex: %w", err)
		}
	}
	if o.ExtOverride != "" && !strings.HasPrefix(o.ExtOverride, ".") {
		return fmt.Errorf("extension override %q must start with a dot", o.ExtOverride)
	}
	return nil
}

// Clone deep-copies the recipe.
func (o Options) Clone() Options {
	dup := o
	dup.ExtraArgs = append([]string(nil), o.ExtraArgs...)
	return dup
}

// transformStem applies the filename transforms to a stem in their fixed
// order: (1) append suffix, (2) regex rename, (3) extension override is
// applied by the caller to the extension, not the stem.
func (o Options) transformStem(stem string) string {
	if o.Suffix != "" {
		stem += o.Suffix
	}
	if o.RenameRegex != "" {
		re := regexp.MustCompile(o.RenameRegex)
		stem = re.ReplaceAllString(stem, o.RenameTo)
	}
	return stem
}

// transformExt applies the extension override to ext.
func (o Options) transformExt(ext string) string {
	if o.ExtOverride != "" {
		return o.ExtOverride
	}
	return ext
}
