// Package cli wires configuration, logging and telemetry to the editing
// screen and the headless commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/mememe/internal/canvas"
	"github.com/idilsaglam/mememe/internal/config"
	"github.com/idilsaglam/mememe/internal/meme"
	"github.com/idilsaglam/mememe/internal/picker"
	"github.com/idilsaglam/mememe/internal/session"
	"github.com/idilsaglam/mememe/internal/share"
	"github.com/idilsaglam/mememe/internal/telemetry"
	"github.com/idilsaglam/mememe/internal/ui"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// usageError marks bad invocations (exit 2) as opposed to failures (exit 1).
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// Options are the root flags shared by every command.
type Options struct {
	ConfigPath string
	Theme      string
	LogLevel   string
	Version    string

	stdout, stderr io.Writer
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, version string) int {
	o := &Options{Version: version, stdout: stdout, stderr: stderr}
	root := NewRootCmd(o)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	p := ui.NewPrinter(stdout, stderr, ui.ThemeByName(o.Theme))
	p.Fail(err.Error())
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(stderr, "Run 'mememe --help' for usage.")
		return ExitUsage
	}
	return ExitError
}

func NewRootCmd(o *Options) *cobra.Command {
	root := &cobra.Command{
		Use:   "mememe",
		Short: "Caption a photo, meme style, and share it",
		Long: `MemeMe puts a top and a bottom caption on a photo in the classic
white-on-black outlined style and saves the result.

Without a subcommand it opens the editor in the terminal.`,
		Example: `  # Open the editor
  mememe

  # Caption a photo without the editor
  mememe render cat.jpg --top "one does not simply" --bottom "write a meme app"

  # List caption styles
  mememe styles`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runEditor(cmd.Context())
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&o.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/mememe/config.toml)")
	pf.StringVar(&o.Theme, "theme", "", "color theme: classic, neon or mono")
	pf.StringVar(&o.LogLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(renderCmd(o), stylesCmd(o))
	return root
}

// env is what every command runs with once configuration is loaded.
type env struct {
	cfg     config.Config
	log     *slog.Logger
	printer *ui.Printer
	closers []func()
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// setup loads configuration, applies the root flags over it and starts
// logging and, when enabled, telemetry.
func (o *Options) setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Theme != "" {
		cfg.UI.Theme = o.Theme
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageError{err}
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, usageError{err}
	}

	e := &env{cfg: cfg, printer: ui.NewPrinter(o.stdout, o.stderr, ui.ThemeByName(cfg.UI.Theme))}
	logger, closeLog, err := telemetry.InitLogger(cfg.Log.File, level)
	if err != nil {
		return nil, err
	}
	e.log = logger
	e.closers = append(e.closers, func() { _ = closeLog() })

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.Telemetry.Dir, o.Version)
		if err != nil {
			e.close()
			return nil, err
		}
		e.closers = append(e.closers, shutdown)
	}
	e.log.Debug("configuration loaded", "path", o.ConfigPath, "theme", cfg.UI.Theme, "export_dir", cfg.Share.Dir)
	return e, nil
}

func (e *env) font() (*canvas.Font, error) {
	if e.cfg.Style.Font == "" {
		return canvas.DefaultFont()
	}
	return canvas.LoadFontFromFile(e.cfg.Style.Font)
}

func (e *env) camera() *picker.CameraCapture {
	if strings.TrimSpace(e.cfg.Picker.CameraCommand) == "" {
		return nil
	}
	return &picker.CameraCapture{Command: e.cfg.Picker.CameraCommand, Logger: e.log}
}

// persist is the completed-meme hook: sidecar on disk plus a log record.
func persist(exp *share.Exporter, log *slog.Logger) func(meme.Meme) {
	return func(m meme.Meme) {
		if err := exp.Persist(m); err != nil {
			log.Warn("sidecar not written", "error", err)
		}
		log.Info("meme completed",
			"top", m.TopText(),
			"bottom", m.BottomText(),
			"size", m.Rendered().Bounds().Size().String(),
			"created_at", m.CreatedAt(),
		)
	}
}

func (o *Options) runEditor(ctx context.Context) error {
	e, err := o.setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	style, err := e.cfg.CanvasStyle()
	if err != nil {
		return usageError{err}
	}
	fit, err := canvas.ParseFit(e.cfg.Style.Fit)
	if err != nil {
		return usageError{err}
	}
	font, err := e.font()
	if err != nil {
		return err
	}
	exp, err := e.cfg.Exporter()
	if err != nil {
		return usageError{err}
	}
	exp.Logger = e.log

	e.log.Info("editor starting", "version", o.Version)
	return ui.Run(ctx, ui.Config{
		Theme:     ui.ThemeByName(e.cfg.UI.Theme),
		Style:     style,
		Font:      font,
		Fit:       fit,
		PickerDir: e.cfg.Picker.Dir,
		Camera:    e.camera(),
		Exporter:  exp,
		Top:       e.cfg.Captions.Top,
		Bottom:    e.cfg.Captions.Bottom,
		Logger:    e.log,
		OnMeme:    persist(exp, e.log),
	})
}

type renderFlags struct {
	top, bottom string
	out         string
	style       string
	fit         string
}

func renderCmd(o *Options) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render IMAGE",
		Short: "Caption IMAGE and save the meme without opening the editor",
		Long: `Render runs the same pick, caption and share steps as the editor:
IMAGE is the picked photo, --top and --bottom are typed into the captions
(upper-cased, empty falls back to the placeholder) and the result is saved
to the export directory, or to --out. Existing files are never overwritten.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runRender(cmd.Context(), args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.top, "top", "", "top caption")
	fl.StringVar(&f.bottom, "bottom", "", "bottom caption")
	fl.StringVarP(&f.out, "out", "o", "", "output file; the extension picks png or jpeg")
	fl.StringVar(&f.style, "style", "", "caption style (see 'mememe styles')")
	fl.StringVar(&f.fit, "fit", "", "background scaling: fill or fit")
	return cmd
}

func (o *Options) runRender(ctx context.Context, path string, f renderFlags) error {
	e, err := o.setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if f.style != "" {
		e.cfg.Style.Variant = f.style
	}
	if f.fit != "" {
		e.cfg.Style.Fit = f.fit
	}
	name := ""
	if f.out != "" {
		e.cfg.Share.Dir = filepath.Dir(f.out)
		name = filepath.Base(f.out)
		switch strings.ToLower(filepath.Ext(f.out)) {
		case ".jpg", ".jpeg":
			e.cfg.Share.Format = string(share.JPEG)
		case ".png":
			e.cfg.Share.Format = string(share.PNG)
		}
	}
	if err := e.cfg.Validate(); err != nil {
		return usageError{err}
	}
	if !picker.Supported(path) {
		return usageError{fmt.Errorf("render: %s: %w", path, meme.ErrUnsupportedSource)}
	}

	style, _ := e.cfg.CanvasStyle()
	fit, _ := canvas.ParseFit(e.cfg.Style.Fit)
	font, err := e.font()
	if err != nil {
		return err
	}
	cv, err := canvas.New(canvas.WithStyle(style), canvas.WithFit(fit), canvas.WithFont(font))
	if err != nil {
		return err
	}
	exp, err := e.cfg.Exporter()
	if err != nil {
		return usageError{err}
	}
	exp.Logger = e.log

	ctrl := session.New(
		picker.File{Path: path, Camera: e.camera()},
		share.Direct{Exporter: exp, Name: name},
		cv,
		session.WithLogger(e.log),
		session.WithPlaceholders(e.cfg.Captions.Top, e.cfg.Captions.Bottom),
		session.OnMeme(persist(exp, e.log)),
	)

	if err := ctrl.PickImage(ctx, picker.Library); err != nil {
		return err
	}
	typeCaption(ctrl, meme.Top, f.top)
	typeCaption(ctrl, meme.Bottom, f.bottom)

	m, err := ctrl.Share(ctx)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("render: %w", meme.ErrCancelled)
	}
	saved, _ := exp.Take(m.Rendered())

	p := e.printer
	lines := []string{
		p.Title("MemeMe"),
		p.Field("photo", path),
		p.Field("top", m.TopText()),
		p.Field("bottom", m.BottomText()),
		p.Field("size", m.Rendered().Bounds().Size().String()),
		p.Field("style", style.Name+", "+fit.String()),
	}
	sc, err := share.LoadSidecar(saved)
	if err != nil {
		e.log.Warn("sidecar unreadable", "path", saved, "error", err)
	} else if sc != nil {
		lines = append(lines, p.Field("record", sc.ID))
	}
	p.Panel(lines)
	p.OK("saved " + saved)
	return nil
}

// typeCaption enters text into a caption the way the editor does: focus,
// replace everything, confirm.
func typeCaption(ctrl *session.Controller, which meme.Which, text string) {
	ctrl.BeginEdit(which)
	ctrl.ApplyInput(meme.Range{Start: 0, End: math.MaxInt}, text)
	ctrl.Submit()
}

func stylesCmd(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List caption styles",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := ui.NewPrinter(o.stdout, o.stderr, ui.ThemeByName(o.Theme))
			lines := []string{p.Title("Caption styles")}
			for _, name := range canvas.StyleNames() {
				s, _ := canvas.StyleByName(name)
				lines = append(lines, p.Field(name, describe(s)))
			}
			p.Panel(lines)
			return nil
		},
	}
}

func describe(s canvas.Style) string {
	fill, stroke := "white", "black"
	if s.Fill == canvas.Black {
		fill, stroke = "black", "white"
	}
	return fmt.Sprintf("%s fill, %s outline %.0fpt, %.0fpt text", fill, stroke, s.StrokeWidth, s.FontSize)
}
