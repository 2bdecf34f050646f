package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	configPath string
	envFile    string
	debug      bool
	addr       string
)

var rootCmd = &cobra.Command{
	Use:           "nexus-space",
	Short:         "Nexus Space portfolio server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE:  runServe,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Simulate the menu backdrop headless and write the last frame as PNG",
	RunE:  runRender,
}

var sfxCmd = &cobra.Command{
	Use:   "sfx <cue>",
	Short: "Export a synthesised sound cue as WAV",
	Args:  cobra.ExactArgs(1),
	RunE:  runSFX,
}

var hashCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for the admin password (reads stdin when no argument)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHashPassword,
}

var renderOpts struct {
	frames int
	width  float64
	height float64
	potato bool
	seed   uint64
	out    string
	audio  string
}

var sfxOut string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "nexus.yaml", "Config file (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file loaded before environment overrides")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	serveCmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")

	renderCmd.Flags().IntVar(&renderOpts.frames, "frames", 120, "Frames to simulate")
	renderCmd.Flags().Float64Var(&renderOpts.width, "width", 1280, "Viewport width")
	renderCmd.Flags().Float64Var(&renderOpts.height, "height", 720, "Viewport height")
	renderCmd.Flags().BoolVar(&renderOpts.potato, "potato", false, "Reduced-effects mode")
	renderCmd.Flags().Uint64Var(&renderOpts.seed, "seed", 1, "Random seed")
	renderCmd.Flags().StringVarP(&renderOpts.out, "out", "o", "frame.png", "PNG output path")
	renderCmd.Flags().StringVar(&renderOpts.audio, "audio", "", "Also mix the cues fired during the run into this WAV file")

	sfxCmd.Flags().StringVarP(&sfxOut, "out", "o", "", "WAV output path (default <cue>.wav)")

	rootCmd.AddCommand(serveCmd, renderCmd, sfxCmd, hashCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*Config, *zap.Logger, error) {
	cfg, err := LoadConfig(configPath, envFile)
	if err != nil {
		return nil, nil, err
	}
	if debug {
		cfg.Debug = true
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	log, err := NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// resolveClientDir prefers a client directory next to the binary and falls
// back to the configured path for development
func resolveClientDir(configured string) string {
	if filepath.IsAbs(configured) {
		return configured
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Join(filepath.Dir(exe), configured)
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}
	if _, err := os.Stat(configured); err != nil {
		return ""
	}
	return configured
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := OpenDB(cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	analytics := NewAnalytics(db, log)
	defer analytics.Stop()

	submitLimiter, err := NewLimiter(cfg.RateLimit.Store, db, "testimonial", cfg.RateLimit.Testimonial)
	if err != nil {
		return err
	}
	loginLimiter, err := NewLimiter(cfg.RateLimit.Store, db, "login", cfg.RateLimit.Login)
	if err != nil {
		return err
	}

	auth, err := NewAuth(ctx, cfg.Admin, db, loginLimiter, log)
	if err != nil {
		return err
	}

	sounds := NewSoundBank(cfg.Audio, log)
	defer sounds.Close()

	hub := NewHub(cfg.Stream, analytics, sounds, log)
	srv := &Server{
		hub:          hub,
		testimonials: NewTestimonials(db, submitLimiter, analytics, log),
		contact:      NewContact(NewResendMailer(cfg.Mail), cfg.Mail, analytics, log),
		auth:         auth,
		analytics:    analytics,
		sounds:       sounds,
		clientDir:    resolveClientDir(cfg.ClientDir),
		log:          log,
	}
	if cfg.Mail.APIKey == "" {
		log.Warn("RESEND_API_KEY not set, contact form will fail")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	srv.streamCtx = gctx
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		return RunJanitor(gctx, cfg.RateLimit.Janitor, log, submitLimiter, loginLimiter)
	})
	g.Go(func() error {
		log.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("client_dir", srv.clientDir),
			zap.String("rate_limit_store", cfg.RateLimit.Store))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func runRender(_ *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	o := renderOpts
	vp := Viewport{W: o.width, H: o.height}
	if !vp.Valid() {
		return fmt.Errorf("invalid viewport %gx%g", o.width, o.height)
	}
	if o.frames < 1 {
		return errors.New("frames must be at least 1")
	}

	var (
		cues     CueSink
		timeline *Timeline
		sounds   *SoundBank
	)
	if o.audio != "" {
		sounds = NewSoundBank(cfg.Audio, log)
		defer sounds.Close()
		if err := sounds.Init(); err != nil {
			return err
		}
		timeline = NewTimeline(sounds.rate())
		sounds.SetOutput(timeline)
		cues = sounds
	}

	renderer := NewRenderer(vp)
	loop := NewLoop(LoopConfig{
		Viewport: vp,
		Potato:   o.potato,
		Rand:     NewSeededRand(o.seed),
		Cues:     cues,
		Renderer: renderer,
		Logger:   log,
	})
	frameMs := float64(FrameDuration) / float64(time.Millisecond)
	for i := 1; i <= o.frames; i++ {
		loop.Tick(float64(i) * frameMs)
		if timeline != nil {
			timeline.Advance(FrameDuration)
		}
	}

	if err := writeFile(o.out, renderer.PNG); err != nil {
		return err
	}
	log.Info("frame written", zap.String("path", o.out), zap.Int("frames", o.frames))

	if timeline != nil {
		f, err := os.Create(o.audio)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := timeline.WriteWAV(f, time.Second); err != nil {
			return fmt.Errorf("write audio: %w", err)
		}
		log.Info("audio written", zap.String("path", o.audio), zap.Int("cues", timeline.Played()))
	}
	return nil
}

func runSFX(_ *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	cue, err := ParseCue(args[0])
	if err != nil {
		return err
	}
	sounds := NewSoundBank(cfg.Audio, log)
	defer sounds.Close()
	data, err := sounds.WAV(cue)
	if err != nil {
		return err
	}
	out := sfxOut
	if out == "" {
		out = cue.String() + ".wav"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	log.Info("cue exported", zap.Stringer("cue", cue), zap.String("path", out), zap.Int("bytes", len(data)))
	return nil
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var pw string
	if len(args) == 1 {
		pw = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		pw = strings.TrimRight(line, "\r\n")
	}
	hash, err := HashPassword(pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
