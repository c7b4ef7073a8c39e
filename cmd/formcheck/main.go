package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/config"
	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/logging"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/server"
	"github.com/ayusman/formcheck/internal/store"
	"github.com/ayusman/formcheck/internal/tray"
)

func main() {
	fmt.Println("formcheck - exercise form checker")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	withTray := flag.Bool("tray", false, "show the system tray menu")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(cfg.LoggerParams())
	log.Debugf("running in [%s] environment", *env)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("create data directory: %s", err)
	}

	st, err := store.New(cfg.Database())
	if err != nil {
		log.Fatalf("open store: %s", err)
	}
	defer st.Close()

	rules, err := cfg.MovementConfig()
	if err != nil {
		log.Fatalf("movement rules: %s", err)
	}

	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("formcheck", "app", promRegistry)

	a, err := app.New(app.Config{
		Store:    st,
		Rules:    rules,
		Movement: cfg.Movement(),
		CameraConfig: capture.Config{
			DeviceID:     cfg.CameraID,
			ProbeDevices: cfg.ProbeDevices,
			Width:        cfg.Width,
			Height:       cfg.Height,
			FPS:          cfg.ActiveFPS,
			Mirror:       cfg.Mirror,
		},
		Pacer: capture.PacerConfig{
			IdleFPS:     cfg.IdleFPS,
			ActiveFPS:   cfg.ActiveFPS,
			IdleTimeout: 2 * time.Second,
		},
		MotionThreshold: cfg.MotionThreshold,
		DetectorConfig: detector.Config{
			ModelComplexity: cfg.ModelComplexity,
			MinConfidence:   cfg.MinDetectionConf,
			MinTrackingConf: cfg.MinTrackingConf,
			IdleTimeoutSec:  cfg.DetectorIdleSec,
		},
		PluginDir:     cfg.Plugins(),
		PluginTimeout: time.Duration(cfg.PluginTimeoutMs) * time.Millisecond,
		Metrics:       metricsManager,
	})
	if err != nil {
		log.Fatalf("create app: %s", err)
	}
	defer a.Close()

	if err := a.DiscoverPlugins(); err != nil {
		log.Warnf("discover plugins: %s", err)
	}

	if cfg.AutoStartAnalysis {
		if _, err := a.StartCamera(); err != nil {
			log.Errorf("start camera: %s", err)
		} else if _, err := a.StartAnalysis(); err != nil {
			log.Errorf("start analysis: %s", err)
		}
	}

	webDir := cfg.StaticDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		log.Infof("serving static files from: %s", webDir)
	}

	srv := server.New(server.Config{
		App:       a,
		StaticDir: webDir,
		Registry:  promRegistry,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Addr()
	log.Infof("starting server on %s", addr)

	if !*withTray {
		if err := srv.Serve(ctx, addr); err != nil {
			log.Errorf("server: %s", err)
		}
		log.Info("formcheck stopped")
		return
	}

	// systray owns the main thread; the server runs beside it.
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx, addr)
	}()

	t := tray.New(a)
	t.OnSettings(func() { openBrowser("http://" + addr) })
	t.OnQuit(stop)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()

	stop()
	if err := <-serveErr; err != nil {
		log.Errorf("server: %s", err)
	}
	log.Info("formcheck stopped")
}

// findWebDir searches for the web directory next to the working directory
// and then in the data directory. Returns an empty string if none is found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warnf("open browser: %s", err)
		return
	}
	go cmd.Wait()
}
