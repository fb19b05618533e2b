// paperlike - a document editor where paragraphs sit on a drawing canvas.
//
//	paperlike                      open the editor
//	paperlike -config path         use another config file
//	paperlike -write-config        write the effective config and exit
//	paperlike -export out.json     export the recovered document and exit
//	paperlike -pdf out.pdf         print the recovered document and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/elloloop/paperlike/internal/app"
	"github.com/elloloop/paperlike/internal/config"
	"github.com/elloloop/paperlike/internal/logging"
	"github.com/elloloop/paperlike/internal/platform"
	"github.com/elloloop/paperlike/internal/session"
	"github.com/elloloop/paperlike/pkg/paperdoc"
)

func main() {
	configPath := flag.String("config", config.ConfigPath(), "config file (toml, yaml or json)")
	writeConfig := flag.Bool("write-config", false, "write the effective config to -config and exit")
	exportPath := flag.String("export", "", "export the recovered document as JSON to this path and exit")
	pdfPath := flag.String("pdf", "", "print the recovered document to this PDF path and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "paperlike: %v\n", err)
		os.Exit(1)
	}
	if *writeConfig {
		if err := config.Save(cfg, *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "paperlike: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(*configPath)
		return
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "paperlike: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*cfg, logger, *exportPath, *pdfPath); err != nil {
		logger.Error("paperlike failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "paperlike: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger, exportPath, pdfPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := session.Open(ctx, session.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			logger.Warn("close session", zap.Error(err))
		}
	}()

	if exportPath != "" || pdfPath != "" {
		return exportAndExit(sess, exportPath, pdfPath)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	win := platform.WindowConfig{
		Title:       cfg.Window.Title,
		WidthPx:     cfg.Window.Width,
		HeightPx:    cfg.Window.Height,
		MinWidthPx:  640,
		MinHeightPx: 480,
	}
	host, err := app.New(ctx, sess, win, logger)
	if err == nil {
		err = host.Run()
	}
	cancel()
	return errors.Join(err, <-done)
}

func exportAndExit(sess *session.Session, exportPath, pdfPath string) error {
	write := func(path string, build func(string) (paperdoc.Artifact, error)) error {
		art, err := build(filepath.Base(path))
		if err != nil {
			return err
		}
		_, err = sess.WriteArtifact(art, filepath.Dir(path))
		return err
	}
	if exportPath != "" {
		if err := write(exportPath, sess.Export); err != nil {
			return err
		}
	}
	if pdfPath != "" {
		if err := write(pdfPath, sess.ExportPDF); err != nil {
			return err
		}
	}
	return nil
}
