// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// pbxctl drives LED strips and matrices through a Pixelblaze Output
// Expander.
//
// Usage:
//
//	pbxctl [flags] ports
//	pbxctl [flags] off
//	pbxctl [flags] test
//	pbxctl [flags] image <files...>
//	pbxctl [flags] text <message>
//
// Use --port console to render in the terminal instead of a serial port.
// Every flag can also be set with a PBX_ environment variable, e.g.
// PBX_LOG_LEVEL=debug, or in the file named by --config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pbxctl: %s.\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, rest, err := loadConfig(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return errors.New("missing command; one of ports, off, test, image, text")
	}
	log, err := newLogger(stderr, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer log.Sync()

	cmd, args := rest[0], rest[1:]
	if cmd == "ports" {
		return listPorts(stdout)
	}
	a, err := openApp(cfg, log, stdout, cmd == "image" || cmd == "text")
	if err != nil {
		return err
	}
	log.Debug("starting", zap.String("command", cmd), zap.String("port", cfg.Port))
	switch cmd {
	case "off":
		err = a.off()
	case "test":
		err = a.test(ctx)
	case "image":
		err = a.images(ctx, args)
	case "text":
		err = a.text(ctx, args)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if errors.Is(err, context.Canceled) {
		log.Info("interrupted")
		return nil
	}
	return err
}
