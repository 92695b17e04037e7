package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/brensch/heiabot/catalog"
	"github.com/brensch/heiabot/config"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
)

func main() {
	base := flag.String("base", "https://drive.switch.ch", "Nextcloud base URL")
	token := flag.String("token", "", "public share token from the /s/<token> link")
	password := flag.String("password", "", "share password, if the link is protected")
	out := flag.String("out", config.DefaultFilesJSON, "where to write the file list")
	tree := flag.String("tree", "", "optionally write the filtered tree as JSON")
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorableStderr(), &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "15:04:05.000",
	})))

	if *token == "" {
		slog.Error("-token is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := catalog.NewClient(*base, *token, *password)
	if err != nil {
		slog.Error("failed to create catalog client", "error", err)
		os.Exit(1)
	}

	slog.Info("crawling share", "base", *base)
	root, err := client.Crawl(ctx)
	if err != nil {
		slog.Error("failed to crawl share", "error", err)
		os.Exit(1)
	}

	filtered := catalog.DefaultFilter.Apply(root)
	files := catalog.Files(filtered)

	if *tree != "" {
		if err := writeFile(*tree, filtered); err != nil {
			slog.Error("failed to write tree", "path", *tree, "error", err)
			os.Exit(1)
		}
		slog.Info("wrote filtered tree", "path", *tree)
	}

	if err := writeFile(*out, files); err != nil {
		slog.Error("failed to write file list", "path", *out, "error", err)
		os.Exit(1)
	}
	slog.Info("wrote file list", "path", *out, "files", len(files), "crawled", len(catalog.Files(root)))
}

func writeFile(name string, v any) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := catalog.WriteJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
