package main

import (
	"context"
	"os"
	"syscall"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/cli"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/transport"
	"github.com/charmbracelet/fang"
)

const version = "0.1.0"

func main() {
	transport.Version = version
	root := cli.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
