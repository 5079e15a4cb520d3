package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/viccstake/tilez/internal/client"
)

func main() {
	fs := flag.NewFlagSet("tilez-client", flag.ExitOnError)
	verbose := fs.CountP("verbose", "v", "Increase output verbosity")
	fs.Parse(os.Args[1:])

	addr := "127.0.0.1:7878"
	if args := fs.Args(); len(args) > 0 {
		addr = args[0]
	}

	logLevel := slog.LevelWarn
	if *verbose > 0 {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	fmt.Printf("Connecting to %s...\n", addr)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", addr)

	c := client.New(logger, conn, os.Stdin, os.Stdout)
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Session error: %v\n", err)
		os.Exit(1)
	}
}
