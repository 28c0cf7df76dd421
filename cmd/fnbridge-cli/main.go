package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goforj/godump"
	"github.com/urfave/cli/v3"

	"github.com/3s-rg-codes/fnbridge/pkg/registry"
)

var addressFlag = &cli.StringFlag{
	Name:    "address",
	Usage:   "base URL of the bridge",
	Value:   "http://localhost:8000",
	Aliases: []string{"a"},
}

var dataFlag = &cli.StringFlag{
	Name:    "data",
	Usage:   "data to be passed to the function",
	Value:   "",
	Aliases: []string{"d"},
}

var timeoutFlag = &cli.DurationFlag{
	Name:    "timeout",
	Usage:   "example: 30s, 1m, 1h",
	Aliases: []string{"t"},
	Value:   30 * time.Second,
}

func main() {
	cmd := &cli.Command{
		Name:  "fnbridge-cli",
		Usage: "talk to a running bridge",
		Flags: []cli.Flag{addressFlag, timeoutFlag},
		Commands: []*cli.Command{
			{
				Name:  "call",
				Usage: "invoke the function",
				Flags: []cli.Flag{
					dataFlag,
					&cli.StringFlag{Name: "path", Value: "/fn", Usage: "invocation path"},
					&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: "request header as key=value"},
					&cli.BoolFlag{Name: "dump", Usage: "dump the full response instead of the body"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					headers, err := parseHeaders(cmd.StringSlice("header"))
					if err != nil {
						return err
					}
					client := NewClient(cmd.String("address"), cmd.Duration("timeout"))
					result, err := client.Call(ctx, cmd.String("path"), []byte(cmd.String("data")), headers)
					if err != nil {
						return err
					}
					if cmd.Bool("dump") {
						godump.Dump(result)
						return nil
					}
					fmt.Print(result.Body)
					if result.Envelope != nil {
						fmt.Println()
					}
					return nil
				},
			},
			{
				Name:  "health",
				Usage: "check the bridge's health route",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client := NewClient(cmd.String("address"), cmd.Duration("timeout"))
					body, err := client.Health(ctx)
					if err != nil {
						return err
					}
					fmt.Println(body)
					return nil
				},
			},
			{
				Name:  "instances",
				Usage: "list bridge instances registered in etcd",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "etcd-endpoint", Value: []string{"localhost:2379"}},
					&cli.StringFlag{Name: "prefix", Value: "fnbridge/instances"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
					reg, err := registry.NewEtcdRegistry(cmd.StringSlice("etcd-endpoint"), registry.Options{
						Prefix:      cmd.String("prefix"),
						DialTimeout: cmd.Duration("timeout"),
					}, logger)
					if err != nil {
						return err
					}
					defer reg.Close()

					instances, err := reg.List(ctx)
					if err != nil {
						return err
					}
					for _, in := range instances {
						fmt.Printf("%s\t%s\t%s\t%s\t%s\n", in.ID, in.Function, in.Address, in.Convention, in.Encoding)
					}
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
