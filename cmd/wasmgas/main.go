package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/indexvm/wasmgas"
	"github.com/indexvm/wasmgas/config"
	"github.com/indexvm/wasmgas/internal/runtime/gas"
	"github.com/indexvm/wasmgas/types"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "JSON config file, overridden by WASMGAS_* environment variables",
	}
	handlerFlag = &cli.StringFlag{
		Name:  "handler",
		Usage: "exported handler function to invoke",
		Value: "handle",
	}
	verboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "log handler output at debug level",
	}
)

func main() {
	app := &cli.App{
		Name:  "wasmgas",
		Usage: "run wasm indexing handlers under deterministic gas metering",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "store a module and invoke one of its handlers against an empty store",
				ArgsUsage: "<module.wasm>",
				Flags:     []cli.Flag{configFlag, handlerFlag, verboseFlag},
				Action:    run,
			},
			{
				Name:   "costs",
				Usage:  "print the cost table of every host export",
				Action: printCosts,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}

func run(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one module path")
	}
	logger := newLogger(ctx.Bool(verboseFlag.Name))

	vmConfig, err := config.Load(ctx.String(configFlag.Name), wasmgas.DefaultVMConfig())
	if err != nil {
		return err
	}
	code, err := os.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}

	vm, err := wasmgas.NewVM(vmConfig, logger, nil)
	if err != nil {
		return err
	}
	defer vm.Cleanup()

	checksum, static, err := vm.StoreCode(code)
	if err != nil {
		return err
	}
	logger.Info().Stringer("checksum", checksum).Stringer("static_memory_gas", static).Msg("Stored module")

	st := wasmgas.NewStore()
	res, err := vm.Invoke(context.Background(), checksum, ctx.String(handlerFlag.Name), st)
	var det *wasmgas.DeterministicHostError
	switch {
	case errors.As(err, &det):
		logger.Warn().Err(err).Msg("Handler failed deterministically")
	case err != nil:
		return err
	default:
		logger.Info().Int("changes", res.Changes).Int("entities", st.Len()).Msg("Handler succeeded")
	}
	return printJSON(res.Gas)
}

func printCosts(*cli.Context) error {
	table := gas.DefaultCostTable()
	costs := make(map[string]gas.GasOp, len(table.Names()))
	for _, name := range table.Names() {
		costs[name] = table.MustLookup(name)
	}
	return printJSON(struct {
		Config types.GasConfig      `json:"config"`
		Costs  map[string]gas.GasOp `json:"costs"`
	}{Config: gas.DefaultGasConfig(), Costs: costs})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
