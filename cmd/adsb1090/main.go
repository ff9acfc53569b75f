package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ktauchathuranga/adsb/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "adsb1090",
		Short: "Mode S / ADS-B decoder for 1090 MHz",
		Long: `Mode S / ADS-B decoder for 1090 MHz.

Consumes interleaved unsigned 8-bit I/Q samples at 2 Msps from an RTL-SDR
dongle or a recorded capture, demodulates Mode S frames, validates and
repairs checksums, and maintains a live deduplicated picture of aircraft
state: positions from paired CPR reports, altitude, velocity,
identification and selected Comm-B registers.

Example usage:
  adsb1090 --ifile capture.bin --lat 52.3 --lon 4.9
  adsb1090 --device 0 --gain 40 --correction two_bit --raw`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.ShowVersion {
				app.ShowVersion()
				return nil
			}

			if configFile != "" {
				if err := loadConfigFile(cmd.Flags(), &cfg, configFile); err != nil {
					return err
				}
			}

			application, err := app.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return application.Run(ctx)
		},
	}

	flags := rootCmd.Flags()
	flags.IntVarP(&cfg.DeviceIndex, "device", "d", cfg.DeviceIndex, "RTL-SDR device index")
	flags.Uint32VarP(&cfg.Frequency, "frequency", "f", cfg.Frequency, "Frequency to tune to (Hz)")
	flags.Uint32VarP(&cfg.SampleRate, "sample-rate", "s", cfg.SampleRate, "Sample rate (Hz)")
	flags.IntVarP(&cfg.Gain, "gain", "g", cfg.Gain, "Tuner gain in dB (0 for auto)")
	flags.BoolVar(&cfg.EnableAGC, "agc", cfg.EnableAGC, "Enable digital AGC")
	flags.StringVarP(&cfg.InputFile, "ifile", "i", cfg.InputFile, "Read samples from file ('-' for stdin)")
	flags.BoolVar(&cfg.LoopFile, "loop", cfg.LoopFile, "With --ifile, replay the file indefinitely")
	flags.StringVar(&cfg.Correction, "correction", cfg.Correction, "CRC bit repair: none, one_bit or two_bit")
	flags.BoolVar(&cfg.CRCCheck, "crc-check", cfg.CRCCheck, "Drop frames failing the checksum")
	flags.Uint64Var(&cfg.MinMessages, "min-messages", cfg.MinMessages, "Messages required before an aircraft is shown")
	flags.IntVar(&cfg.TTLSeconds, "ttl", cfg.TTLSeconds, "Seconds of silence before an aircraft is evicted")
	flags.Float64Var(&cfg.ReferenceLat, "lat", cfg.ReferenceLat, "Receiver latitude (decimal degrees)")
	flags.Float64Var(&cfg.ReferenceLon, "lon", cfg.ReferenceLon, "Receiver longitude (decimal degrees)")
	flags.StringVar(&cfg.Units, "units", cfg.Units, "Presentation units: metric or imperial")
	flags.BoolVar(&cfg.Raw, "raw", cfg.Raw, "Print accepted frames as raw hex")
	flags.BoolVar(&cfg.OnlyAddr, "onlyaddr", cfg.OnlyAddr, "Print only ICAO addresses")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Rotating log file path")
	flags.StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	flags.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfigFile overlays the YAML file under the flags: file settings
// replace defaults, flags given on the command line win over the file.
func loadConfigFile(flags *pflag.FlagSet, cfg *app.Config, path string) error {
	flagCfg := *cfg

	*cfg = app.DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		return err
	}

	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "device":
			cfg.DeviceIndex = flagCfg.DeviceIndex
		case "frequency":
			cfg.Frequency = flagCfg.Frequency
		case "sample-rate":
			cfg.SampleRate = flagCfg.SampleRate
		case "gain":
			cfg.Gain = flagCfg.Gain
		case "agc":
			cfg.EnableAGC = flagCfg.EnableAGC
		case "ifile":
			cfg.InputFile = flagCfg.InputFile
		case "loop":
			cfg.LoopFile = flagCfg.LoopFile
		case "correction":
			cfg.Correction = flagCfg.Correction
		case "crc-check":
			cfg.CRCCheck = flagCfg.CRCCheck
		case "min-messages":
			cfg.MinMessages = flagCfg.MinMessages
		case "ttl":
			cfg.TTLSeconds = flagCfg.TTLSeconds
		case "lat":
			cfg.ReferenceLat = flagCfg.ReferenceLat
		case "lon":
			cfg.ReferenceLon = flagCfg.ReferenceLon
		case "units":
			cfg.Units = flagCfg.Units
		case "raw":
			cfg.Raw = flagCfg.Raw
		case "onlyaddr":
			cfg.OnlyAddr = flagCfg.OnlyAddr
		case "verbose":
			cfg.Verbose = flagCfg.Verbose
		case "log-file":
			cfg.LogFile = flagCfg.LogFile
		}
	})

	return nil
}
