package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chzchzchz/freedvrx/audio/pa"
	"github.com/chzchzchz/freedvrx/config"
	"github.com/chzchzchz/freedvrx/freedv"
	"github.com/chzchzchz/freedvrx/radio"
	"github.com/chzchzchz/freedvrx/radio/wav"
	"github.com/chzchzchz/freedvrx/rx"
	"github.com/chzchzchz/freedvrx/spectrum"
)

var (
	configPath string
	logLevel   string
	flagCfg    = config.New()
	flagMode   string

	toneHz      int
	toneSeconds float64
	toneAmp     float64

	waterfallBins int
)

var rootCmd = &cobra.Command{
	Use:   "freedvrx",
	Short: "Receive FreeDV digital voice from IQ streams.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		lvl, err := log.ParseLevel(logLevel)
		if err != nil {
			panic(err)
		}
		log.SetLevel(lvl)
	},
}

func addFlagInput(fs *pflag.FlagSet) {
	fs.StringVarP(&flagCfg.Input.Path, "input", "i", flagCfg.Input.Path, "IQ file, - for stdin, or sdr://, rtl://, rtltcp:// url")
	fs.StringVarP(&flagCfg.Input.Format, "format", "F", flagCfg.Input.Format, "Raw IQ format (u8, s16)")
	fs.IntVarP(&flagCfg.Input.SampleRate, "sample-rate", "s", flagCfg.Input.SampleRate, "Input sample rate in Hz")
	fs.Uint64VarP(&flagCfg.Input.CenterHz, "center-hz", "c", 0, "Input center frequency in Hz")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")

	demodCmd := &cobra.Command{
		Use:   "demod",
		Short: "Demodulate a FreeDV channel to audio",
		Run:   func(cmd *cobra.Command, args []string) { demod(cmd) },
	}
	fs := demodCmd.Flags()
	fs.StringVarP(&configPath, "config", "f", "", "YAML config file; flags override it")
	addFlagInput(fs)
	fs.Uint32Var(&flagCfg.Input.PPM, "ppm", 0, "RTL frequency correction in ppm")
	fs.Uint32Var(&flagCfg.Input.GainTenthsDB, "gain", 0, "RTL tuner gain in tenths of a dB, 0 for AGC")
	fs.Uint64VarP(&flagCfg.ChannelHz, "channel-hz", "C", 0, "Channel frequency in Hz")
	fs.Int64VarP(&flagCfg.Demod.InputFrequencyOffset, "offset-hz", "O", 0, "Channel offset from center in Hz")
	fs.StringVarP(&flagMode, "mode", "m", flagCfg.Demod.Mode.String(), "FreeDV mode")
	fs.Float64Var(&flagCfg.Demod.Volume, "volume", flagCfg.Demod.Volume, "Audio volume")
	fs.BoolVar(&flagCfg.Demod.AGC, "agc", false, "Enable AGC and squelch")
	fs.BoolVar(&flagCfg.Demod.DSB, "dsb", false, "Keep both sidebands in the channel filter")
	fs.Float64Var(&flagCfg.Demod.AGCPowerThreshold, "squelch-db", flagCfg.Demod.AGCPowerThreshold, "AGC power threshold in dB")
	fs.StringVarP(&flagCfg.Demod.AudioDevice, "device", "d", flagCfg.Demod.AudioDevice, "Audio output device")
	fs.StringVar(&flagCfg.Output.Kind, "output", flagCfg.Output.Kind, "Audio output (pa, oto, wav)")
	fs.StringVarP(&flagCfg.Output.Path, "output-path", "o", "", "WAV output path")
	fs.StringVar(&flagCfg.Recordings.Dir, "recordings", "", "Directory for recordings and waterfalls")
	fs.StringVar(&flagCfg.StatusAddr, "status-addr", "", "Serve status on this address")
	fs.DurationVar(&flagCfg.ReportInterval, "report-interval", flagCfg.ReportInterval, "Report interval")
	rootCmd.AddCommand(demodCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "devices",
		Short: "List audio output devices",
		Run:   func(cmd *cobra.Command, args []string) { devices() },
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "modes",
		Short: "List FreeDV modes",
		Run:   func(cmd *cobra.Command, args []string) { modes(cmd.OutOrStdout()) },
	})

	toneCmd := &cobra.Command{
		Use:   "tone [flags] output.iq",
		Short: "Write a test tone IQ file",
		Args:  cobra.ExactArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { tone(args[0]) },
	}
	toneCmd.Flags().IntVarP(&toneHz, "tone-hz", "t", 1500, "Tone offset from center in Hz")
	toneCmd.Flags().Float64VarP(&toneSeconds, "seconds", "n", 1, "Duration in seconds")
	toneCmd.Flags().Float64VarP(&toneAmp, "amplitude", "a", 0.5, "Amplitude relative to full scale")
	addFlagInput(toneCmd.Flags())
	rootCmd.AddCommand(toneCmd)

	waterfallCmd := &cobra.Command{
		Use:   "waterfall [flags] output.jpg",
		Short: "Write a waterfall jpg of the input",
		Args:  cobra.ExactArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { waterfall(args[0]) },
	}
	waterfallCmd.Flags().IntVarP(&waterfallBins, "bins", "b", 1024, "FFT bins")
	addFlagInput(waterfallCmd.Flags())
	rootCmd.AddCommand(waterfallCmd)
}

// loadConfig reads the config file, then applies the flags that were set.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.New()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			panic(err)
		}
		if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
			lvl, err := log.ParseLevel(cfg.LogLevel)
			if err != nil {
				panic(err)
			}
			log.SetLevel(lvl)
		}
	}
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("input", func() { cfg.Input.Path = flagCfg.Input.Path })
	set("format", func() { cfg.Input.Format = flagCfg.Input.Format })
	set("sample-rate", func() { cfg.Input.SampleRate = flagCfg.Input.SampleRate })
	set("center-hz", func() { cfg.Input.CenterHz = flagCfg.Input.CenterHz })
	set("ppm", func() { cfg.Input.PPM = flagCfg.Input.PPM })
	set("gain", func() { cfg.Input.GainTenthsDB = flagCfg.Input.GainTenthsDB })
	set("channel-hz", func() { cfg.ChannelHz = flagCfg.ChannelHz })
	set("offset-hz", func() { cfg.Demod.InputFrequencyOffset = flagCfg.Demod.InputFrequencyOffset })
	set("volume", func() { cfg.Demod.Volume = flagCfg.Demod.Volume })
	set("agc", func() { cfg.Demod.AGC = flagCfg.Demod.AGC })
	set("dsb", func() { cfg.Demod.DSB = flagCfg.Demod.DSB })
	set("squelch-db", func() { cfg.Demod.AGCPowerThreshold = flagCfg.Demod.AGCPowerThreshold })
	set("device", func() { cfg.Demod.AudioDevice = flagCfg.Demod.AudioDevice })
	set("output", func() { cfg.Output.Kind = flagCfg.Output.Kind })
	set("output-path", func() { cfg.Output.Path = flagCfg.Output.Path })
	set("recordings", func() { cfg.Recordings.Dir = flagCfg.Recordings.Dir })
	set("status-addr", func() { cfg.StatusAddr = flagCfg.StatusAddr })
	set("report-interval", func() { cfg.ReportInterval = flagCfg.ReportInterval })
	set("mode", func() {
		m, err := freedv.ParseMode(flagMode)
		if err != nil {
			panic(err)
		}
		cfg.Demod.Mode = m
	})
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func demod(cmd *cobra.Command) {
	cfg := loadConfig(cmd)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	r, err := rx.New(ctx, cfg, rx.Options{})
	if err != nil {
		panic(err)
	}
	defer r.Close()
	if err := r.Run(ctx); err != nil {
		log.Error("receiver", "err", err)
	}
}

func devices() {
	devs, err := pa.Devices()
	if err != nil {
		panic(err)
	}
	for _, d := range devs {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Printf("%s %-40s %dHz\n", mark, d.Name, d.SampleRate)
	}
}

func modes(w io.Writer) {
	fmt.Fprintf(w, "%-6s %8s %8s %10s\n", "mode", "low", "high", "modem rate")
	for _, m := range freedv.Modes() {
		fmt.Fprintf(w, "%-6s %8.0f %8.0f %10d\n", m, m.LowCutoff(), m.HighCutoff(), m.ModemSampleRate())
	}
}

func openOutput(outf string) (io.Writer, func()) {
	if outf == "-" {
		return os.Stdout, func() {}
	}
	fout, err := os.OpenFile(outf, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		panic(err)
	}
	return fout, func() { fout.Close() }
}

func tone(outf string) {
	format, err := radio.ParseFormat(flagCfg.Input.Format)
	if err != nil {
		panic(err)
	}
	rate := flagCfg.Input.SampleRate
	w, closer := openOutput(outf)
	defer closer()
	if strings.HasSuffix(outf, ".wav") {
		ww, err := wav.NewWriter(w, rate, 8*format.SampleBytes()/2, 2)
		if err != nil {
			panic(err)
		}
		defer ww.Close()
		w = ww
	}
	iqw := radio.NewIQWriterFormat(w, format)
	total := int(toneSeconds * float64(rate))
	buf := make([]complex64, 0, 4096)
	dph := 2 * math.Pi * float64(toneHz) / float64(rate)
	for i := 0; i < total; i++ {
		ph := dph * float64(i)
		buf = append(buf, complex(float32(toneAmp*math.Cos(ph)), float32(toneAmp*math.Sin(ph))))
		if len(buf) == cap(buf) || i == total-1 {
			if err := iqw.Write64(buf); err != nil {
				panic(err)
			}
			buf = buf[:0]
		}
	}
	log.Info("wrote tone", "path", outf, "hz", toneHz, "samples", total, "format", format)
}

func waterfall(outf string) {
	iqr, closer, err := rx.OpenIQR(context.Background(), flagCfg.Input, log.Default())
	if err != nil {
		panic(err)
	}
	defer closer()
	scope := spectrum.NewScope(spectrum.Config{Bins: waterfallBins, Average: 1, Lines: 4096})
	for samps := range iqr.Batch64(waterfallBins, 0) {
		scope.Feed(samps)
	}
	w, wcloser := openOutput(outf)
	defer wcloser()
	if err := scope.WriteJPEG(w); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
