package main

import (
	"flag"
	"fmt"
	"os"

	"pipelined.dev/synth"
	"pipelined.dev/synth/wavetable"
)

type config struct {
	args []string
}

type command interface {
	Name() string
	Help() string
	Run() error
	Register(*flag.FlagSet)
}

func (config *config) run() int {
	cmdName, args := parseArgs(config.args)
	if cmdName == "" {
		printUsage()
		return errorExitCode
	}

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}
		flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		cmd.Register(flags)
		if err := flags.Parse(args); err != nil {
			return errorExitCode
		}
		if err := cmd.Run(); err != nil {
			fmt.Printf("Command failed: %v\n", err)
			return errorExitCode
		}
		return successExitCode
	}

	fmt.Printf("Unknown command: %s\n\n", cmdName)
	printUsage()
	return errorExitCode
}

var (
	successExitCode = 0
	errorExitCode   = 1
	commands        = []command{
		&playCommand{},
		&renderCommand{},
		&devicesCommand{},
	}
)

func main() {
	c := config{
		args: os.Args,
	}
	os.Exit(c.run())
}

func parseArgs(args []string) (string, []string) {
	if len(args) < 2 {
		return "", nil
	}
	return args[1], args[2:]
}

func printUsage() {
	fmt.Println("Synth is a real-time wavetable synthesizer")
	fmt.Println()
	fmt.Println("Usage: synth <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, cmd := range commands {
		fmt.Printf("\t%s\t%s\n", cmd.Name(), cmd.Help())
	}
}

// engineFlags are shared by commands that run the processor.
type engineFlags struct {
	rate   float64
	frames int
	table  int
	queue  int
	wave   string
}

func (f *engineFlags) register(fs *flag.FlagSet) {
	d := synth.DefaultConfig()
	fs.Float64Var(&f.rate, "rate", float64(d.SampleRate), "sample rate in Hz")
	fs.IntVar(&f.frames, "frames", d.FramesPerBuffer, "frames per buffer")
	fs.IntVar(&f.table, "table", d.TableSize, "wavetable size")
	fs.IntVar(&f.queue, "queue", d.QueueCapacity, "command queue capacity")
	fs.StringVar(&f.wave, "wave", wavetable.Sine.String(), "initial waveform: sine, square, sawtooth or triangle")
}

func (f *engineFlags) config() (synth.Config, wavetable.Kind, error) {
	c := synth.Config{
		SampleRate:      float32(f.rate),
		FramesPerBuffer: f.frames,
		TableSize:       f.table,
		QueueCapacity:   f.queue,
	}
	if err := c.Validate(); err != nil {
		return c, 0, err
	}
	kind, err := wavetable.ParseKind(f.wave)
	return c, kind, err
}
