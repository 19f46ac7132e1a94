package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"pipelined.dev/synth/portaudio"
)

type devicesCommand struct{}

func (cmd *devicesCommand) Name() string {
	return "devices"
}

func (cmd *devicesCommand) Help() string {
	return "Show the list of available audio devices"
}

func (cmd *devicesCommand) Register(*flag.FlagSet) {}

func (cmd *devicesCommand) Run() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tHOST\tDEVICE\tIN\tOUT\tRATE")
	for _, d := range devices {
		mark := ""
		if d.Default {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%v\n", mark, d.HostAPI, d.Name, d.Inputs, d.Outputs, d.SampleRate)
	}
	return w.Flush()
}
