package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"pipelined.dev/synth"
	"pipelined.dev/synth/command"
	"pipelined.dev/synth/console"
	"pipelined.dev/synth/internal/rt"
	"pipelined.dev/synth/log"
	"pipelined.dev/synth/metric"
	"pipelined.dev/synth/midi"
	"pipelined.dev/synth/oscillator"
	"pipelined.dev/synth/oto"
	"pipelined.dev/synth/portaudio"
	"pipelined.dev/synth/transport"
)

// stream is a device stream that must be released.
type stream interface {
	synth.Stream
	Close() error
}

type playCommand struct {
	engineFlags
	driver string
	midi   bool
	listen string
	vars   string
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play in real time, controlled by console, midi and websocket"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	cmd.engineFlags.register(fs)
	fs.StringVar(&cmd.driver, "driver", "portaudio", "audio driver: portaudio or oto")
	fs.BoolVar(&cmd.midi, "midi", false, "read notes from default midi input")
	fs.StringVar(&cmd.listen, "listen", "", "websocket listen address, e.g. "+transport.DefaultAddr)
	fs.StringVar(&cmd.vars, "vars", "", "address to serve metrics at /debug/vars")
}

func (cmd *playCommand) Run() error {
	config, kind, err := cmd.config()
	if err != nil {
		return err
	}
	logger := log.GetLogger()
	device, err := openStream(cmd.driver, config, log.Component(logger, cmd.driver))
	if err != nil {
		return err
	}
	osc, err := oscillator.New(config,
		oscillator.WithWaveform(kind),
		oscillator.WithLogger(log.Component(logger, "oscillator")),
	)
	if err != nil {
		return errors.Join(err, device.Close())
	}

	ch := command.NewChannel(config.QueueCapacity)
	sender := ch.Sender()
	p, err := synth.NewProcessor(config, device, osc, ch,
		synth.WithLogger(log.Component(logger, "processor")),
		synth.WithMeter(metric.New(device, int(config.SampleRate))),
		synth.WithPromotion(func() error {
			return rt.Promote(rt.DefaultPriority)
		}),
	)
	if err != nil {
		sender.Close()
		return errors.Join(err, device.Close())
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(ctx)
	})

	if cmd.midi {
		reader, err := midi.Open(log.Component(logger, "midi"))
		if err != nil {
			logger.Warn(fmt.Sprintf("midi input disabled: %v", err))
		} else {
			midiSender := sender.Clone()
			g.Go(func() error {
				defer midiSender.Close()
				return errors.Join(reader.Run(ctx, midiSender), reader.Close())
			})
		}
	}
	if cmd.listen != "" {
		wsSender := sender.Clone()
		server := transport.NewServer(wsSender, log.Component(logger, "transport"))
		g.Go(func() error {
			defer wsSender.Close()
			return server.ListenAndServe(ctx, cmd.listen)
		})
	}
	if cmd.vars != "" {
		g.Go(func() error {
			return serveVars(ctx, cmd.vars)
		})
	}

	// console blocks on stdin, it's not waited for.
	go func(s *command.Sender) {
		defer s.Close()
		if err := console.New(os.Stdin, os.Stdout, log.Component(logger, "console")).Run(ctx, s); err != nil {
			logger.Warn(fmt.Sprintf("console input stopped: %v", err))
		}
	}(sender.Clone())
	sender.Close()

	err = g.Wait()
	logger.Debug(fmt.Sprintf("metrics: %v", metric.Get(device)))
	return errors.Join(err, device.Close())
}

func openStream(driver string, config synth.Config, l log.Logger) (stream, error) {
	switch driver {
	case "portaudio":
		s, err := portaudio.Open(config, l)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "oto":
		s, err := oto.Open(config, l)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown driver %q", driver)
}

func serveVars(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
