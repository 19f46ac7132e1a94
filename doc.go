/*
Package synth is a real-time software synthesizer core.

Concept

Control events arrive asynchronously from any number of producers: a
MIDI device, a console, a network connection. They are converted into
commands and queued to the audio thread. The audio thread runs a
Processor which, every cycle:

    drains queued commands into the synthesis Module;
    reads the input buffer from the duplex Stream;
    lets the Module fill the output buffer and writes it back.

The audio thread never blocks on anything but the stream itself. The
command queue is the only structure shared between threads, the module
state is owned by the audio thread alone.

Components

    wavetable - single-period lookup tables for sine, square, sawtooth
                and triangle waveforms;
    command   - commands, bounded multi-producer queue, text, MIDI and
                JSON decoding;
    oscillator - wavetable oscillator implementing Module;
    portaudio, oto - Stream implementations for a duplex device and
                an output-only device;
    wav, mp3  - offline Stream implementations rendering to files;
    midi, transport, console - command producers.

Errors

Stream conditions ErrInputOverflowed and ErrOutputUnderflowed are
transient: they are logged and the cycle continues with partial data.
Buffer length mismatch and any other stream error stop the Processor.
Disconnection of the command queue only means no new commands: the
audio continues with the last applied state.
*/
package synth
