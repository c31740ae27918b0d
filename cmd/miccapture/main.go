// Command miccapture serves live microphone audio over HTTP as spec §6's
// "Microphone source": a continuous audio/L16 byte stream, framed into
// fixed-size chunks, captured via internal/micsource (github.com/
// gen2brain/malgo). Grounded on doismellburning-samoyed/src/appserver.go's
// pflag-based flag parsing and usage banner, and on
// original_source/src/app/backend.py's standalone Flask Mic process —
// here split out as its own companion binary rather than folded into the
// segmentation adapter.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/vadcore/segmenter/internal/micsource"
)

func main() {
	var (
		listenAddr = pflag.StringP("listen", "l", "localhost:8081", "Address to listen on.")
		rate       = pflag.IntP("rate", "r", 16000, "Sample rate in Hz.")
		channels   = pflag.IntP("channels", "c", 1, "Channel count.")
		frameSize  = pflag.IntP("frame-size", "f", 320, "Samples per channel per frame (320 = 20ms at 16kHz).")
		help       = pflag.Bool("help", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "miccapture: serve the default input device as audio/L16 over HTTP.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: miccapture [flags]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	params := micsource.Params{Rate: *rate, Channels: *channels, FrameSize: *frameSize}
	mic, err := micsource.Open(params, logger)
	if err != nil {
		logger.Error("failed to open microphone", "error", err)
		os.Exit(1)
	}
	defer mic.Close()

	handler := &micsource.Handler{Source: mic, Logger: logger}
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	logger.Info("serving microphone capture", "addr", *listenAddr, "rate", *rate, "channels", *channels, "frame_size", *frameSize)
	if err := http.ListenAndServe(*listenAddr, mux); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
