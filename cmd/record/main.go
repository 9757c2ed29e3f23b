package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playtalk/voicecapture/cmd/config"
	"github.com/playtalk/voicecapture/internal/utils"
	"github.com/playtalk/voicecapture/pkg/audiodevice/device"
	"github.com/playtalk/voicecapture/pkg/capture"
	"github.com/spf13/viper"
)

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	listDevices := flag.Bool("list", false, "List the input devices of the configured backend and exit.")
	flag.Parse()

	config.LoadConfig(*configFilePath)
	logFilePointer, err := utils.ConfigureDefaultLogger(
		viper.GetString("loglevel"),
		viper.GetString("logfile"),
		slog.HandlerOptions{},
	)
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		panic(err)
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	// --------------------------------------------------------------------------------

	api := config.AudioIODeviceAPI()
	if *listDevices {
		for _, d := range api.InputDevices() {
			fmt.Println(d)
		}
		return
	}

	registry := capture.NewRegistry(config.LineOpener(api), config.SessionOptions())
	session, err := registry.Current()
	if err != nil {
		slog.Error("error opening capture session", "err", err)
		panic(err)
	}
	slog.Info("capturing", "session", session.ID())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if seconds := viper.GetInt("duration"); seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
		defer cancel()
	}
	<-ctx.Done()

	// --------------------------------------------------------------------------------

	if err := registry.Shutdown(); err != nil {
		slog.Error("error during capture shutdown", "err", err)
	}

	outputFile := viper.GetString("outputfile")
	if err := device.WriteWAVFile(outputFile, session.Format(), session.Snapshot()); err != nil {
		slog.Error("error writing capture", "outputFile", outputFile, "err", err)
		panic(err)
	}
	slog.Info(
		"wrote capture",
		"outputFile", outputFile,
		"capturedDuration", session.CapturedDuration(),
	)
}
