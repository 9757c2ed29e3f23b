package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/playtalk/voicecapture/cmd/config"
	"github.com/playtalk/voicecapture/internal/networking"
	"github.com/playtalk/voicecapture/internal/utils"
	"github.com/playtalk/voicecapture/pkg/capture"
	"github.com/spf13/viper"
)

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
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

	webrtcConfig, err := utils.GetWebRTCConfiguration(viper.GetStringSlice("ICEServers"))
	if err != nil {
		slog.Error("at least one ICE server must be specified", "err", err)
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------------------------------------------------------------------

	broadcaster, err := networking.NewBroadcaster(webrtcConfig)
	if err != nil {
		panic(err)
	}
	defer broadcaster.Close()

	offer, err := broadcaster.Offer(ctx)
	if err != nil {
		slog.Error("error creating offer", "err", err)
		panic(err)
	}
	fmt.Println("Send this offer to the listener:")
	fmt.Println(offer)
	fmt.Println("Paste the listener's answer:")

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		slog.Error("error reading answer", "err", err)
		panic(err)
	}
	if err := broadcaster.Accept(answer); err != nil {
		panic(err)
	}

	select {
	case <-broadcaster.Connected():
		slog.Info("listener connected")
	case <-broadcaster.Disconnected():
		slog.Error("listener failed to connect")
		return
	case <-ctx.Done():
		slog.Info("interrupted before listener connected")
		return
	}

	// --------------------------------------------------------------------------------

	registry := capture.NewRegistry(config.LineOpener(config.AudioIODeviceAPI()), config.SessionOptions())
	defer func() {
		if err := registry.Shutdown(); err != nil {
			slog.Error("error during capture shutdown", "err", err)
		}
	}()

	session, err := registry.Current()
	if err != nil {
		slog.Error("error opening capture session", "err", err)
		panic(err)
	}
	handle, err := session.LiveHandle()
	if err != nil {
		slog.Error("error opening live handle", "err", err)
		panic(err)
	}
	defer handle.Close()

	publisher, err := networking.NewLivePublisher(handle, broadcaster.Track())
	if err != nil {
		panic(err)
	}
	publisher.SetVolume(float32(viper.GetFloat64("streamvolume")))

	publishDone := make(chan error, 1)
	go func() {
		publishDone <- publisher.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		slog.Info("interrupted")
	case <-broadcaster.Disconnected():
		slog.Info("listener disconnected")
	case err := <-publishDone:
		if err != nil {
			slog.Error("publishing stopped", "err", err)
		}
	}

	slog.Info(
		"stopping stream",
		"framesWritten", publisher.FramesWritten(),
		"droppedChunks", handle.Dropped(),
	)
}
