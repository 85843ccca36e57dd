package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tatolab/streamlib/examples/apiserver"
	"github.com/tatolab/streamlib/internal/registry"
	"github.com/tatolab/streamlib/internal/runtime"

	"github.com/tatolab/streamlib/internal/proxy"

	// Blank-imported for their init() registrations against
	// registry.Default() — the Go analogue of the link-time processor
	// registration a derive macro would generate.
	_ "github.com/tatolab/streamlib/pkg/processors/audiooutput"
	_ "github.com/tatolab/streamlib/pkg/processors/mixer"
	_ "github.com/tatolab/streamlib/pkg/processors/queue"
	_ "github.com/tatolab/streamlib/pkg/processors/tone"
	_ "github.com/tatolab/streamlib/pkg/processors/video"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the streamlibd runtime and its example HTTP API",
	Long: `Start a Runtime over the process-wide processor registry and
expose it through the worked-example HTTP/WebSocket API (examples/apiserver),
driven by a RuntimeProxy command pump.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().Bool("demo-graph", true, "Pre-wire a tone source through a mixer into an audio sink on startup")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.demo_graph", serveCmd.Flags().Lookup("demo-graph"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	rt := runtime.New(registry.Default(), logger)
	runtimeProxy := proxy.New(64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	go proxy.Run(ctx, rt, runtimeProxy)

	if err := rt.Start(ctx); err != nil {
		return fmt.Errorf("starting runtime: %w", err)
	}

	if viper.GetBool("server.demo_graph") {
		if err := wireDemoGraph(ctx, runtimeProxy); err != nil {
			return fmt.Errorf("wiring demo graph: %w", err)
		}
	}

	serverCfg := apiserver.DefaultConfig()
	serverCfg.Addr = fmt.Sprintf("%s:%d", viper.GetString("server.host"), viper.GetInt("server.port"))
	server := apiserver.New(serverCfg, logger, runtimeProxy, rt)

	logger.Info("starting streamlibd",
		slog.String("addr", serverCfg.Addr),
	)

	return server.ListenAndServe(ctx)
}

// wireDemoGraph builds a tone source -> mixer -> audio output chain
// entirely through the RuntimeProxy, the same command path the HTTP API
// uses, so it also exercises that path at startup.
func wireDemoGraph(ctx context.Context, p *proxy.RuntimeProxy) error {
	toneID, err := p.AddProcessor(ctx, "streamlib.tone.source", map[string]any{
		"frequency_hz": 440.0,
	})
	if err != nil {
		return fmt.Errorf("adding tone source: %w", err)
	}

	mixerID, err := p.AddProcessor(ctx, "streamlib.audio.mixer", map[string]any{
		"num_inputs": 1,
	})
	if err != nil {
		return fmt.Errorf("adding mixer: %w", err)
	}

	outputID, err := p.AddProcessor(ctx, "streamlib.audio.output", map[string]any{})
	if err != nil {
		return fmt.Errorf("adding audio output: %w", err)
	}

	if _, err := p.Connect(ctx, toneID, "audio_out", mixerID, "in_0", 0); err != nil {
		return fmt.Errorf("connecting tone to mixer: %w", err)
	}
	if _, err := p.Connect(ctx, mixerID, "audio_out", outputID, "audio_in", 0); err != nil {
		return fmt.Errorf("connecting mixer to output: %w", err)
	}
	return nil
}
