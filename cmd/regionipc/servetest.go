package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yuoguoxianseng/hbase/internal/testserver"
)

var serveTestCmd = &cobra.Command{
	Use:   "serve-test",
	Short: "run the in-repo test region server and echo every request until interrupted",
	RunE:  runServeTest,
}

func runServeTest(cmd *cobra.Command, _ []string) error {
	srv, err := testserver.Start(testserver.Echo)
	if err != nil {
		return fmt.Errorf("starting test server: %w", err)
	}
	defer srv.Close()

	fmt.Printf("listening on %s (Ctrl-C to stop)\n", srv.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}
