package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yuoguoxianseng/hbase/client"
)

var callCmd = &cobra.Command{
	Use:   "call <addr> <payload>",
	Short: "send a single call to a region endpoint and print its response",
	Args:  cobra.ExactArgs(2),
	RunE:  runCall,
}

func init() {
	callCmd.Flags().String("identity", "", "opaque identity token bytes to carry on the connection (demo: raw UTF-8)")
}

func runCall(cmd *cobra.Command, args []string) error {
	addr, payload := args[0], args[1]

	c := client.New("regionipc-call", clientConfigFromFlags())
	defer c.Stop()
	defer maybePrintStats(c)

	var id *identityFlag
	if raw := viper.GetString("identity"); raw != "" {
		id = newIdentityFlag(raw)
	}

	var resp []byte
	var err error
	if id != nil {
		resp, err = c.CallIdentity([]byte(payload), addr, id.token)
	} else {
		resp, err = c.Call([]byte(payload), addr)
	}
	if err != nil {
		return fmt.Errorf("call to %s failed: %w", addr, err)
	}

	fmt.Printf("%s\n", resp)
	return nil
}
