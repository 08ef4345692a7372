package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuoguoxianseng/hbase/client"
)

var callManyCmd = &cobra.Command{
	Use:   "call-many <addr1,addr2,...> <payload>",
	Short: "fan a single payload out to several region endpoints in parallel",
	Long: `call-many sends payload to every comma-separated address and prints one
line per endpoint. A failed or unreachable endpoint prints as <nil> rather
than aborting the whole fan-out - this mirrors the client facade's
never-raise contract for CallMany.`,
	Args: cobra.ExactArgs(2),
	RunE: runCallMany,
}

func runCallMany(cmd *cobra.Command, args []string) error {
	addrs := strings.Split(args[0], ",")
	payload := args[1]

	params := make([][]byte, len(addrs))
	for i := range addrs {
		params[i] = []byte(payload)
	}

	c := client.New("regionipc-call-many", clientConfigFromFlags())
	defer c.Stop()
	defer maybePrintStats(c)

	results := c.CallMany(params, addrs)
	for i, addr := range addrs {
		if results[i] == nil {
			fmt.Printf("%s: <nil>\n", addr)
			continue
		}
		fmt.Printf("%s: %s\n", addr, results[i])
	}
	return nil
}
