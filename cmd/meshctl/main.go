package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"meshledger/p2p"
)

const envPrefix = "MESHCTL"

type cli struct {
	v      *viper.Viper
	client *p2p.Client
}

func (c *cli) node() string {
	return c.v.GetString("node")
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "meshctl",
		Short:         "Operate a meshledger node over its HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			c.v.SetEnvPrefix(envPrefix)
			c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			c.v.AutomaticEnv()

			c.client = p2p.NewClient(c.v.GetDuration("timeout"))
			return nil
		},
	}

	root.PersistentFlags().String("node", "http://localhost:3001", "Node URL")
	root.PersistentFlags().Duration("timeout", 2*time.Minute, "Request timeout; mining can take a while")

	root.AddCommand(
		newChainCmd(c),
		newMineCmd(c),
		newSendCmd(c),
		newRegisterCmd(c),
		newConsensusCmd(c),
		newBlockCmd(c),
		newTxCmd(c),
		newAddressCmd(c),
		newVerifyCmd(c),
	)
	return root
}
