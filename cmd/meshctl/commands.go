package main

import (
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"meshledger/blockchain"
	"meshledger/p2p"
)

func newChainCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "chain",
		Short: "Show the node's chain, pending pool and peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := c.client.FetchBlockchain(cmd.Context(), c.node())
			if err != nil {
				return err
			}
			printChain(payload)
			return nil
		},
	}
}

func newMineCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "Mine the pending pool into a block",
		RunE: func(cmd *cobra.Command, args []string) error {
			spinner, _ := pterm.DefaultSpinner.Start("Mining...")
			resp, err := c.client.Mine(cmd.Context(), c.node())
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success(resp.Msg)
			if resp.Block != nil {
				printBlock(*resp.Block)
			}
			return nil
		},
	}
}

func newSendCmd(c *cli) *cobra.Command {
	var payload p2p.NewTxPayload

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Create a transaction and broadcast it to the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			if payload.Sender == "" || payload.Recipient == "" {
				return errors.New("--sender and --recipient are required")
			}
			resp, err := c.client.BroadcastTransaction(cmd.Context(), c.node(), payload)
			if err != nil {
				return err
			}
			pterm.Success.Println(resp.Msg)
			if resp.Transaction != nil {
				printTransactions([]blockchain.Transaction{*resp.Transaction})
			}
			printReport(resp.Sent, resp.Failed)
			return nil
		},
	}

	cmd.Flags().Float64Var(&payload.Amount, "amount", 0, "Amount to transfer")
	cmd.Flags().StringVar(&payload.Sender, "sender", "", "Sender address")
	cmd.Flags().StringVar(&payload.Recipient, "recipient", "", "Recipient address")
	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "register <new-server-url>",
		Short: "Join a node to the network through this node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.RegisterAndBroadcast(cmd.Context(), c.node(), args[0])
			if err != nil {
				return err
			}
			pterm.Success.Println(resp.Msg)
			printReport(resp.Sent, resp.Failed)
			return nil
		},
	}
}

func newConsensusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "consensus",
		Short: "Reconcile the node with the longest valid chain among its peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.Consensus(cmd.Context(), c.node())
			if err != nil {
				return err
			}
			if resp.Replaced {
				pterm.Success.Println(resp.Msg)
			} else {
				pterm.Info.Println(resp.Msg)
			}
			pterm.Printfln("Chain length: %d", len(resp.Chain))
			return nil
		},
	}
}

func newBlockCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "block <hash>",
		Short: "Look up a block by hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.GetBlock(cmd.Context(), c.node(), args[0])
			if err != nil {
				return err
			}
			if resp.Block == nil {
				pterm.Warning.Println("Block not found")
				return nil
			}
			printBlock(*resp.Block)
			return nil
		},
	}
}

func newTxCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tx <id>",
		Short: "Look up a transaction and the block holding it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.GetTransaction(cmd.Context(), c.node(), args[0])
			if err != nil {
				return err
			}
			if resp.Transaction == nil {
				pterm.Warning.Println("Transaction not found")
				return nil
			}
			printTransactions([]blockchain.Transaction{*resp.Transaction})
			pterm.Printfln("In block %d (%s)", resp.Block.Index, resp.Block.Hash)
			return nil
		},
	}
}

func newAddressCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "address <address>",
		Short: "Show an address's transactions and balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.GetAddress(cmd.Context(), c.node(), args[0])
			if err != nil {
				return err
			}
			printTransactions(resp.AddressData.Transactions)
			pterm.Printfln("Balance: %s", pterm.LightGreen(resp.AddressData.Balance))
			return nil
		},
	}
}

func newVerifyCmd(c *cli) *cobra.Command {
	var difficulty int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Download the node's chain and validate it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := c.client.FetchBlockchain(cmd.Context(), c.node())
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(
				len(payload.Chain),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionSetDescription("Validating blocks..."),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
			if err := bar.RenderBlank(); err != nil {
				return errors.Wrap(err, "failed to render progress bar")
			}

			walkErr := blockchain.WalkChain(payload.Chain, difficulty, func(*blockchain.Block) {
				_ = bar.Add(1)
			})
			if err := bar.Finish(); err != nil {
				return errors.Wrap(err, "failed to finish progress bar")
			}

			if walkErr != nil {
				pterm.Error.Printfln("Chain of %d blocks is invalid: %v", len(payload.Chain), walkErr)
				return walkErr
			}
			pterm.Success.Printfln("Chain of %d blocks is valid", len(payload.Chain))
			return nil
		},
	}

	cmd.Flags().IntVar(&difficulty, "difficulty", blockchain.Difficulty, "Difficulty the network mines at")
	return cmd
}
