package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"meshledger/blockchain"
	"meshledger/p2p"
)

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).Format(time.DateTime)
}

func printChain(payload p2p.BlockchainPayload) {
	pterm.DefaultSection.Println("Chain of " + payload.CurrentServer)

	rows := pterm.TableData{{"Index", "Hash", "Prev", "Nonce", "Txs", "Mined"}}
	for _, block := range payload.Chain {
		rows = append(rows, []string{
			fmt.Sprint(block.Index),
			shortHash(block.Hash),
			shortHash(block.PrevBlockHash),
			fmt.Sprint(block.Nonce),
			fmt.Sprint(len(block.Transactions)),
			formatTimestamp(block.Timestamp),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	pterm.Printfln("Pending transactions: %d", len(payload.PendingTransactions))
	if len(payload.NetworkServers) == 0 {
		pterm.Println("Peers: none")
		return
	}
	items := make([]pterm.BulletListItem, 0, len(payload.NetworkServers))
	for _, peer := range payload.NetworkServers {
		items = append(items, pterm.BulletListItem{Level: 0, Text: peer})
	}
	pterm.Println("Peers:")
	_ = pterm.DefaultBulletList.WithItems(items).Render()
}

func printBlock(block blockchain.Block) {
	pbox := pterm.DefaultBox.WithHorizontalPadding(2).WithTitle(pterm.LightYellow(fmt.Sprintf("|BLOCK %d|", block.Index)))
	pbox.Println(pterm.Sprintfln("hash:  %s\nprev:  %s\nnonce: %d\nmined: %s",
		block.Hash, block.PrevBlockHash, block.Nonce, formatTimestamp(block.Timestamp)))
	printTransactions(block.Transactions)
}

func printTransactions(txs []blockchain.Transaction) {
	if len(txs) == 0 {
		pterm.Println("No transactions")
		return
	}

	rows := pterm.TableData{{"ID", "Sender", "Recipient", "Amount"}}
	for _, tx := range txs {
		sender := tx.Sender
		if tx.IsReward() {
			sender = pterm.LightCyan("reward")
		}
		rows = append(rows, []string{tx.ID, sender, tx.Recipient, fmt.Sprint(tx.Amount)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func printReport(sent, failed []string) {
	pterm.Printfln("Reached %d peer(s)", len(sent))
	for _, peer := range failed {
		pterm.Warning.Printfln("Unreachable: %s", peer)
	}
}
