package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"meshledger/blockchain"
	"meshledger/logging"
	"meshledger/mocks"
	"meshledger/p2p"
)

func main() {
	nodeURL := flag.String("node", "http://localhost:3001", "Node the scripts target")
	outDir := flag.String("out", "curl", "Output directory")
	blocks := flag.Int("blocks", 3, "Blocks to generate after genesis")
	difficulty := flag.Int("difficulty", blockchain.Difficulty, "Difficulty the node validates with")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	logger := logging.New(logging.Config{Level: "info", Format: "text"})
	logger.Info("Generating curl test scripts with real blockchain data", "blocks", *blocks, "difficulty", *difficulty)

	// 3 accounts, 4 transfers per block plus the reward
	chain := mocks.GeneratePrebuiltChain(*seed, *blocks, 3, 4, *difficulty)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("Failed to create output directory", "error", err)
		os.Exit(1)
	}

	// Skip genesis, every node already has it
	for _, block := range chain[1:] {
		payload, err := json.MarshalIndent(p2p.NewBlockPayload{NewBlock: &block}, "", "  ")
		if err != nil {
			logger.Error("Failed to marshal block", "index", block.Index, "error", err)
			continue
		}

		script := fmt.Sprintf(`#!/bin/bash
echo "=== POST %[1]s - block %[2]d ==="
echo "Block hash: %[3]s"
echo ""

curl -X POST %[4]s%[1]s \
  -H "Content-Type: application/json" \
  -d '%[5]s' \
  --max-time 2 \
  --connect-timeout 2 \
  --fail-with-body \
  | jq '.' 2>/dev/null || cat
echo -e "\n"
`, p2p.PathReceiveNewBlock, block.Index, block.Hash, *nodeURL, payload)

		writeScript(logger, filepath.Join(*outDir, fmt.Sprintf("post_block_%d.sh", block.Index)), script)
	}

	sequential := fmt.Sprintf(`#!/bin/bash
echo "=== Sequential block submission ==="
echo "The node must be fresh (genesis only) and run with --difficulty %d"
echo ""

if ! curl -s --connect-timeout 2 --max-time 2 %s%s > /dev/null; then
    echo "Node not responding at %s"
    echo "Start it with: meshledger serve --difficulty %d"
    exit 1
fi

`, *difficulty, *nodeURL, p2p.PathBlockchain, *nodeURL, *difficulty)

	for _, block := range chain[1:] {
		sequential += fmt.Sprintf("echo \"Submitting block %[1]d...\"\n%[2]s/post_block_%[1]d.sh || echo \"Block %[1]d failed, continuing...\"\nsleep 1\n\n",
			block.Index, *outDir)
	}
	sequential += fmt.Sprintf(`echo "Sequential block submission completed!"
curl -s --connect-timeout 2 --max-time 2 %s%s | jq '.chain | length' 2>/dev/null || cat
`, *nodeURL, p2p.PathBlockchain)

	writeScript(logger, filepath.Join(*outDir, "post_all_blocks.sh"), sequential)

	fmt.Println("Usage:")
	fmt.Printf("  1. Start a node: meshledger serve --difficulty %d\n", *difficulty)
	fmt.Printf("  2. Run one block: ./%s/post_block_2.sh\n", *outDir)
	fmt.Printf("  3. Run all in order: ./%s/post_all_blocks.sh\n", *outDir)
}

func writeScript(logger *slog.Logger, filename, content string) {
	if err := os.WriteFile(filename, []byte(content), 0o755); err != nil {
		logger.Error("Failed to write script", "file", filename, "error", err)
		return
	}
	logger.Info("Generated", "file", filename)
}
