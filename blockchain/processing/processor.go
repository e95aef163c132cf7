package processing

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"meshledger/blockchain"
	"meshledger/blockchain/store"
)

// BlockProcessor handles local mining, peer block intake and chain replacement
type BlockProcessor struct {
	store      store.ChainStore
	miner      *Miner
	difficulty int
	logger     *slog.Logger
}

// NewBlockProcessor creates a processor mining at the given difficulty
func NewBlockProcessor(chainStore store.ChainStore, difficulty int, logger *slog.Logger) *BlockProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlockProcessor{
		store:      chainStore,
		miner:      NewMiner(difficulty),
		difficulty: difficulty,
		logger:     logger,
	}
}

// MineBlock seals the current pending pool on top of the current tip. It fails
// with store.ErrStaleTemplate when a peer block or chain replacement moved the
// tip during the search; the attempt is then discarded.
func (bp *BlockProcessor) MineBlock(ctx context.Context) (blockchain.Block, error) {
	tmpl := bp.store.GetMiningTemplate()
	bp.logger.Debug("Mining block", "index", tmpl.Index, "transactions", len(tmpl.Transactions))

	nonce, err := bp.miner.Solve(ctx, tmpl)
	if err != nil {
		return blockchain.Block{}, errors.WithMessage(err, "proof of work")
	}

	hash := blockchain.HashBlock(tmpl.PrevHash, tmpl.Data(), nonce)
	block, err := bp.store.SealBlock(tmpl, nonce, hash)
	if err != nil {
		bp.logger.Warn("Discarding mined block", "index", tmpl.Index, "error", err)
		return blockchain.Block{}, err
	}

	bp.logger.Info("Block mined", "index", block.Index, "nonce", nonce, "hash", shortHash(hash))
	return block, nil
}

// ProcessBlock appends a peer block if it extends the local tip. Rejected blocks
// are dropped, not buffered.
func (bp *BlockProcessor) ProcessBlock(block blockchain.Block) error {
	if err := bp.store.AppendBlock(block); err != nil {
		bp.logger.Info("Block rejected", "index", block.Index, "hash", shortHash(block.Hash), "reason", err)
		return err
	}

	bp.logger.Info("Block added to main chain", "index", block.Index, "hash", shortHash(block.Hash))
	return nil
}

// Resolution describes the outcome of a longest-chain comparison
type Resolution struct {
	Replaced        bool
	LocalLength     int
	CandidateLength int
	Reason          string
}

// ResolveLongestChain adopts the strictly longest candidate if it is longer
// than the local chain and valid. Ties keep the earlier candidate and the local
// chain always wins a tie. Only the selected candidate is validated.
func (bp *BlockProcessor) ResolveLongestChain(candidates []store.Snapshot) Resolution {
	localLength := bp.store.GetChainHeight()
	res := Resolution{LocalLength: localLength}

	maxLength := localLength
	var best *store.Snapshot
	for i := range candidates {
		if len(candidates[i].Chain) > maxLength {
			maxLength = len(candidates[i].Chain)
			best = &candidates[i]
		}
	}

	if best == nil {
		res.Reason = "no longer chain among peers"
		return res
	}
	res.CandidateLength = len(best.Chain)

	if err := blockchain.ValidateChain(best.Chain, bp.difficulty); err != nil {
		bp.logger.Warn("Longest candidate chain is invalid", "length", len(best.Chain), "error", err)
		res.Reason = err.Error()
		return res
	}

	if err := bp.store.ReplaceChain(best.Chain, best.PendingTransactions); err != nil {
		bp.logger.Warn("Chain replacement refused", "length", len(best.Chain), "error", err)
		res.Reason = err.Error()
		return res
	}

	bp.logger.Info("Replaced local chain", "from", localLength, "to", len(best.Chain))
	res.Replaced = true
	return res
}

func (bp *BlockProcessor) GetStore() store.ChainStore {
	return bp.store
}

// Stop shuts down the mining worker
func (bp *BlockProcessor) Stop() {
	bp.miner.Stop()
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
