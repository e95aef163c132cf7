package blockchain

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidChain  = errors.New("invalid chain")
	ErrBlockRejected = errors.New("block rejected")
)

func validateGenesis(chain Chain) error {
	if len(chain) == 0 {
		return errors.Wrap(ErrInvalidChain, "chain has no blocks")
	}
	if !IsGenesisBlock(&chain[0]) {
		return errors.Wrap(ErrInvalidChain, "first block is not genesis")
	}
	return nil
}

// validateLink checks a block against its predecessor: position, hash link,
// recomputed hash and proof of work
func validateLink(prev, cur *Block, position int, difficulty int) error {
	if cur.Index != position {
		return errors.Wrapf(ErrInvalidChain, "block at position %d has index %d", position, cur.Index)
	}

	if cur.PrevBlockHash != prev.Hash {
		return errors.Wrapf(ErrInvalidChain, "block %d prevBlockHash %q does not match %q", cur.Index, cur.PrevBlockHash, prev.Hash)
	}

	hash := HashBlock(prev.Hash, cur.Data(), cur.Nonce)
	if !BlockHashMeetsDifficulty(hash, difficulty) {
		return errors.Wrapf(ErrInvalidChain, "block %d does not meet difficulty %d", cur.Index, difficulty)
	}

	if hash != cur.Hash {
		return errors.Wrapf(ErrInvalidChain, "block %d hash mismatch", cur.Index)
	}

	return nil
}

// ValidateChain checks a full chain. Any failure makes the whole chain invalid.
func ValidateChain(chain Chain, difficulty int) error {
	return WalkChain(chain, difficulty, nil)
}

// WalkChain validates chain from genesis, calling visit after every block that
// passes. It stops at the first invalid block.
func WalkChain(chain Chain, difficulty int, visit func(block *Block)) error {
	if err := validateGenesis(chain); err != nil {
		return err
	}
	if visit != nil {
		visit(&chain[0])
	}

	for i := 1; i < len(chain); i++ {
		if err := validateLink(&chain[i-1], &chain[i], i+1, difficulty); err != nil {
			return err
		}
		if visit != nil {
			visit(&chain[i])
		}
	}

	return nil
}

func IsChainValid(chain Chain, difficulty int) bool {
	return ValidateChain(chain, difficulty) == nil
}

// ValidateNextBlock checks that a received block extends the given tip
func ValidateNextBlock(block *Block, last *Block) error {
	if block == nil || last == nil {
		return errors.Wrap(ErrBlockRejected, "missing block")
	}

	if block.PrevBlockHash != last.Hash {
		return errors.Wrapf(ErrBlockRejected, "prevBlockHash %q does not match tip %q", block.PrevBlockHash, last.Hash)
	}

	if block.Index != last.Index+1 {
		return errors.Wrapf(ErrBlockRejected, "index %d does not follow tip %d", block.Index, last.Index)
	}

	return nil
}
